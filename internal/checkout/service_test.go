package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/internal/accounts"
	"github.com/hirelocal/hirelocal-backend/internal/bookings"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox"
	"github.com/hirelocal/hirelocal-backend/pkg/pagination"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

type stubTxRepo struct {
	open      *models.BookingTransaction
	created   []*models.BookingTransaction
	updated   []*models.BookingTransaction
	linked    []string
	createErr error
	rows      map[uuid.UUID]*models.BookingTransaction
}

func (s *stubTxRepo) WithTx(tx *gorm.DB) TransactionRepository { return s }

func (s *stubTxRepo) Create(ctx context.Context, transaction *models.BookingTransaction) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, transaction)
	return nil
}

func (s *stubTxRepo) Update(ctx context.Context, transaction *models.BookingTransaction) error {
	s.updated = append(s.updated, transaction)
	return nil
}

func (s *stubTxRepo) LinkChargeID(ctx context.Context, id uuid.UUID, chargeID string) error {
	s.linked = append(s.linked, chargeID)
	for _, row := range s.created {
		if row.ID == id && row.ProcessorChargeID == nil {
			linked := chargeID
			row.ProcessorChargeID = &linked
		}
	}
	return nil
}

func (s *stubTxRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.BookingTransaction, error) {
	if s.rows == nil {
		return nil, nil
	}
	return s.rows[id], nil
}

func (s *stubTxRepo) FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingTransaction, error) {
	return s.open, nil
}

func (s *stubTxRepo) FindByChargeID(ctx context.Context, chargeID string) (*models.BookingTransaction, error) {
	return nil, nil
}

func (s *stubTxRepo) ListByCustomer(ctx context.Context, params ListTransactionsQuery) ([]models.BookingTransaction, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (s *stubTxRepo) ListByProvider(ctx context.Context, params ListProviderTransactionsQuery) ([]models.BookingTransaction, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubBookings struct {
	booking *models.Booking
}

func (s *stubBookings) WithTx(tx *gorm.DB) bookings.Repository { return s }

func (s *stubBookings) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	if s.booking != nil && s.booking.ID == id {
		return s.booking, nil
	}
	return nil, nil
}

func (s *stubBookings) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Booking, error) {
	return nil, nil
}

type stubAccountsRepo struct {
	account *models.ConnectedAccount
}

func (s *stubAccountsRepo) WithTx(tx *gorm.DB) accounts.Repository                        { return s }
func (s *stubAccountsRepo) Create(ctx context.Context, a *models.ConnectedAccount) error  { return nil }
func (s *stubAccountsRepo) Update(ctx context.Context, a *models.ConnectedAccount) error  { return nil }
func (s *stubAccountsRepo) FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	return s.account, nil
}
func (s *stubAccountsRepo) FindByAccountID(ctx context.Context, accountID string) (*models.ConnectedAccount, error) {
	return s.account, nil
}

type stubFlags struct {
	enabled bool
}

func (s stubFlags) IsEnabled(ctx context.Context, name string) bool { return s.enabled }

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubProcessor struct {
	calls  []pkgstripe.DestinationChargeParams
	intent *stripe.PaymentIntent
	err    error
}

func (s *stubProcessor) CreateDestinationCharge(ctx context.Context, params pkgstripe.DestinationChargeParams) (*stripe.PaymentIntent, error) {
	s.calls = append(s.calls, params)
	if s.err != nil {
		return nil, s.err
	}
	return s.intent, nil
}

type fixture struct {
	svc       *Service
	txRepo    *stubTxRepo
	processor *stubProcessor
	outbox    *stubOutbox
	booking   *models.Booking
}

func newFixture(t *testing.T, mutate ...func(*fixture)) *fixture {
	t.Helper()

	providerID := uuid.New()
	customerID := uuid.New()
	booking := &models.Booking{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProviderID: providerID,
		ListingID:  uuid.New(),
		Status:     enums.BookingStatusConfirmed,
		PriceCents: 12500,
	}

	f := &fixture{
		txRepo: &stubTxRepo{},
		processor: &stubProcessor{
			intent: &stripe.PaymentIntent{ID: "pi_1", Status: stripe.PaymentIntentStatusProcessing},
		},
		outbox:  &stubOutbox{},
		booking: booking,
	}

	accountsSvc, err := accounts.NewService(accounts.ServiceParams{
		Repo: &stubAccountsRepo{account: &models.ConnectedAccount{
			ProviderID:     providerID,
			AccountID:      "acct_1",
			ChargesEnabled: true,
			PayoutsEnabled: true,
		}},
	})
	if err != nil {
		t.Fatalf("accounts service: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Transactions:      f.txRepo,
		Bookings:          &stubBookings{booking: booking},
		Accounts:          accountsSvc,
		Processor:         f.processor,
		Flags:             stubFlags{enabled: true},
		TransactionRunner: stubTxRunner{},
		Outbox:            f.outbox,
		Payments:          config.PaymentsConfig{FeeBasisPoints: 1500, Currency: "usd"},
		Flag:              config.FlagsConfig{CheckoutFlagKey: "payments.checkout"},
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	f.svc = svc

	for _, m := range mutate {
		m(f)
	}
	return f
}

func payParams(f *fixture) PayBookingParams {
	return PayBookingParams{
		BookingID:       f.booking.ID,
		CustomerID:      f.booking.CustomerID,
		PaymentMethodID: "pm_1",
	}
}

func TestPayBookingHappyPath(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.PayBooking(context.Background(), payParams(f))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.txRepo.created) != 1 {
		t.Fatalf("expected one pending row, got %d", len(f.txRepo.created))
	}
	row := f.txRepo.created[0]
	if row.Status != enums.TransactionStatusPending {
		t.Fatalf("expected pending status persisted, got %s", row.Status)
	}
	if row.PlatformFeeCents != 1875 {
		t.Fatalf("expected fee 1875, got %d", row.PlatformFeeCents)
	}

	if len(f.processor.calls) != 1 {
		t.Fatalf("expected one charge call, got %d", len(f.processor.calls))
	}
	call := f.processor.calls[0]
	if call.IdempotencyKey != row.ID.String() {
		t.Fatalf("expected transaction id as idempotency key, got %q", call.IdempotencyKey)
	}
	if call.DestinationAccountID != "acct_1" || call.FeeCents != 1875 {
		t.Fatalf("unexpected charge params %+v", call)
	}

	if result.Status != enums.TransactionStatusPending {
		t.Fatalf("expected result pending until webhook, got %s", result.Status)
	}
	if result.ChargeID != "pi_1" {
		t.Fatalf("expected charge id attached, got %q", result.ChargeID)
	}
	if row.ProcessorChargeID == nil || *row.ProcessorChargeID != "pi_1" {
		t.Fatal("expected charge id stored on row")
	}

	if len(f.outbox.events) != 1 || f.outbox.events[0].EventType != enums.EventTransactionCreated {
		t.Fatalf("expected transaction created event, got %+v", f.outbox.events)
	}
}

func TestPayBookingFixedFeeOverride(t *testing.T) {
	f := newFixture(t)
	fixed := int64(500)
	f.booking.FixedFeeCents = &fixed

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee := f.txRepo.created[0].PlatformFeeCents; fee != 500 {
		t.Fatalf("expected fixed fee 500, got %d", fee)
	}
}

func TestPayBookingFixedFeeCappedAtGross(t *testing.T) {
	f := newFixture(t)
	fixed := f.booking.PriceCents + 1000
	f.booking.FixedFeeCents = &fixed

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee := f.txRepo.created[0].PlatformFeeCents; fee != f.booking.PriceCents {
		t.Fatalf("expected fee capped at %d, got %d", f.booking.PriceCents, fee)
	}
}

func TestPayBookingFlagDisabledFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.svc.flags = stubFlags{enabled: false}

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(f.txRepo.created) != 0 || len(f.processor.calls) != 0 {
		t.Fatal("expected no writes or charges when disabled")
	}
}

func TestPayBookingProviderNotEligible(t *testing.T) {
	f := newFixture(t)
	accountsSvc, _ := accounts.NewService(accounts.ServiceParams{
		Repo: &stubAccountsRepo{account: &models.ConnectedAccount{
			ProviderID:     f.booking.ProviderID,
			AccountID:      "acct_1",
			ChargesEnabled: true,
			PayoutsEnabled: false,
		}},
	})
	f.svc.accounts = accountsSvc

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if pkgerrors.As(err).Code() != pkgerrors.CodeProviderNotEligible {
		t.Fatalf("expected provider not eligible, got %v", err)
	}
	if len(f.processor.calls) != 0 {
		t.Fatal("expected no charge for ineligible provider")
	}
}

func TestPayBookingAlreadyPaid(t *testing.T) {
	f := newFixture(t)
	f.txRepo.open = &models.BookingTransaction{
		ID:        uuid.New(),
		BookingID: f.booking.ID,
		Status:    enums.TransactionStatusSucceeded,
	}

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if pkgerrors.As(err).Code() != pkgerrors.CodeAlreadyPaid {
		t.Fatalf("expected already paid, got %v", err)
	}
	if len(f.processor.calls) != 0 {
		t.Fatal("expected no charge when booking already paid")
	}
}

func TestPayBookingRaceMapsUniqueViolation(t *testing.T) {
	f := newFixture(t)
	f.txRepo.createErr = errors.New(`duplicate key value violates unique constraint "ux_booking_transactions_booking_open"`)

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if pkgerrors.As(err).Code() != pkgerrors.CodeAlreadyPaid {
		t.Fatalf("expected already paid from race, got %v", err)
	}
	if len(f.processor.calls) != 0 {
		t.Fatal("expected no charge after losing the race")
	}
}

func TestPayBookingDeclineMarksRowFailed(t *testing.T) {
	f := newFixture(t)
	f.processor.err = pkgerrors.New(pkgerrors.CodeCardDeclined, "card was declined")

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if pkgerrors.As(err).Code() != pkgerrors.CodeCardDeclined {
		t.Fatalf("expected card declined, got %v", err)
	}

	if len(f.txRepo.created) != 1 {
		t.Fatalf("expected pending row persisted before charge, got %d", len(f.txRepo.created))
	}
	row := f.txRepo.created[0]
	if row.Status != enums.TransactionStatusFailed {
		t.Fatalf("expected row marked failed, got %s", row.Status)
	}
	if row.FailureReason == nil || row.FinalizedAt == nil {
		t.Fatal("expected failure reason and finalized timestamp")
	}
}

func TestPayBookingTransientErrorFailsRowAndAllowsRetry(t *testing.T) {
	f := newFixture(t)
	f.processor.err = pkgerrors.New(pkgerrors.CodeDependency, "processor unavailable")

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if pkgerrors.As(err).Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
	row := f.txRepo.created[0]
	if row.Status != enums.TransactionStatusFailed {
		t.Fatalf("expected row marked failed after processor outage, got %s", row.Status)
	}
	if row.FailureReason == nil || row.FinalizedAt == nil {
		t.Fatal("expected failure reason and finalized timestamp")
	}

	// The failed row does not hold the booking open; a second attempt charges
	// under a fresh transaction instead of bouncing off already-paid.
	f.processor.err = nil
	result, err := f.svc.PayBooking(context.Background(), payParams(f))
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if result.Status != enums.TransactionStatusPending {
		t.Fatalf("expected retry pending until webhook, got %s", result.Status)
	}
	if len(f.txRepo.created) != 2 {
		t.Fatalf("expected a fresh transaction on retry, got %d rows", len(f.txRepo.created))
	}
	if f.txRepo.created[1].ID == row.ID {
		t.Fatal("expected retry to use a new transaction id")
	}
}

func TestPayBookingChargeIDLinkedConditionally(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PayBooking(context.Background(), payParams(f))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.txRepo.linked) != 1 || f.txRepo.linked[0] != "pi_1" {
		t.Fatalf("expected one conditional charge-id link, got %v", f.txRepo.linked)
	}
	if len(f.txRepo.updated) != 0 {
		t.Fatal("expected no full-row update after a successful charge")
	}
}

func TestPayBookingGuardsBookingState(t *testing.T) {
	f := newFixture(t)

	params := payParams(f)
	params.CustomerID = uuid.New()
	if _, err := f.svc.PayBooking(context.Background(), params); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign customer, got %v", err)
	}

	params = payParams(f)
	params.BookingID = uuid.New()
	if _, err := f.svc.PayBooking(context.Background(), params); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown booking, got %v", err)
	}

	f.booking.Status = enums.BookingStatusRequested
	if _, err := f.svc.PayBooking(context.Background(), payParams(f)); pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unconfirmed booking, got %v", err)
	}

	f.booking.Status = enums.BookingStatusConfirmed
	params = payParams(f)
	params.PaymentMethodID = ""
	if _, err := f.svc.PayBooking(context.Background(), params); pkgerrors.As(err).Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for missing payment method, got %v", err)
	}
}

func TestGetTransactionScopedToCustomer(t *testing.T) {
	f := newFixture(t)
	row := &models.BookingTransaction{
		ID:         uuid.New(),
		CustomerID: f.booking.CustomerID,
		Status:     enums.TransactionStatusPending,
		CreatedAt:  time.Now(),
	}
	f.txRepo.rows = map[uuid.UUID]*models.BookingTransaction{row.ID: row}

	got, err := f.svc.GetTransaction(context.Background(), f.booking.CustomerID, row.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != row.ID {
		t.Fatalf("expected row %s, got %s", row.ID, got.ID)
	}

	if _, err := f.svc.GetTransaction(context.Background(), uuid.New(), row.ID); pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for foreign customer, got %v", err)
	}
	if _, err := f.svc.GetTransaction(context.Background(), f.booking.CustomerID, uuid.New()); pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
