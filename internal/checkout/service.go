package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/internal/accounts"
	"github.com/hirelocal/hirelocal-backend/internal/bookings"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	dbpkg "github.com/hirelocal/hirelocal-backend/pkg/db"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
	"github.com/hirelocal/hirelocal-backend/pkg/metrics"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox/payloads"
	"github.com/hirelocal/hirelocal-backend/pkg/pagination"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

const openTransactionIndex = "ux_booking_transactions_booking_open"

type flagChecker interface {
	IsEnabled(ctx context.Context, name string) bool
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ProcessorClient is the subset of processor operations checkout requires.
type ProcessorClient interface {
	CreateDestinationCharge(ctx context.Context, params pkgstripe.DestinationChargeParams) (*stripe.PaymentIntent, error)
}

// PayBookingParams describes a customer's attempt to pay for a booking.
type PayBookingParams struct {
	BookingID       uuid.UUID
	CustomerID      uuid.UUID
	PaymentMethodID string
}

// PayBookingResult reports the accepted payment attempt. Status stays pending
// until the processor's webhook settles it.
type PayBookingResult struct {
	TransactionID    uuid.UUID
	BookingID        uuid.UUID
	Status           enums.TransactionStatus
	ChargeID         string
	GrossAmountCents int64
	PlatformFeeCents int64
	Currency         string
}

// ServiceParams groups dependencies for the checkout service.
type ServiceParams struct {
	Transactions      TransactionRepository
	Bookings          bookings.Repository
	Accounts          *accounts.Service
	Processor         ProcessorClient
	Flags             flagChecker
	TransactionRunner txRunner
	Outbox            outboxEmitter
	Payments          config.PaymentsConfig
	Flag              config.FlagsConfig
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

// Service orchestrates split-payment checkout. The pending row is persisted
// before the processor is called, so a crash between the two leaves a durable
// record instead of an untracked charge.
type Service struct {
	transactions TransactionRepository
	bookings     bookings.Repository
	accounts     *accounts.Service
	proc         ProcessorClient
	flags        flagChecker
	txRunner     txRunner
	outbox       outboxEmitter
	payments     config.PaymentsConfig
	flagKey      string
	metrics      *metrics.PaymentMetrics
	logg         *logger.Logger
}

// NewService builds a checkout service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction repo required")
	}
	if params.Bookings == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "bookings repo required")
	}
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts service required")
	}
	if params.Processor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "processor client required")
	}
	if params.Flags == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "flag checker required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	flagKey := params.Flag.CheckoutFlagKey
	if flagKey == "" {
		flagKey = "payments.checkout"
	}
	return &Service{
		transactions: params.Transactions,
		bookings:     params.Bookings,
		accounts:     params.Accounts,
		proc:         params.Processor,
		flags:        params.Flags,
		txRunner:     params.TransactionRunner,
		outbox:       params.Outbox,
		payments:     params.Payments,
		flagKey:      flagKey,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// PayBooking runs the checkout pipeline for one booking.
func (s *Service) PayBooking(ctx context.Context, params PayBookingParams) (*PayBookingResult, error) {
	if params.PaymentMethodID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method id is required")
	}

	if !s.flags.IsEnabled(ctx, s.flagKey) {
		s.metrics.IncCheckoutOutcome("disabled")
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "checkout is currently disabled")
	}

	booking, err := s.bookings.FindByID(ctx, params.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
	}
	if booking.CustomerID != params.CustomerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another customer")
	}
	if booking.Status != enums.BookingStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not payable").
			WithDetails(map[string]any{"booking_status": booking.Status})
	}
	if booking.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking price must be positive")
	}

	account, err := s.accounts.GetByProvider(ctx, booking.ProviderID)
	if err != nil {
		return nil, err
	}
	if !account.Eligible() {
		s.metrics.IncCheckoutOutcome("ineligible")
		return nil, pkgerrors.New(pkgerrors.CodeProviderNotEligible, "provider cannot accept payments yet")
	}

	if open, err := s.transactions.FindOpenByBooking(ctx, params.BookingID); err != nil {
		return nil, err
	} else if open != nil {
		s.metrics.IncCheckoutOutcome("already_paid")
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyPaid, "booking already paid").
			WithDetails(map[string]any{"transaction_id": open.ID})
	}

	fee := feeForBooking(booking.PriceCents, booking.FixedFeeCents, s.payments.FeeBasisPoints)
	row := &models.BookingTransaction{
		ID:               uuid.New(),
		BookingID:        booking.ID,
		CustomerID:       booking.CustomerID,
		ProviderID:       booking.ProviderID,
		AccountID:        account.AccountID,
		GrossAmountCents: booking.PriceCents,
		PlatformFeeCents: fee,
		Currency:         s.payments.Currency,
		Status:           enums.TransactionStatusPending,
	}

	if err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.transactions.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateBookingTransaction,
			AggregateID:   row.ID,
			Data: payloads.TransactionCreatedEvent{
				TransactionID:    row.ID,
				BookingID:        row.BookingID,
				ProviderID:       row.ProviderID,
				CustomerID:       row.CustomerID,
				GrossAmountCents: row.GrossAmountCents,
				PlatformFeeCents: row.PlatformFeeCents,
				Currency:         row.Currency,
			},
			Version: 1,
		})
	}); err != nil {
		// Two customers racing the same booking: the partial index lets only
		// one pending row in.
		if dbpkg.IsUniqueViolation(err, openTransactionIndex) {
			s.metrics.IncCheckoutOutcome("already_paid")
			return nil, pkgerrors.Wrap(pkgerrors.CodeAlreadyPaid, err, "booking already paid")
		}
		return nil, err
	}

	started := time.Now()
	intent, err := s.proc.CreateDestinationCharge(ctx, pkgstripe.DestinationChargeParams{
		AmountCents:          row.GrossAmountCents,
		FeeCents:             row.PlatformFeeCents,
		Currency:             row.Currency,
		DestinationAccountID: account.AccountID,
		PaymentMethodID:      params.PaymentMethodID,
		BookingID:            row.BookingID.String(),
		TransactionID:        row.ID.String(),
		IdempotencyKey:       row.ID.String(),
	})
	s.metrics.ObserveChargeDuration("create_destination_charge", time.Since(started))
	if err != nil {
		return nil, s.handleChargeFailure(ctx, row, err)
	}

	// Conditional single-column write: a webhook racing this persist may have
	// linked and finalized the row already, and must not be clobbered.
	chargeID := intent.ID
	if err := s.transactions.LinkChargeID(ctx, row.ID, chargeID); err != nil {
		return nil, err
	}
	row.ProcessorChargeID = &chargeID

	s.metrics.IncCheckoutOutcome("accepted")
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"booking_id":     row.BookingID.String(),
			"transaction_id": row.ID.String(),
			"charge_id":      chargeID,
		})
		s.logg.Info(logCtx, "checkout charge submitted")
	}

	return &PayBookingResult{
		TransactionID:    row.ID,
		BookingID:        row.BookingID,
		Status:           row.Status,
		ChargeID:         chargeID,
		GrossAmountCents: row.GrossAmountCents,
		PlatformFeeCents: row.PlatformFeeCents,
		Currency:         row.Currency,
	}, nil
}

// handleChargeFailure settles the pending row after a synchronous processor
// error. The row always goes to failed, whatever the error class, so the
// booking never wedges behind the open-transaction index and the customer's
// retry opens a fresh transaction.
func (s *Service) handleChargeFailure(ctx context.Context, row *models.BookingTransaction, chargeErr error) error {
	now := time.Now().UTC()
	reason := chargeErr.Error()
	row.Status = enums.TransactionStatusFailed
	row.FailureReason = &reason
	row.FinalizedAt = &now
	if err := s.transactions.Update(ctx, row); err != nil && s.logg != nil {
		s.logg.Error(ctx, "marking failed transaction", err)
	}

	outcome := "failed"
	if typed := pkgerrors.As(chargeErr); typed != nil && typed.Code() == pkgerrors.CodeCardDeclined {
		outcome = "declined"
	}
	s.metrics.IncCheckoutOutcome(outcome)
	return chargeErr
}

// ListTransactionsParams configures customer transaction history queries.
type ListTransactionsParams struct {
	CustomerID uuid.UUID
	Limit      int
	Cursor     string
	Status     *enums.TransactionStatus
}

// TransactionPage is one page of a customer's payment history.
type TransactionPage struct {
	Items  []models.BookingTransaction
	Cursor string
}

// ListTransactions pages through a customer's payment history.
func (s *Service) ListTransactions(ctx context.Context, params ListTransactionsParams) (*TransactionPage, error) {
	if params.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.transactions.ListByCustomer(ctx, ListTransactionsQuery{
		CustomerID: params.CustomerID,
		Limit:      params.Limit,
		Cursor:     cursor,
		Status:     params.Status,
	})
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Items: rows}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// ListProviderTransactionsParams configures provider earnings queries.
type ListProviderTransactionsParams struct {
	ProviderID uuid.UUID
	Limit      int
	Cursor     string
	Status     *enums.TransactionStatus
}

// ListProviderTransactions pages through payments destined for a provider.
func (s *Service) ListProviderTransactions(ctx context.Context, params ListProviderTransactionsParams) (*TransactionPage, error) {
	if params.ProviderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider id is required")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.transactions.ListByProvider(ctx, ListProviderTransactionsQuery{
		ProviderID: params.ProviderID,
		Limit:      params.Limit,
		Cursor:     cursor,
		Status:     params.Status,
	})
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{Items: rows}
	if next != nil {
		page.Cursor = pagination.EncodeCursor(*next)
	}
	return page, nil
}

// GetTransaction returns a single transaction scoped to its customer.
func (s *Service) GetTransaction(ctx context.Context, customerID, transactionID uuid.UUID) (*models.BookingTransaction, error) {
	row, err := s.transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	if row.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "transaction belongs to another customer")
	}
	return row, nil
}
