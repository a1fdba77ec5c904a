package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/internal/accounts"
	"github.com/hirelocal/hirelocal-backend/internal/checkout"
	dbpkg "github.com/hirelocal/hirelocal-backend/pkg/db"
	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	pkgerrors "github.com/hirelocal/hirelocal-backend/pkg/errors"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
	"github.com/hirelocal/hirelocal-backend/pkg/metrics"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox/payloads"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
)

const ledgerPrimaryKey = "webhook_events_pkey"

// errDuplicateEvent aborts the transaction without treating the delivery as a
// failure; the ledger already holds this event id.
var errDuplicateEvent = errors.New("webhook event already processed")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ServiceParams struct {
	Accounts          *accounts.Service
	Transactions      checkout.TransactionRepository
	Ledger            LedgerRepository
	Guard             *IdempotencyGuard
	TransactionRunner txRunner
	Outbox            outboxEmitter
	Metrics           *metrics.PaymentMetrics
	Logger            *logger.Logger
}

// Service applies processor webhook events exactly once. The ledger insert
// and the event's effect commit in the same transaction, so a crash either
// keeps both or neither and a redelivery replays cleanly.
type Service struct {
	accounts     *accounts.Service
	transactions checkout.TransactionRepository
	ledger       LedgerRepository
	guard        *IdempotencyGuard
	txRunner     txRunner
	outbox       outboxEmitter
	metrics      *metrics.PaymentMetrics
	logg         *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Accounts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "accounts service required")
	}
	if params.Transactions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction repo required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ledger repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service required")
	}
	return &Service{
		accounts:     params.Accounts,
		transactions: params.Transactions,
		ledger:       params.Ledger,
		guard:        params.Guard,
		txRunner:     params.TransactionRunner,
		outbox:       params.Outbox,
		metrics:      params.Metrics,
		logg:         params.Logger,
	}, nil
}

// HandleEvent processes one verified webhook delivery.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if s.logg != nil {
		ctx = s.logg.WithEventID(ctx, event.ID)
	}

	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, event.ID)
		if err != nil {
			// Redis being down must not drop deliveries; the ledger still
			// dedupes.
			if s.logg != nil {
				s.logg.Warn(ctx, "idempotency guard unavailable, relying on ledger")
			}
		} else if seen {
			s.metrics.IncWebhookDuplicate(string(event.Type))
			return nil
		}
	}

	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		now := time.Now().UTC()
		ledgerRow := &models.WebhookEvent{
			EventID:     event.ID,
			Type:        string(event.Type),
			ReceivedAt:  now,
			ProcessedAt: &now,
		}
		if err := s.ledger.Insert(ctx, tx, ledgerRow); err != nil {
			if dbpkg.IsUniqueViolation(err, ledgerPrimaryKey) {
				return errDuplicateEvent
			}
			return err
		}
		return s.dispatch(ctx, tx, event)
	})

	switch {
	case errors.Is(err, errDuplicateEvent):
		s.metrics.IncWebhookDuplicate(string(event.Type))
		return nil
	case err != nil:
		if s.guard != nil {
			_ = s.guard.Delete(ctx, event.ID)
		}
		s.metrics.IncWebhookFailed(string(event.Type))
		return err
	}

	s.metrics.IncWebhookProcessed(string(event.Type))
	return nil
}

func (s *Service) dispatch(ctx context.Context, tx *gorm.DB, event *stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeAccountUpdated:
		return s.handleAccountUpdated(ctx, tx, event)
	case stripe.EventTypePaymentIntentSucceeded:
		return s.handlePaymentIntent(ctx, tx, event, enums.TransactionStatusSucceeded)
	case stripe.EventTypePaymentIntentPaymentFailed:
		return s.handlePaymentIntent(ctx, tx, event, enums.TransactionStatusFailed)
	case stripe.EventTypeChargeRefunded:
		return s.handleChargeRefunded(ctx, tx, event)
	default:
		return nil
	}
}

func (s *Service) handleAccountUpdated(ctx context.Context, tx *gorm.DB, event *stripe.Event) error {
	var remote stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &remote); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode account event")
	}

	snapshot := accounts.CapabilitySnapshot{
		ChargesEnabled:   remote.ChargesEnabled,
		PayoutsEnabled:   remote.PayoutsEnabled,
		DetailsSubmitted: remote.DetailsSubmitted,
		Disabled:         remote.Requirements != nil && remote.Requirements.DisabledReason != "",
		EventTime:        time.Unix(event.Created, 0).UTC(),
	}

	updated, changed, err := s.accounts.ApplyCapabilities(ctx, tx, remote.ID, snapshot)
	if err != nil {
		// Events can reference accounts this marketplace never opened;
		// acknowledge them instead of forcing endless redeliveries.
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			if s.logg != nil {
				s.logg.Warn(ctx, "account event for unknown connected account")
			}
			return nil
		}
		return err
	}
	if !changed {
		return nil
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventAccountCapabilitiesSet,
		AggregateType: enums.AggregateConnectedAccount,
		AggregateID:   updated.ID,
		Data: payloads.AccountCapabilitiesSetEvent{
			ProviderID:     updated.ProviderID,
			AccountID:      updated.AccountID,
			ChargesEnabled: updated.ChargesEnabled,
			PayoutsEnabled: updated.PayoutsEnabled,
			Status:         updated.OnboardingStatus,
			EventTime:      snapshot.EventTime,
		},
		Version: 1,
	})
}

func (s *Service) handlePaymentIntent(ctx context.Context, tx *gorm.DB, event *stripe.Event, target enums.TransactionStatus) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}

	row, err := s.resolveTransaction(ctx, tx, intent.ID, intent.Metadata)
	if err != nil {
		return err
	}
	if row == nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "payment event for unknown transaction")
		}
		return nil
	}

	if !canTransition(row.Status, target) {
		// Out-of-order or repeated settlement; the first terminal write wins.
		return nil
	}

	// The intent id may beat the checkout write that stores it; link it here.
	if row.ProcessorChargeID == nil && intent.ID != "" {
		chargeID := intent.ID
		row.ProcessorChargeID = &chargeID
	}
	row.Status = target
	if target == enums.TransactionStatusFailed {
		reason := failureReason(&intent)
		row.FailureReason = &reason
	}
	finalizedAt := time.Unix(event.Created, 0).UTC()
	row.FinalizedAt = &finalizedAt

	if err := s.transactions.WithTx(tx).Update(ctx, row); err != nil {
		return err
	}
	return s.emitFinalized(ctx, tx, row)
}

func (s *Service) handleChargeRefunded(ctx context.Context, tx *gorm.DB, event *stripe.Event) error {
	var charge stripe.Charge
	if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}

	intentID := ""
	if charge.PaymentIntent != nil {
		intentID = charge.PaymentIntent.ID
	}
	row, err := s.resolveTransaction(ctx, tx, intentID, charge.Metadata)
	if err != nil {
		return err
	}
	if row == nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "refund event for unknown transaction")
		}
		return nil
	}

	if !canTransition(row.Status, enums.TransactionStatusRefunded) {
		return nil
	}

	row.Status = enums.TransactionStatusRefunded
	finalizedAt := time.Unix(event.Created, 0).UTC()
	row.FinalizedAt = &finalizedAt

	if err := s.transactions.WithTx(tx).Update(ctx, row); err != nil {
		return err
	}
	return s.emitFinalized(ctx, tx, row)
}

// resolveTransaction locates the transaction by stored charge id first and
// falls back to the transaction id stamped in processor metadata.
func (s *Service) resolveTransaction(ctx context.Context, tx *gorm.DB, chargeID string, metadata map[string]string) (*models.BookingTransaction, error) {
	repo := s.transactions.WithTx(tx)

	if chargeID != "" {
		row, err := repo.FindByChargeID(ctx, chargeID)
		if err != nil {
			return nil, err
		}
		if row != nil {
			return row, nil
		}
	}

	raw := metadata[pkgstripe.MetadataTransactionID]
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, nil
	}
	return repo.FindByID(ctx, id)
}

func (s *Service) emitFinalized(ctx context.Context, tx *gorm.DB, row *models.BookingTransaction) error {
	chargeID := ""
	if row.ProcessorChargeID != nil {
		chargeID = *row.ProcessorChargeID
	}
	reason := ""
	if row.FailureReason != nil {
		reason = *row.FailureReason
	}
	finalizedAt := time.Now().UTC()
	if row.FinalizedAt != nil {
		finalizedAt = *row.FinalizedAt
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTransactionFinalized,
		AggregateType: enums.AggregateBookingTransaction,
		AggregateID:   row.ID,
		Data: payloads.TransactionFinalizedEvent{
			TransactionID: row.ID,
			BookingID:     row.BookingID,
			Status:        row.Status,
			ChargeID:      chargeID,
			FailureReason: reason,
			FinalizedAt:   finalizedAt,
		},
		Version: 1,
	})
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent != nil && intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "payment failed"
}
