package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/enums"
)

// AccountOnboardingStartedEvent signals that a provider received an onboarding link.
type AccountOnboardingStartedEvent struct {
	ProviderID      uuid.UUID              `json:"provider_id"`
	AccountID       string                 `json:"account_id"`
	Status          enums.OnboardingStatus `json:"status"`
	LinkExpiresAt   *time.Time             `json:"link_expires_at,omitempty"`
	ReusedOpenLink  bool                   `json:"reused_open_link"`
}

// AccountCapabilitiesSetEvent reports the capability flags applied from a processor event.
type AccountCapabilitiesSetEvent struct {
	ProviderID     uuid.UUID              `json:"provider_id"`
	AccountID      string                 `json:"account_id"`
	ChargesEnabled bool                   `json:"charges_enabled"`
	PayoutsEnabled bool                   `json:"payouts_enabled"`
	Status         enums.OnboardingStatus `json:"status"`
	EventTime      time.Time              `json:"event_time"`
}

// TransactionCreatedEvent is emitted when checkout persists a pending transaction.
type TransactionCreatedEvent struct {
	TransactionID    uuid.UUID `json:"transaction_id"`
	BookingID        uuid.UUID `json:"booking_id"`
	ProviderID       uuid.UUID `json:"provider_id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	GrossAmountCents int64     `json:"gross_amount_cents"`
	PlatformFeeCents int64     `json:"platform_fee_cents"`
	Currency         string    `json:"currency"`
}

// TransactionFinalizedEvent is emitted when a processor webhook settles a transaction.
type TransactionFinalizedEvent struct {
	TransactionID uuid.UUID               `json:"transaction_id"`
	BookingID     uuid.UUID               `json:"booking_id"`
	Status        enums.TransactionStatus `json:"status"`
	ChargeID      string                  `json:"charge_id,omitempty"`
	FailureReason string                  `json:"failure_reason,omitempty"`
	FinalizedAt   time.Time               `json:"finalized_at"`
}
