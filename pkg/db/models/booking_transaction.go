package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/enums"
)

// BookingTransaction records a single checkout attempt. The row id doubles as
// the processor idempotency key, so a retried call replays the original charge.
// A partial unique index on (booking_id) WHERE status <> 'failed' guarantees at
// most one open transaction per booking.
type BookingTransaction struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	BookingID  uuid.UUID `gorm:"column:booking_id;type:uuid;not null;index"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null;index"`
	ProviderID uuid.UUID `gorm:"column:provider_id;type:uuid;not null;index"`
	AccountID  string    `gorm:"column:account_id;not null"`

	GrossAmountCents int64  `gorm:"column:gross_amount_cents;not null"`
	PlatformFeeCents int64  `gorm:"column:platform_fee_cents;not null"`
	Currency         string `gorm:"column:currency;not null;default:'usd'"`

	ProcessorChargeID *string                 `gorm:"column:processor_charge_id;uniqueIndex:ux_booking_transactions_charge"`
	Status            enums.TransactionStatus `gorm:"column:status;type:transaction_status;not null;default:'pending'"`
	FailureReason     *string                 `gorm:"column:failure_reason"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	FinalizedAt *time.Time `gorm:"column:finalized_at"`
}
