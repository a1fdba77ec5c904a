package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/enums"
)

// Booking is the customer-facing reservation of a service listing. Payment
// state lives on BookingTransaction; this row only carries what checkout and
// the routing layer read.
type Booking struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	ProviderID uuid.UUID           `gorm:"column:provider_id;type:uuid;not null;index"`
	ListingID  uuid.UUID           `gorm:"column:listing_id;type:uuid;not null"`
	Status     enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'requested'"`
	PriceCents int64               `gorm:"column:price_cents;not null"`
	// FixedFeeCents, when set, replaces the percentage platform fee for this
	// booking. Negotiated rates for high-volume providers land here.
	FixedFeeCents *int64     `gorm:"column:fixed_fee_cents"`
	ScheduledFor  *time.Time `gorm:"column:scheduled_for"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
