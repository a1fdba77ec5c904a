package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/hirelocal/hirelocal-backend/pkg/enums"
)

// ConnectedAccount is the durable record of a provider's processor account.
// Capability booleans are only ever written by the webhook processor or the
// reconciliation poll; they mirror the processor's authoritative state.
type ConnectedAccount struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProviderID       uuid.UUID              `gorm:"column:provider_id;type:uuid;not null;uniqueIndex:ux_connected_accounts_provider"`
	AccountID        string                 `gorm:"column:account_id;not null;uniqueIndex:ux_connected_accounts_account"`
	ChargesEnabled   bool                   `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled   bool                   `gorm:"column:payouts_enabled;not null;default:false"`
	DetailsSubmitted bool                   `gorm:"column:details_submitted;not null;default:false"`
	OnboardingStatus enums.OnboardingStatus `gorm:"column:onboarding_status;type:onboarding_status;not null;default:'not_started'"`

	OnboardingURL          *string    `gorm:"column:onboarding_url"`
	OnboardingURLExpiresAt *time.Time `gorm:"column:onboarding_url_expires_at"`

	LastSyncedAt *time.Time `gorm:"column:last_synced_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// HasValidLink reports whether the stored onboarding link is usable at now,
// leaving skew as a safety margin before the processor-side expiry.
func (a *ConnectedAccount) HasValidLink(now time.Time, skew time.Duration) bool {
	if a == nil || a.OnboardingURL == nil || a.OnboardingURLExpiresAt == nil {
		return false
	}
	return now.Add(skew).Before(*a.OnboardingURLExpiresAt)
}

// Eligible reports whether the account may be used as a charge destination.
func (a *ConnectedAccount) Eligible() bool {
	return a != nil && a.ChargesEnabled && a.PayoutsEnabled
}
