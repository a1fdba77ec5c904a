package models

import (
	"time"

	"github.com/google/uuid"
)

// Provider is an independent service pro offering listings on the marketplace.
type Provider struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DisplayName string    `gorm:"column:display_name;not null"`
	Email       string    `gorm:"column:email;not null;uniqueIndex:ux_providers_email"`
	CountryCode string    `gorm:"column:country_code;not null;default:'US'"`
	Active      bool      `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
