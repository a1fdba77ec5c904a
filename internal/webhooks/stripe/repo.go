package stripewebhook

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
)

// LedgerRepository records processed webhook events.
type LedgerRepository interface {
	Insert(ctx context.Context, tx *gorm.DB, event *models.WebhookEvent) error
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository returns a webhook event ledger bound to the provided database.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Insert(ctx context.Context, tx *gorm.DB, event *models.WebhookEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.WithContext(ctx).Create(event).Error
}
