package accounts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
)

// Repository handles connected account persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, account *models.ConnectedAccount) error
	Update(ctx context.Context, account *models.ConnectedAccount) error
	FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.ConnectedAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an accounts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, account *models.ConnectedAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repository) Update(ctx context.Context, account *models.ConnectedAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repository) FindByProvider(ctx context.Context, providerID uuid.UUID) (*models.ConnectedAccount, error) {
	var account models.ConnectedAccount
	if err := r.db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repository) FindByAccountID(ctx context.Context, accountID string) (*models.ConnectedAccount, error) {
	if accountID == "" {
		return nil, nil
	}
	var account models.ConnectedAccount
	if err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
