package onboarding

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
)

// ProviderRepository exposes the provider lookups onboarding needs.
type ProviderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Provider, error)
}

type providerRepository struct {
	db *gorm.DB
}

// NewProviderRepository returns a provider repository bound to the provided database.
func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Provider, error) {
	var provider models.Provider
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&provider).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}
