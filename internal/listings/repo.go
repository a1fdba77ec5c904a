package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/pagination"
)

// Repository handles service listing reads. Catalog writes belong to the
// catalog product surface, not the payment core.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error)
	ListActiveByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ServiceListing, error)
	List(ctx context.Context, params ListQuery) ([]models.ServiceListing, *pagination.Cursor, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a listings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	var listing models.ServiceListing
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&listing).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

func (r *repository) ListActiveByProvider(ctx context.Context, providerID uuid.UUID) ([]models.ServiceListing, error) {
	var rows []models.ServiceListing
	if err := r.db.WithContext(ctx).
		Where("provider_id = ? AND active", providerID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListQuery configures catalog browse queries.
type ListQuery struct {
	Category string
	Limit    int
	Cursor   *pagination.Cursor
}

func (r *repository) List(ctx context.Context, params ListQuery) ([]models.ServiceListing, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.ServiceListing{}).
		Where("active")
	if params.Category != "" {
		query = query.Where("category = ?", params.Category)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.ServiceListing
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[limit-1]
		return rows, &pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		}, nil
	}

	return rows, nil, nil
}
