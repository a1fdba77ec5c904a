package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hirelocal/hirelocal-backend/pkg/db/models"
	"github.com/hirelocal/hirelocal-backend/pkg/enums"
	"github.com/hirelocal/hirelocal-backend/pkg/pagination"
)

// TransactionRepository handles booking transaction persistence.
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository
	Create(ctx context.Context, transaction *models.BookingTransaction) error
	Update(ctx context.Context, transaction *models.BookingTransaction) error
	LinkChargeID(ctx context.Context, id uuid.UUID, chargeID string) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.BookingTransaction, error)
	FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingTransaction, error)
	FindByChargeID(ctx context.Context, chargeID string) (*models.BookingTransaction, error)
	ListByCustomer(ctx context.Context, params ListTransactionsQuery) ([]models.BookingTransaction, *pagination.Cursor, error)
	ListByProvider(ctx context.Context, params ListProviderTransactionsQuery) ([]models.BookingTransaction, *pagination.Cursor, error)
}

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository returns a transaction repository bound to the provided database.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(tx *gorm.DB) TransactionRepository {
	if tx == nil {
		return r
	}
	return &transactionRepository{db: tx}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.BookingTransaction) error {
	return r.db.WithContext(ctx).Create(transaction).Error
}

func (r *transactionRepository) Update(ctx context.Context, transaction *models.BookingTransaction) error {
	return r.db.WithContext(ctx).Save(transaction).Error
}

// LinkChargeID stores the processor charge id at most once. The guard keeps a
// late synchronous persist from touching a row a webhook already linked, and
// the single-column update leaves status and finalized_at alone.
func (r *transactionRepository) LinkChargeID(ctx context.Context, id uuid.UUID, chargeID string) error {
	return r.db.WithContext(ctx).
		Model(&models.BookingTransaction{}).
		Where("id = ? AND processor_charge_id IS NULL", id).
		Update("processor_charge_id", chargeID).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.BookingTransaction, error) {
	var row models.BookingTransaction
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindOpenByBooking returns the booking's single non-failed transaction, if
// any. The partial unique index guarantees at most one row qualifies.
func (r *transactionRepository) FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*models.BookingTransaction, error) {
	var row models.BookingTransaction
	if err := r.db.WithContext(ctx).
		Where("booking_id = ? AND status <> ?", bookingID, enums.TransactionStatusFailed).
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *transactionRepository) FindByChargeID(ctx context.Context, chargeID string) (*models.BookingTransaction, error) {
	if chargeID == "" {
		return nil, nil
	}
	var row models.BookingTransaction
	if err := r.db.WithContext(ctx).
		Where("processor_charge_id = ?", chargeID).
		First(&row).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListTransactionsQuery configures transaction list queries.
type ListTransactionsQuery struct {
	CustomerID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	Status     *enums.TransactionStatus
}

func (r *transactionRepository) ListByCustomer(ctx context.Context, params ListTransactionsQuery) ([]models.BookingTransaction, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.BookingTransaction{}).
		Where("customer_id = ?", params.CustomerID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.BookingTransaction
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

// ListProviderTransactionsQuery configures provider earnings queries.
type ListProviderTransactionsQuery struct {
	ProviderID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
	Status     *enums.TransactionStatus
}

func (r *transactionRepository) ListByProvider(ctx context.Context, params ListProviderTransactionsQuery) ([]models.BookingTransaction, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.BookingTransaction{}).
		Where("provider_id = ?", params.ProviderID)
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.BookingTransaction
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
