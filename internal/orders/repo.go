package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
)

// Repository persists orders, their frozen items and the status audit trail.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the order row followed by its items.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&order.Items).Error
}

func (r *Repository) InsertHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.withDetail(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByGatewayOrderID resolves the order a payment network refers to.
func (r *Repository) FindByGatewayOrderID(ctx context.Context, gatewayKey, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.withDetail(ctx).
		Where("gateway_key = ? AND gateway_order_id = ?", gatewayKey, gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *Repository) withDetail(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC").Order("id ASC") })
}

// UpdateStatusIf moves the order to next only while it is still in current.
// Zero rows affected means another caller changed the status first.
func (r *Repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, current, next enums.OrderStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, current).
		Updates(map[string]any{"status": next, "updated_at": at})
	return res.RowsAffected, res.Error
}

// SetGatewayOrderID stores the remote reference once; it never overwrites.
func (r *Repository) SetGatewayOrderID(ctx context.Context, id uuid.UUID, gatewayOrderID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND gateway_order_id IS NULL", id).
		Updates(map[string]any{"gateway_order_id": gatewayOrderID, "updated_at": at})
	return res.RowsAffected, res.Error
}

type listQuery struct {
	status *enums.OrderStatus
	cursor *pagination.Cursor
	limit  int
}

// List returns orders newest first using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if opts.status != nil {
		query = query.Where("status = ?", *opts.status)
	}
	if opts.cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}
	var rows []models.Order
	err := query.Order("created_at DESC").Order("id DESC").Limit(opts.limit).Find(&rows).Error
	return rows, err
}

// FindOpenBefore returns Created or Pending orders older than cutoff, oldest first.
func (r *Repository) FindOpenBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.OrderStatus{enums.OrderStatusCreated, enums.OrderStatusPending}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
