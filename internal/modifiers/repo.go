package modifiers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
)

// Repository persists order modifiers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a modifiers repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, mod *models.OrderModifier) error {
	if mod.ID == uuid.Nil {
		mod.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(mod).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderModifier, error) {
	var mod models.OrderModifier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&mod).Error; err != nil {
		return nil, err
	}
	return &mod, nil
}

// FindByCode looks up a coupon by its case-insensitive code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.OrderModifier, error) {
	var mod models.OrderModifier
	err := r.db.WithContext(ctx).
		Where("kind = ?", enums.ModifierKindCoupon).
		Where("UPPER(code) = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&mod).Error
	if err != nil {
		return nil, err
	}
	return &mod, nil
}

func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.OrderModifier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var mods []models.OrderModifier
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&mods).Error
	return mods, err
}

// ListActiveFees returns active fees whose validity window contains now.
func (r *Repository) ListActiveFees(ctx context.Context, now time.Time) ([]models.OrderModifier, error) {
	var mods []models.OrderModifier
	err := r.db.WithContext(ctx).
		Where("kind = ? AND active = ?", enums.ModifierKindFee, true).
		Where("(starts_at IS NULL OR starts_at <= ?)", now).
		Where("(ends_at IS NULL OR ends_at > ?)", now).
		Order("priority ASC").
		Order("id ASC").
		Find(&mods).Error
	return mods, err
}

// List returns modifiers filtered by kind when kind is set.
func (r *Repository) List(ctx context.Context, kind *enums.ModifierKind) ([]models.OrderModifier, error) {
	query := r.db.WithContext(ctx)
	if kind != nil {
		query = query.Where("kind = ?", *kind)
	}
	var mods []models.OrderModifier
	err := query.Order("kind ASC").Order("priority ASC").Order("id ASC").Find(&mods).Error
	return mods, err
}

func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderModifier{}).
		Where("id = ?", id).
		Updates(map[string]any{"active": active, "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}
