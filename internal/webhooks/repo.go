package webhooks

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
)

// Repository persists one webhook subscription per gateway.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SaveConfig inserts a new subscription or updates a loaded one. The unique
// gateway_key index rejects a second row for the same gateway.
func (r *Repository) SaveConfig(ctx context.Context, cfg *models.WebhookConfig) error {
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
		return r.db.WithContext(ctx).Create(cfg).Error
	}
	return r.db.WithContext(ctx).Save(cfg).Error
}

// GetConfig returns nil when the gateway has no subscription.
func (r *Repository) GetConfig(ctx context.Context, gatewayKey string) (*models.WebhookConfig, error) {
	var cfg models.WebhookConfig
	err := r.db.WithContext(ctx).Where("gateway_key = ?", gatewayKey).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *Repository) DeleteConfig(ctx context.Context, gatewayKey string) error {
	return r.db.WithContext(ctx).Where("gateway_key = ?", gatewayKey).Delete(&models.WebhookConfig{}).Error
}
