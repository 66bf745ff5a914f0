package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookConfig persists the remote webhook subscription registered for a gateway.
type WebhookConfig struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	GatewayKey string    `gorm:"column:gateway_key;not null;uniqueIndex"`
	RemoteID   string    `gorm:"column:remote_id;not null"`
	URL        string    `gorm:"column:url;not null"`
	EventTypes []string  `gorm:"column:event_types;type:jsonb;serializer:json"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
