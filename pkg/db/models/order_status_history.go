package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
)

// OrderStatusHistory is the append-only audit trail of order transitions.
type OrderStatusHistory struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null"`
	FromStatus *enums.OrderStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.OrderStatus  `gorm:"column:to_status;type:text;not null"`
	Actor      string             `gorm:"column:actor;not null"`
	Reason     *string            `gorm:"column:reason"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the singular history table name.
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
