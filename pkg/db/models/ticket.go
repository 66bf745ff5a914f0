package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// Ticket is a sellable seat type attached to a host event. Capacity and
// Stock are NULL for unlimited tickets. Sales, Stock and LastAppliedDelta
// are only written by the inventory ledger's single UPDATE statement.
type Ticket struct {
	ID               uuid.UUID   `gorm:"column:id;type:uuid;primaryKey"`
	EventID          uuid.UUID   `gorm:"column:event_id;type:uuid;not null"`
	Name             string      `gorm:"column:name;not null"`
	Description      *string     `gorm:"column:description"`
	Price            money.Money `gorm:"column:price;type:numeric(12,2);not null"`
	Capacity         *int        `gorm:"column:capacity"`
	Stock            *int        `gorm:"column:stock"`
	Sales            int         `gorm:"column:sales;not null;default:0"`
	LastAppliedDelta int         `gorm:"column:last_applied_delta;not null;default:0"`
	CreatedAt        time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}

// Unlimited reports whether the ticket has no capacity ceiling.
func (t Ticket) Unlimited() bool {
	return t.Capacity == nil
}
