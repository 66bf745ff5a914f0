package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// OrderItem is a frozen copy of a cart line. Coupon amounts are negative.
type OrderItem struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	Position   int                 `gorm:"column:position;not null"`
	ItemType   enums.OrderItemType `gorm:"column:item_type;type:text;not null"`
	TicketID   *uuid.UUID          `gorm:"column:ticket_id;type:uuid"`
	ModifierID *uuid.UUID          `gorm:"column:modifier_id;type:uuid"`
	Name       string              `gorm:"column:name;not null"`
	Quantity   int                 `gorm:"column:quantity;not null;default:0"`
	UnitPrice  money.Money         `gorm:"column:unit_price;type:numeric;not null"`
	Amount     money.Money         `gorm:"column:amount;type:numeric;not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}
