package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// Order is the immutable snapshot produced from a priced cart. Status is the
// only column that changes after creation.
type Order struct {
	ID                 uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	GatewayKey         string               `gorm:"column:gateway_key;not null"`
	GatewayOrderID     *string              `gorm:"column:gateway_order_id"`
	Status             enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'created'"`
	Currency           enums.Currency       `gorm:"column:currency;type:text;not null;default:'USD'"`
	Subtotal           money.Money          `gorm:"column:subtotal;type:numeric;not null"`
	FeesTotal          money.Money          `gorm:"column:fees_total;type:numeric;not null"`
	DiscountTotal      money.Money          `gorm:"column:discount_total;type:numeric;not null"`
	Total              money.Money          `gorm:"column:total;type:numeric;not null"`
	PurchaserName      string               `gorm:"column:purchaser_name;not null"`
	PurchaserEmail     string               `gorm:"column:purchaser_email;not null"`
	PurchaserAccountID *string              `gorm:"column:purchaser_account_id"`
	CartSessionID      *string              `gorm:"column:cart_session_id"`
	Items              []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History            []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// TicketLines returns the ticket items only.
func (o Order) TicketLines() []OrderItem {
	lines := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.ItemType == enums.OrderItemTicket && item.TicketID != nil {
			lines = append(lines, item)
		}
	}
	return lines
}
