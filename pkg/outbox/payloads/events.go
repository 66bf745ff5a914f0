package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// OrderLine is the ticket part of an order as seen by receipt and
// notification consumers.
type OrderLine struct {
	TicketID  uuid.UUID   `json:"ticket_id"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unit_price"`
}

// OrderCreatedEvent is emitted once per successful checkout.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	GatewayKey     string            `json:"gateway_key"`
	GatewayOrderID *string           `json:"gateway_order_id,omitempty"`
	Status         enums.OrderStatus `json:"status"`
	Currency       enums.Currency    `json:"currency"`
	Subtotal       money.Money       `json:"subtotal"`
	FeesTotal      money.Money       `json:"fees_total"`
	DiscountTotal  money.Money       `json:"discount_total"`
	Total          money.Money       `json:"total"`
	PurchaserName  string            `json:"purchaser_name"`
	PurchaserEmail string            `json:"purchaser_email"`
	Lines          []OrderLine       `json:"lines"`
}

// OrderStatusChangedEvent mirrors one row of the order audit trail.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID          `json:"order_id"`
	GatewayKey string             `json:"gateway_key"`
	From       *enums.OrderStatus `json:"from,omitempty"`
	To         enums.OrderStatus  `json:"to"`
	Actor      string             `json:"actor"`
	Reason     string             `json:"reason,omitempty"`
	ChangedAt  time.Time          `json:"changed_at"`
}
