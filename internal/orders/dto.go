package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
)

// Actors recorded in the audit trail. Gateways and admins use "kind:id".
const (
	ActorBuyer  = "buyer"
	ActorSystem = "system"
)

// GatewayActor names the gateway that drove a transition.
func GatewayActor(key string) string {
	return "gateway:" + key
}

// AdminActor names the admin subject that drove a transition.
func AdminActor(subject string) string {
	return "admin:" + subject
}

// Purchaser is the buyer identity snapshot copied onto the order.
type Purchaser struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	AccountID *string `json:"accountId,omitempty"`
}

// Settlement is what a gateway reports after the order row exists.
type Settlement struct {
	Status         enums.OrderStatus
	GatewayOrderID *string
	Reason         string
}

// SettleFunc runs the gateway-specific step for a freshly created order.
// An error fails the order and releases its reservations.
type SettleFunc func(ctx context.Context, order *models.Order) (*Settlement, error)

// CreateParams carries everything needed to turn a priced cart into an order.
type CreateParams struct {
	GatewayKey    string
	Priced        *modifiers.PricedCart
	Purchaser     Purchaser
	CartSessionID *string
	Settle        SettleFunc
}

// StatusChange requests one state machine transition.
type StatusChange struct {
	OrderID uuid.UUID
	To      enums.OrderStatus
	Actor   string
	Reason  string
}

// ListParams filters the admin order listing.
type ListParams struct {
	Status     *enums.OrderStatus
	Pagination pagination.Params
}

// OrderItemDTO is the read model of one frozen line.
type OrderItemDTO struct {
	Type       enums.OrderItemType `json:"type"`
	TicketID   *uuid.UUID          `json:"ticketId,omitempty"`
	ModifierID *uuid.UUID          `json:"modifierId,omitempty"`
	Name       string              `json:"name"`
	Quantity   int                 `json:"quantity"`
	UnitPrice  money.Money         `json:"unitPrice"`
	Amount     money.Money         `json:"amount"`
}

// StatusEntryDTO is one audit trail row.
type StatusEntryDTO struct {
	From   *enums.OrderStatus `json:"from,omitempty"`
	To     enums.OrderStatus  `json:"to"`
	Actor  string             `json:"actor"`
	Reason *string            `json:"reason,omitempty"`
	At     time.Time          `json:"at"`
}

// OrderDTO is the order read model served to buyers and admins.
type OrderDTO struct {
	ID             uuid.UUID         `json:"id"`
	Status         enums.OrderStatus `json:"status"`
	GatewayKey     string            `json:"gateway"`
	GatewayOrderID *string           `json:"gatewayOrderId,omitempty"`
	Currency       enums.Currency    `json:"currency"`
	Subtotal       money.Money       `json:"subtotal"`
	FeesTotal      money.Money       `json:"feesTotal"`
	DiscountTotal  money.Money       `json:"discountTotal"`
	Total          money.Money       `json:"total"`
	Purchaser      Purchaser         `json:"purchaser"`
	Items          []OrderItemDTO    `json:"items,omitempty"`
	History        []StatusEntryDTO  `json:"history,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// OrderList wraps a page of orders plus the next cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// ToDTO maps an order row, including loaded items and history.
func ToDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:             order.ID,
		Status:         order.Status,
		GatewayKey:     order.GatewayKey,
		GatewayOrderID: order.GatewayOrderID,
		Currency:       order.Currency,
		Subtotal:       order.Subtotal,
		FeesTotal:      order.FeesTotal,
		DiscountTotal:  order.DiscountTotal,
		Total:          order.Total,
		Purchaser: Purchaser{
			Name:      order.PurchaserName,
			Email:     order.PurchaserEmail,
			AccountID: order.PurchaserAccountID,
		},
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			Type:       item.ItemType,
			TicketID:   item.TicketID,
			ModifierID: item.ModifierID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			Amount:     item.Amount,
		})
	}
	for _, entry := range order.History {
		dto.History = append(dto.History, StatusEntryDTO{
			From:   entry.FromStatus,
			To:     entry.ToStatus,
			Actor:  entry.Actor,
			Reason: entry.Reason,
			At:     entry.CreatedAt,
		})
	}
	return dto
}

func normalizePurchaser(p Purchaser) Purchaser {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if p.AccountID != nil && strings.TrimSpace(*p.AccountID) == "" {
		p.AccountID = nil
	}
	return p
}
