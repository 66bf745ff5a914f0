package cart

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// TicketItem is one ticket line with the unit price captured when it was added.
type TicketItem struct {
	TicketID  uuid.UUID   `json:"ticketId"`
	EventID   uuid.UUID   `json:"eventId"`
	Name      string      `json:"name"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
}

// CouponItem records a coupon the buyer applied. Its amount is derived at
// pricing time and never stored.
type CouponItem struct {
	ModifierID uuid.UUID `json:"modifierId"`
	Code       string    `json:"code"`
}

// Cart is the mutable staging area for one buyer session. It holds no
// payment state and never touches inventory.
type Cart struct {
	SessionID string       `json:"sessionId"`
	Tickets   []TicketItem `json:"tickets"`
	Coupons   []CouponItem `json:"coupons"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// New returns an empty cart for the session.
func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID}
}

// AddTicket adds quantity units of ticket, merging into an existing line.
// The unit price is snapshotted on first add.
func (c *Cart) AddTicket(ticket models.Ticket, quantity int) {
	if quantity <= 0 {
		return
	}
	for i := range c.Tickets {
		if c.Tickets[i].TicketID == ticket.ID {
			c.Tickets[i].Quantity += quantity
			return
		}
	}
	c.Tickets = append(c.Tickets, TicketItem{
		TicketID:  ticket.ID,
		EventID:   ticket.EventID,
		Name:      ticket.Name,
		Quantity:  quantity,
		UnitPrice: ticket.Price,
	})
}

// RemoveTicket subtracts quantity units; the line is dropped at zero.
// It reports whether the ticket was in the cart.
func (c *Cart) RemoveTicket(ticketID uuid.UUID, quantity int) bool {
	for i := range c.Tickets {
		if c.Tickets[i].TicketID != ticketID {
			continue
		}
		if quantity <= 0 || quantity >= c.Tickets[i].Quantity {
			c.Tickets = append(c.Tickets[:i], c.Tickets[i+1:]...)
		} else {
			c.Tickets[i].Quantity -= quantity
		}
		return true
	}
	return false
}

// QuantityOf returns the units of ticketID currently in the cart.
func (c *Cart) QuantityOf(ticketID uuid.UUID) int {
	for _, item := range c.Tickets {
		if item.TicketID == ticketID {
			return item.Quantity
		}
	}
	return 0
}

// AddCoupon applies a coupon once; re-adding is a no-op.
func (c *Cart) AddCoupon(coupon models.OrderModifier) {
	for _, existing := range c.Coupons {
		if existing.ModifierID == coupon.ID {
			return
		}
	}
	item := CouponItem{ModifierID: coupon.ID}
	if coupon.Code != nil {
		item.Code = *coupon.Code
	}
	c.Coupons = append(c.Coupons, item)
}

func (c *Cart) RemoveCoupon(modifierID uuid.UUID) bool {
	for i, existing := range c.Coupons {
		if existing.ModifierID == modifierID {
			c.Coupons = append(c.Coupons[:i], c.Coupons[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart but keeps the session.
func (c *Cart) Clear() {
	c.Tickets = nil
	c.Coupons = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Tickets) == 0
}

// Items returns the ticket lines in insertion order, ready for pricing.
func (c *Cart) Items() []modifiers.TicketLine {
	lines := make([]modifiers.TicketLine, 0, len(c.Tickets))
	for _, item := range c.Tickets {
		lines = append(lines, modifiers.TicketLine{
			TicketID:  item.TicketID,
			EventID:   item.EventID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return lines
}

// CouponIDs returns the applied coupon ids in the order they were added.
func (c *Cart) CouponIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Coupons))
	for _, coupon := range c.Coupons {
		ids = append(ids, coupon.ModifierID)
	}
	return ids
}
