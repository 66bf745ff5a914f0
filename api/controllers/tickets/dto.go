package tickets

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/api/validators"
	"github.com/angelmondragon/boxoffice-backend/internal/inventory"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// CreateTicketRequest is the admin payload for a new ticket type. Omitting
// capacity creates an unlimited ticket.
type CreateTicketRequest struct {
	EventID     uuid.UUID   `json:"eventId" validate:"required"`
	Name        string      `json:"name" validate:"required,max=200"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	Price       money.Money `json:"price"`
	Capacity    *int        `json:"capacity,omitempty" validate:"omitempty,min=0"`
}

func (r CreateTicketRequest) toInput() inventory.CreateTicketInput {
	return inventory.CreateTicketInput{
		EventID:     r.EventID,
		Name:        validators.SanitizeString(r.Name, 200),
		Description: r.Description,
		Price:       r.Price,
		Capacity:    r.Capacity,
	}
}

// TicketResponse is the public ticket representation.
type TicketResponse struct {
	ID          uuid.UUID   `json:"id"`
	EventID     uuid.UUID   `json:"eventId"`
	Name        string      `json:"name"`
	Description *string     `json:"description,omitempty"`
	Price       money.Money `json:"price"`
	Capacity    *int        `json:"capacity,omitempty"`
	Stock       *int        `json:"stock,omitempty"`
	Sales       int         `json:"sales"`
	Unlimited   bool        `json:"unlimited"`
	SoldOut     bool        `json:"soldOut"`
}

func newTicketResponse(t models.Ticket) TicketResponse {
	out := TicketResponse{
		ID:          t.ID,
		EventID:     t.EventID,
		Name:        t.Name,
		Description: t.Description,
		Price:       t.Price,
		Capacity:    t.Capacity,
		Stock:       t.Stock,
		Sales:       t.Sales,
		Unlimited:   t.Unlimited(),
	}
	out.SoldOut = !out.Unlimited && out.Stock != nil && *out.Stock <= 0
	return out
}

// StockResponse is the availability view shown on event pages.
type StockResponse struct {
	TicketID  uuid.UUID `json:"ticketId"`
	Unlimited bool      `json:"unlimited"`
	Stock     *int      `json:"stock,omitempty"`
	Sales     int       `json:"sales"`
	SoldOut   bool      `json:"soldOut"`
}

func newStockResponse(view inventory.StockView) StockResponse {
	out := StockResponse{TicketID: view.TicketID, Unlimited: view.Unlimited, Sales: view.Sales}
	if !view.Unlimited {
		stock := view.Stock
		out.Stock = &stock
		out.SoldOut = stock <= 0
	}
	return out
}
