package inventory

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/pkg/money"
)

// CreateTicketInput defines a new ticket type for an event. A nil Capacity
// means the ticket never sells out.
type CreateTicketInput struct {
	EventID     uuid.UUID
	Name        string
	Description *string
	Price       money.Money
	Capacity    *int
}

// Adjustment reports the outcome of one atomic ledger update.
type Adjustment struct {
	TicketID  uuid.UUID `json:"ticketId"`
	Requested int       `json:"requested"`
	Applied   int       `json:"applied"`
	Sales     int       `json:"sales"`
	Stock     *int      `json:"stock"`
}

// Clamped reports whether the requested delta was reduced. It is a soft
// signal: callers decide whether a partial reservation is acceptable.
func (a Adjustment) Clamped() bool {
	return a.Applied != a.Requested
}

// StockView is the cached read model of a ticket's counters.
type StockView struct {
	TicketID  uuid.UUID `json:"ticketId"`
	Unlimited bool      `json:"unlimited"`
	Stock     int       `json:"stock"`
	Sales     int       `json:"sales"`
}
