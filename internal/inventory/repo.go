package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
)

// appliedDelta is the clamped delta evaluated against the row being updated.
// Positive deltas never exceed remaining stock; negative deltas never take
// sales below zero. Every SET expression sees the pre-update row, so the
// same expression yields the same value in each column.
const appliedDelta = `(CASE
		WHEN @delta >= 0 THEN
			CASE WHEN stock IS NULL OR stock >= @delta THEN @delta ELSE stock END
		WHEN sales + @delta < 0 THEN -sales
		ELSE @delta
	END)`

const adjustSalesSQL = `UPDATE tickets SET
	last_applied_delta = ` + appliedDelta + `,
	sales = sales + ` + appliedDelta + `,
	stock = CASE WHEN stock IS NULL THEN NULL ELSE stock - ` + appliedDelta + ` END,
	updated_at = @now
WHERE id = @id
RETURNING sales, stock, last_applied_delta`

// ErrTicketNotFound is returned when an adjustment targets a missing ticket.
var ErrTicketNotFound = errors.New("ticket not found")

type adjustedRow struct {
	Sales            int
	Stock            *int
	LastAppliedDelta int
}

// Repository persists tickets and owns the atomic sales adjustment.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a ticket repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, ticket *models.Ticket) error {
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(ticket).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&tickets).Error
	return tickets, err
}

// AdjustSales applies delta to a ticket's counters in one statement and
// returns the delta that was actually applied.
func (r *Repository) AdjustSales(ctx context.Context, id uuid.UUID, delta int) (*Adjustment, error) {
	var row adjustedRow
	res := r.db.WithContext(ctx).Raw(adjustSalesSQL, map[string]any{
		"delta": delta,
		"id":    id,
		"now":   time.Now().UTC(),
	}).Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrTicketNotFound
	}
	return &Adjustment{
		TicketID:  id,
		Requested: delta,
		Applied:   row.LastAppliedDelta,
		Sales:     row.Sales,
		Stock:     row.Stock,
	}, nil
}
