package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
)

type ticketRepository interface {
	WithTx(tx *gorm.DB) *Repository
	Create(ctx context.Context, ticket *models.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error)
	AdjustSales(ctx context.Context, id uuid.UUID, delta int) (*Adjustment, error)
}

type stockCache interface {
	Get(ctx context.Context, ticketID uuid.UUID) (*StockView, bool, error)
	Put(ctx context.Context, view StockView) error
	Invalidate(ctx context.Context, ticketIDs ...uuid.UUID) error
}

// ServiceParams configure the inventory service. Cache and Metrics are optional.
type ServiceParams struct {
	Logger  *logger.Logger
	Repo    ticketRepository
	Cache   stockCache
	Metrics *metrics.LedgerMetrics
}

// Service is the ticket catalog plus the inventory ledger. AdjustSales is
// the only path that changes stock or sales.
type Service struct {
	logg    *logger.Logger
	repo    ticketRepository
	cache   stockCache
	metrics *metrics.LedgerMetrics
}

// NewService builds the inventory service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	return &Service{
		logg:    params.Logger,
		repo:    params.Repo,
		cache:   params.Cache,
		metrics: params.Metrics,
	}, nil
}

// CreateTicket stores a ticket with stock initialized to its capacity.
func (s *Service) CreateTicket(ctx context.Context, input CreateTicketInput) (*models.Ticket, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket name is required")
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket price must not be negative")
	}
	ticket := &models.Ticket{
		EventID:     input.EventID,
		Name:        name,
		Description: input.Description,
		Price:       input.Price,
	}
	if input.Capacity != nil {
		if *input.Capacity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket capacity must not be negative")
		}
		capacity := *input.Capacity
		stock := capacity
		ticket.Capacity = &capacity
		ticket.Stock = &stock
	}
	if err := s.repo.Create(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ticket")
	}
	return ticket, nil
}

// GetTicket is the catalog lookup used by carts and checkout.
func (s *Service) GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found").WithDetails(map[string]any{"ticketId": id})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load ticket")
	}
	return ticket, nil
}

func (s *Service) ListTickets(ctx context.Context, eventID uuid.UUID) ([]models.Ticket, error) {
	tickets, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list tickets")
	}
	return tickets, nil
}

// Stock returns the cached counters for a ticket, loading them on a miss.
// The view can be up to one cache TTL stale and is for display only.
func (s *Service) Stock(ctx context.Context, id uuid.UUID) (*StockView, error) {
	if s.cache != nil {
		view, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logg.Warn(s.logg.WithField(s.logg.WithTicketID(ctx, id.String()), "error", err.Error()), "stock cache read failed")
		} else if ok {
			return view, nil
		}
	}
	ticket, err := s.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	view := viewOf(*ticket)
	if s.cache != nil {
		if err := s.cache.Put(ctx, view); err != nil {
			s.logg.Warn(s.logg.WithField(s.logg.WithTicketID(ctx, id.String()), "error", err.Error()), "stock cache write failed")
		}
	}
	return &view, nil
}

// AdjustSales applies delta atomically and invalidates the cached view.
func (s *Service) AdjustSales(ctx context.Context, ticketID uuid.UUID, delta int) (*Adjustment, error) {
	adj, err := s.adjust(ctx, s.repo, ticketID, delta)
	if err != nil {
		return nil, err
	}
	s.InvalidateStock(ctx, ticketID)
	return adj, nil
}

// AdjustSalesTx applies delta inside the caller's transaction. The caller
// must call InvalidateStock once the transaction commits.
func (s *Service) AdjustSalesTx(ctx context.Context, tx *gorm.DB, ticketID uuid.UUID, delta int) (*Adjustment, error) {
	return s.adjust(ctx, s.repo.WithTx(tx), ticketID, delta)
}

func (s *Service) adjust(ctx context.Context, repo ticketRepository, ticketID uuid.UUID, delta int) (*Adjustment, error) {
	adj, err := repo.AdjustSales(ctx, ticketID, delta)
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found").WithDetails(map[string]any{"ticketId": ticketID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "adjust ticket sales")
	}
	s.metrics.ObserveAdjustment(adj.Requested, adj.Applied)
	if adj.Clamped() {
		logCtx := s.logg.WithFields(s.logg.WithTicketID(ctx, ticketID.String()), map[string]any{
			"requested": adj.Requested,
			"applied":   adj.Applied,
			"sales":     adj.Sales,
		})
		s.logg.Warn(logCtx, "ticket sales adjustment clamped")
	}
	return adj, nil
}

// InvalidateStock drops cached views. Failures are only logged; stale
// entries expire with the cache TTL.
func (s *Service) InvalidateStock(ctx context.Context, ticketIDs ...uuid.UUID) {
	if s.cache == nil || len(ticketIDs) == 0 {
		return
	}
	if err := s.cache.Invalidate(ctx, ticketIDs...); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "stock cache invalidation failed")
	}
}

func viewOf(ticket models.Ticket) StockView {
	view := StockView{TicketID: ticket.ID, Sales: ticket.Sales, Unlimited: ticket.Unlimited()}
	if ticket.Stock != nil {
		view.Stock = *ticket.Stock
	}
	return view
}
