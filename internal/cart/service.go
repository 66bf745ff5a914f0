package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const maxSessionIDLength = 128

type ticketCatalog interface {
	GetTicket(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
}

type pricer interface {
	CouponByCode(ctx context.Context, code string) (*models.OrderModifier, error)
	PriceCart(ctx context.Context, tickets []modifiers.TicketLine, couponIDs []uuid.UUID) (*modifiers.PricedCart, error)
}

type cartRepository interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// Quote pairs a cart with its current pricing.
type Quote struct {
	Cart   *Cart                 `json:"cart"`
	Priced *modifiers.PricedCart `json:"priced"`
}

type ServiceParams struct {
	Logger  *logger.Logger
	Store   cartRepository
	Tickets ticketCatalog
	Pricer  pricer
}

// Service exposes the buyer cart operations.
type Service struct {
	logg    *logger.Logger
	store   cartRepository
	tickets ticketCatalog
	pricer  pricer
	now     func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if params.Tickets == nil {
		return nil, fmt.Errorf("ticket catalog required")
	}
	if params.Pricer == nil {
		return nil, fmt.Errorf("pricer required")
	}
	return &Service{
		logg:    params.Logger,
		store:   params.Store,
		tickets: params.Tickets,
		pricer:  params.Pricer,
		now:     time.Now,
	}, nil
}

// ValidateSessionID rejects blank or oversized session identifiers.
func ValidateSessionID(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	if len(sessionID) > maxSessionIDLength {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session is too long")
	}
	return sessionID, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Cart, error) {
	sessionID, err := ValidateSessionID(sessionID)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return c, nil
}

// AddTicket looks the ticket up in the catalog and adds it with its current price.
func (s *Service) AddTicket(ctx context.Context, sessionID string, ticketID uuid.UUID, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	ticket, err := s.tickets.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.AddTicket(*ticket, quantity)
		return nil
	})
}

// RemoveTicket drops quantity units; zero or more than present removes the line.
func (s *Service) RemoveTicket(ctx context.Context, sessionID string, ticketID uuid.UUID, quantity int) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if !c.RemoveTicket(ticketID, quantity) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "ticket not in cart").WithDetails(map[string]any{"ticketId": ticketID})
		}
		return nil
	})
}

func (s *Service) AddCoupon(ctx context.Context, sessionID, code string) (*Cart, error) {
	coupon, err := s.pricer.CouponByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.AddCoupon(*coupon)
		return nil
	})
}

func (s *Service) RemoveCoupon(ctx context.Context, sessionID string, modifierID uuid.UUID) (*Cart, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if !c.RemoveCoupon(modifierID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "coupon not in cart")
		}
		return nil
	})
}

// Clear discards the stored cart.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	sessionID, err := ValidateSessionID(sessionID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

// Quote prices the session's current cart.
func (s *Service) Quote(ctx context.Context, sessionID string) (*Quote, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	priced, err := s.pricer.PriceCart(ctx, c.Items(), c.CouponIDs())
	if err != nil {
		return nil, err
	}
	return &Quote{Cart: c, Priced: priced}, nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(c *Cart) error) (*Cart, error) {
	c, err := s.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return c, nil
}
