package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/gateways"
	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const sessionLockTTL = 2 * time.Minute

type cartQuoter interface {
	Quote(ctx context.Context, sessionID string) (*cart.Quote, error)
	Clear(ctx context.Context, sessionID string) error
}

type gatewayRegistry interface {
	Get(key string) (gateways.Gateway, error)
	Available(priced *modifiers.PricedCart) []gateways.Gateway
}

type orderStatus interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ModifyStatus(ctx context.Context, change orders.StatusChange) (*models.Order, error)
}

// sessionLocker serializes checkouts per cart session across instances.
type sessionLocker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// Service executes checkout orchestration.
type Service interface {
	Checkout(ctx context.Context, input Input) (*gateways.Placement, error)
	ListGateways(ctx context.Context, sessionID string) ([]GatewayOption, error)
	RefundOrder(ctx context.Context, orderID uuid.UUID, actor string) (*models.Order, error)
}

// Input is one buyer checkout attempt.
type Input struct {
	SessionID     string
	GatewayKey    string
	Purchaser     orders.Purchaser
	PaymentSource string
}

// GatewayOption is a gateway the buyer can pick.
type GatewayOption struct {
	Key                   string `json:"key"`
	RequiresPaymentSource bool   `json:"requiresPaymentSource"`
}

type ServiceParams struct {
	Logger   *logger.Logger
	Carts    cartQuoter
	Gateways gatewayRegistry
	Orders   orderStatus
	Locks    sessionLocker
}

type service struct {
	logg     *logger.Logger
	carts    cartQuoter
	gateways gatewayRegistry
	orders   orderStatus
	locks    sessionLocker
}

// NewService builds the checkout service. Locks is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Gateways == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	return &service{
		logg:     params.Logger,
		carts:    params.Carts,
		gateways: params.Gateways,
		orders:   params.Orders,
		locks:    params.Locks,
	}, nil
}

// Checkout prices the session cart, places the order through the chosen
// gateway and discards the cart once an order exists.
func (s *service) Checkout(ctx context.Context, input Input) (*gateways.Placement, error) {
	sessionID, err := cart.ValidateSessionID(input.SessionID)
	if err != nil {
		return nil, err
	}
	gatewayKey := strings.TrimSpace(input.GatewayKey)
	if gatewayKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway is required")
	}
	ctx = s.logg.WithGateway(ctx, gatewayKey)

	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	quote, err := s.carts.Quote(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if quote.Priced == nil || quote.Priced.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	gw, err := s.gateways.Get(gatewayKey)
	if err != nil {
		return nil, err
	}
	if err := gateways.Usable(gw, quote.Priced); err != nil {
		return nil, err
	}

	placement, err := gw.CreateOrder(ctx, gateways.OrderRequest{
		Priced:        quote.Priced,
		Purchaser:     input.Purchaser,
		CartSessionID: &sessionID,
		PaymentSource: strings.TrimSpace(input.PaymentSource),
	})
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "checkout failed")
		return nil, err
	}

	if err := s.carts.Clear(context.WithoutCancel(ctx), sessionID); err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, placement.Order.ID.String()), "clear cart after checkout", err)
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id": placement.Order.ID.String(),
		"status":   string(placement.Order.Status),
		"total":    placement.Order.Total.String(),
	}), "checkout completed")
	return placement, nil
}

func (s *service) lock(ctx context.Context, sessionID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}
	key := s.locks.LockKey("checkout:" + sessionID)
	ok, err := s.locks.SetNX(ctx, key, "1", sessionLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress for this cart")
	}
	return func() {
		if err := s.locks.Del(context.WithoutCancel(ctx), key); err != nil {
			s.logg.Error(ctx, "release checkout lock", err)
		}
	}, nil
}

// ListGateways returns the usable gateways for the session's current cart,
// in registry order.
func (s *service) ListGateways(ctx context.Context, sessionID string) ([]GatewayOption, error) {
	quote, err := s.carts.Quote(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	available := s.gateways.Available(quote.Priced)
	out := make([]GatewayOption, 0, len(available))
	for _, gw := range available {
		out = append(out, GatewayOption{
			Key:                   gw.Key(),
			RequiresPaymentSource: gw.Key() == gateways.KeyCard,
		})
	}
	return out, nil
}

// RefundOrder returns the money through the order's gateway when it can,
// then moves the order to Refunded, which releases its stock. Refunding a
// refunded order is a no-op.
func (s *service) RefundOrder(ctx context.Context, orderID uuid.UUID, actor string) (*models.Order, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusRefunded {
		return order, nil
	}
	if !order.Status.CanTransitionTo(enums.OrderStatusRefunded) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "only completed orders can be refunded").
			WithDetails(map[string]any{"from": string(order.Status), "to": string(enums.OrderStatusRefunded)})
	}
	ctx = s.logg.WithOrderID(s.logg.WithGateway(ctx, order.GatewayKey), order.ID.String())

	gw, err := s.gateways.Get(order.GatewayKey)
	if err != nil {
		return nil, err
	}
	if refunder, ok := gw.(gateways.Refunder); ok {
		if err := refunder.Refund(ctx, order); err != nil {
			return nil, err
		}
		s.logg.Info(ctx, "gateway refund issued")
	}
	return s.orders.ModifyStatus(ctx, orders.StatusChange{
		OrderID: order.ID,
		To:      enums.OrderStatusRefunded,
		Actor:   actor,
		Reason:  "refund requested",
	})
}
