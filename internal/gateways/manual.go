package gateways

import (
	"context"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// Manual takes offline payment. Orders wait in Pending until an admin
// completes or fails them.
type Manual struct {
	orders  orderCreator
	enabled bool
}

func NewManual(orders orderCreator, enabled bool) *Manual {
	return &Manual{orders: orders, enabled: enabled}
}

func (g *Manual) Key() string       { return KeyManual }
func (g *Manual) IsEnabled() bool   { return g.enabled }
func (g *Manual) IsConnected() bool { return true }
func (g *Manual) ShouldShow() bool  { return g.enabled }

func (g *Manual) IsActive(priced *modifiers.PricedCart) bool {
	return hasPositiveTotal(priced)
}

func (g *Manual) CreateOrder(ctx context.Context, req OrderRequest) (*Placement, error) {
	if !hasPositiveTotal(req.Priced) {
		return nil, pkgerrors.New(pkgerrors.CodePricingInconsistency, "manual payment requires a positive total")
	}
	order, err := g.orders.CreateFromCart(ctx, req.createParams(KeyManual, func(context.Context, *models.Order) (*orders.Settlement, error) {
		return &orders.Settlement{Status: enums.OrderStatusPending, Reason: "awaiting offline payment"}, nil
	}))
	if err != nil {
		return nil, err
	}
	return &Placement{Order: order}, nil
}
