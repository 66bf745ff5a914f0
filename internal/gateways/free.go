package gateways

import (
	"context"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// Free completes zero-total orders synchronously.
type Free struct {
	orders orderCreator
}

func NewFree(orders orderCreator) *Free {
	return &Free{orders: orders}
}

func (g *Free) Key() string       { return KeyFree }
func (g *Free) IsEnabled() bool   { return true }
func (g *Free) IsConnected() bool { return true }
func (g *Free) ShouldShow() bool  { return true }

func (g *Free) IsActive(priced *modifiers.PricedCart) bool {
	return priced != nil && !priced.IsEmpty() && priced.Total.IsZero()
}

func (g *Free) CreateOrder(ctx context.Context, req OrderRequest) (*Placement, error) {
	if req.Priced != nil && !req.Priced.Total.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodePricingInconsistency, "free checkout requires a zero total").
			WithDetails(map[string]any{"total": req.Priced.Total.String()})
	}
	order, err := g.orders.CreateFromCart(ctx, req.createParams(KeyFree, func(context.Context, *models.Order) (*orders.Settlement, error) {
		return &orders.Settlement{Status: enums.OrderStatusCompleted, Reason: "no payment due"}, nil
	}))
	if err != nil {
		return nil, err
	}
	return &Placement{Order: order}, nil
}
