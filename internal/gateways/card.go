package gateways

import (
	"context"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// CardProcessor charges and refunds cards on one payment network.
type CardProcessor interface {
	Name() string
	// Charge captures the order total and returns the network's payment id.
	Charge(ctx context.Context, order *models.Order, source string) (string, error)
	Refund(ctx context.Context, order *models.Order) error
}

// Card confirms synchronously: the order goes from Created straight to
// Completed once the processor accepts the charge.
type Card struct {
	orders    orderCreator
	processor CardProcessor
}

// NewCard builds the card gateway. A nil processor leaves it disconnected.
func NewCard(orders orderCreator, processor CardProcessor) *Card {
	return &Card{orders: orders, processor: processor}
}

func (g *Card) Key() string       { return KeyCard }
func (g *Card) IsEnabled() bool   { return g.processor != nil }
func (g *Card) IsConnected() bool { return g.processor != nil }
func (g *Card) ShouldShow() bool  { return g.IsConnected() }

func (g *Card) IsActive(priced *modifiers.PricedCart) bool {
	return g.IsConnected() && hasPositiveTotal(priced)
}

func (g *Card) CreateOrder(ctx context.Context, req OrderRequest) (*Placement, error) {
	if !g.IsConnected() {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "card processor is not configured")
	}
	if !hasPositiveTotal(req.Priced) {
		return nil, pkgerrors.New(pkgerrors.CodePricingInconsistency, "card payment requires a positive total")
	}
	if req.PaymentSource == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}
	order, err := g.orders.CreateFromCart(ctx, req.createParams(KeyCard, func(ctx context.Context, order *models.Order) (*orders.Settlement, error) {
		paymentID, err := g.processor.Charge(ctx, order, req.PaymentSource)
		if err != nil {
			return nil, err
		}
		return &orders.Settlement{
			Status:         enums.OrderStatusCompleted,
			GatewayOrderID: &paymentID,
			Reason:         "charged via " + g.processor.Name(),
		}, nil
	}))
	if err != nil {
		return nil, err
	}
	return &Placement{Order: order}, nil
}

func (g *Card) Refund(ctx context.Context, order *models.Order) error {
	if !g.IsConnected() {
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "card processor is not configured")
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeConflict, "order has no card payment to refund")
	}
	return g.processor.Refund(ctx, order)
}
