package gateways

import (
	"context"
	"strings"

	sq "github.com/square/square-go-sdk"
	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/square"
	"github.com/angelmondragon/boxoffice-backend/pkg/stripe"
)

const (
	ProcessorSquare = "square"
	ProcessorStripe = "stripe"
)

type squarePayments interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
	RefundPayment(ctx context.Context, params square.RefundParams) (string, error)
}

// SquareProcessor charges card nonces through the Square Payments API.
type SquareProcessor struct {
	client squarePayments
}

func NewSquareProcessor(client squarePayments) *SquareProcessor {
	return &SquareProcessor{client: client}
}

func (p *SquareProcessor) Name() string { return ProcessorSquare }

func (p *SquareProcessor) Charge(ctx context.Context, order *models.Order, source string) (string, error) {
	payment, err := p.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    order.Total.MinorUnits(),
		Currency:       order.Currency.String(),
		SourceID:       source,
		IdempotencyKey: "order-" + order.ID.String(),
		BuyerEmail:     order.PurchaserEmail,
		ReferenceID:    order.ID.String(),
	})
	if err != nil {
		return "", err
	}
	if payment == nil || payment.GetID() == nil {
		return "", pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "square returned no payment")
	}
	if status := payment.GetStatus(); status == nil || !strings.EqualFold(*status, "COMPLETED") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "card payment was not completed")
	}
	return *payment.GetID(), nil
}

func (p *SquareProcessor) Refund(ctx context.Context, order *models.Order) error {
	_, err := p.client.RefundPayment(ctx, square.RefundParams{
		PaymentID:      *order.GatewayOrderID,
		AmountCents:    order.Total.MinorUnits(),
		Currency:       order.Currency.String(),
		Reason:         "order refunded",
		IdempotencyKey: "refund-" + order.ID.String(),
	})
	return err
}

type stripePayments interface {
	Charge(ctx context.Context, params stripe.ChargeParams) (*stripego.PaymentIntent, error)
	Refund(ctx context.Context, paymentIntentID, idempotencyKey string) (string, error)
}

// StripeProcessor confirms PaymentIntents with a saved payment method.
type StripeProcessor struct {
	client stripePayments
}

func NewStripeProcessor(client stripePayments) *StripeProcessor {
	return &StripeProcessor{client: client}
}

func (p *StripeProcessor) Name() string { return ProcessorStripe }

func (p *StripeProcessor) Charge(ctx context.Context, order *models.Order, source string) (string, error) {
	intent, err := p.client.Charge(ctx, stripe.ChargeParams{
		AmountCents:    order.Total.MinorUnits(),
		Currency:       order.Currency.String(),
		PaymentMethod:  source,
		IdempotencyKey: "order-" + order.ID.String(),
		Description:    "Tickets order " + order.ID.String(),
		Metadata:       map[string]string{"order_id": order.ID.String()},
	})
	if err != nil {
		return "", err
	}
	return intent.ID, nil
}

func (p *StripeProcessor) Refund(ctx context.Context, order *models.Order) error {
	_, err := p.client.Refund(ctx, *order.GatewayOrderID, "refund-"+order.ID.String())
	return err
}
