package gateways

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/paypal"
)

type paypalAPI interface {
	CreateOrder(ctx context.Context, params paypal.CreateOrderParams) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, id string) (*paypal.Order, error)
	RefundOrder(ctx context.Context, orderID string) (string, error)
	VerifyWebhookSignature(ctx context.Context, webhookID string, headers http.Header, rawEvent []byte) bool
	CreateWebhook(ctx context.Context, target string, events []string) (*paypal.Webhook, error)
	UpdateWebhook(ctx context.Context, id string, events []string) (*paypal.Webhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// WebhookConfigs looks up the subscription registered for a gateway.
type WebhookConfigs interface {
	GetConfig(ctx context.Context, gatewayKey string) (*models.WebhookConfig, error)
}

// PayPal creates a hosted PayPal order and leaves the local order Pending
// until a verified webhook confirms the capture.
type PayPal struct {
	orders        orderCreator
	client        paypalAPI
	enabled       bool
	verifyTimeout time.Duration
	configs       WebhookConfigs
}

// NewPayPal builds the gateway. A nil client leaves it disconnected.
func NewPayPal(orders orderCreator, client paypalAPI, enabled bool, verifyTimeout time.Duration) *PayPal {
	return &PayPal{orders: orders, client: client, enabled: enabled, verifyTimeout: verifyTimeout}
}

// UseWebhookConfigs makes verification check deliveries against the
// registered subscription instead of the configured webhook id.
func (g *PayPal) UseWebhookConfigs(configs WebhookConfigs) {
	g.configs = configs
}

func (g *PayPal) Key() string       { return KeyPayPal }
func (g *PayPal) IsEnabled() bool   { return g.enabled }
func (g *PayPal) IsConnected() bool { return g.client != nil }
func (g *PayPal) ShouldShow() bool  { return g.enabled && g.IsConnected() }

func (g *PayPal) IsActive(priced *modifiers.PricedCart) bool {
	return g.IsConnected() && hasPositiveTotal(priced)
}

func (g *PayPal) CreateOrder(ctx context.Context, req OrderRequest) (*Placement, error) {
	if !g.IsConnected() {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal is not configured")
	}
	if !hasPositiveTotal(req.Priced) {
		return nil, pkgerrors.New(pkgerrors.CodePricingInconsistency, "paypal payment requires a positive total")
	}
	var approveURL string
	order, err := g.orders.CreateFromCart(ctx, req.createParams(KeyPayPal, func(ctx context.Context, order *models.Order) (*orders.Settlement, error) {
		remote, err := g.client.CreateOrder(ctx, paypal.CreateOrderParams{
			ReferenceID: order.ID.String(),
			Amount:      order.Total.Decimal().StringFixed(2),
			Currency:    order.Currency.String(),
			Description: "Tickets order " + order.ID.String(),
		})
		if err != nil {
			return nil, err
		}
		approveURL = remote.ApproveURL()
		return &orders.Settlement{
			Status:         enums.OrderStatusPending,
			GatewayOrderID: &remote.ID,
			Reason:         "awaiting paypal approval",
		}, nil
	}))
	if err != nil {
		return nil, err
	}
	return &Placement{Order: order, ApproveURL: approveURL}, nil
}

// Capture finishes an order the buyer approved.
func (g *PayPal) Capture(ctx context.Context, remoteOrderID string) error {
	if !g.IsConnected() {
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal is not configured")
	}
	_, err := g.client.CaptureOrder(ctx, remoteOrderID)
	return err
}

func (g *PayPal) Refund(ctx context.Context, order *models.Order) error {
	if !g.IsConnected() {
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal is not configured")
	}
	if order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
		return pkgerrors.New(pkgerrors.CodeConflict, "order has no paypal reference")
	}
	_, err := g.client.RefundOrder(ctx, *order.GatewayOrderID)
	return err
}

// VerifySignature round-trips the delivery to PayPal. It fails closed when
// the gateway is disconnected or the verifier does not answer in time.
func (g *PayPal) VerifySignature(ctx context.Context, headers http.Header, rawEvent []byte) bool {
	if !g.IsConnected() {
		return false
	}
	if g.verifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.verifyTimeout)
		defer cancel()
	}
	return g.client.VerifyWebhookSignature(ctx, g.registeredWebhookID(ctx), headers, rawEvent)
}

// registeredWebhookID returns the stored remote id, or "" so the client
// falls back to its configured id.
func (g *PayPal) registeredWebhookID(ctx context.Context) string {
	if g.configs == nil {
		return ""
	}
	cfg, err := g.configs.GetConfig(ctx, KeyPayPal)
	if err != nil || cfg == nil {
		return ""
	}
	return cfg.RemoteID
}

func (g *PayPal) CreateWebhook(ctx context.Context, url string, events []string) (*RemoteWebhook, error) {
	if !g.IsConnected() {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal is not configured")
	}
	hook, err := g.client.CreateWebhook(ctx, url, events)
	if err != nil {
		return nil, err
	}
	return remoteWebhook(hook), nil
}

func (g *PayPal) UpdateWebhook(ctx context.Context, id string, events []string) (*RemoteWebhook, error) {
	if !g.IsConnected() {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal is not configured")
	}
	hook, err := g.client.UpdateWebhook(ctx, id, events)
	if err != nil {
		return nil, err
	}
	return remoteWebhook(hook), nil
}

func (g *PayPal) DeleteWebhook(ctx context.Context, id string) error {
	if !g.IsConnected() {
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal is not configured")
	}
	return g.client.DeleteWebhook(ctx, id)
}

func remoteWebhook(h *paypal.Webhook) *RemoteWebhook {
	return &RemoteWebhook{ID: h.ID, URL: h.URL, Events: h.EventNames()}
}
