// Package gateways holds the payment backends an order can be placed
// through and the ordered registry checkout picks them from.
package gateways

import (
	"context"
	"net/http"

	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
)

const (
	KeyFree   = "free"
	KeyManual = "manual"
	KeyCard   = "card"
	KeyPayPal = "paypal"
)

// Gateway is one payment backend.
type Gateway interface {
	Key() string
	// IsEnabled reports whether an operator turned the gateway on.
	IsEnabled() bool
	// IsConnected reports whether credentials are present.
	IsConnected() bool
	// IsActive reports whether the gateway can take this priced cart.
	IsActive(priced *modifiers.PricedCart) bool
	ShouldShow() bool
	CreateOrder(ctx context.Context, req OrderRequest) (*Placement, error)
}

// Refunder is implemented by gateways that can return money remotely.
type Refunder interface {
	Refund(ctx context.Context, order *models.Order) error
}

// WebhookVerifier is implemented by gateways confirmed out of band.
type WebhookVerifier interface {
	VerifySignature(ctx context.Context, headers http.Header, rawEvent []byte) bool
}

// RemoteWebhook is a webhook subscription held by a payment network.
type RemoteWebhook struct {
	ID     string
	URL    string
	Events []string
}

// WebhookRegistrar manages the gateway's remote webhook subscription.
type WebhookRegistrar interface {
	CreateWebhook(ctx context.Context, url string, events []string) (*RemoteWebhook, error)
	UpdateWebhook(ctx context.Context, id string, events []string) (*RemoteWebhook, error)
	DeleteWebhook(ctx context.Context, id string) error
}

// OrderRequest is what checkout hands a gateway.
type OrderRequest struct {
	Priced        *modifiers.PricedCart
	Purchaser     orders.Purchaser
	CartSessionID *string
	// PaymentSource is the card nonce or payment method token for card
	// gateways. Other gateways ignore it.
	PaymentSource string
}

// Placement is the result of a successful CreateOrder.
type Placement struct {
	Order *models.Order `json:"order"`
	// ApproveURL is set when the buyer must finish payment on the network's site.
	ApproveURL string `json:"approveUrl,omitempty"`
}

type orderCreator interface {
	CreateFromCart(ctx context.Context, params orders.CreateParams) (*models.Order, error)
}

func (r OrderRequest) createParams(key string, settle orders.SettleFunc) orders.CreateParams {
	return orders.CreateParams{
		GatewayKey:    key,
		Priced:        r.Priced,
		Purchaser:     r.Purchaser,
		CartSessionID: r.CartSessionID,
		Settle:        settle,
	}
}

func hasPositiveTotal(priced *modifiers.PricedCart) bool {
	return priced != nil && !priced.IsEmpty() && priced.Total.IsPositive()
}
