package paypal

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// CreateOrderParams describes the hosted checkout order for one local order.
type CreateOrderParams struct {
	ReferenceID string
	Amount      string
	Currency    string
	Description string
}

// Order is the subset of the PayPal order resource the gateway reads.
type Order struct {
	ID            string         `json:"id"`
	Status        string         `json:"status"`
	Links         []Link         `json:"links"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type PurchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	Payments    *struct {
		Captures []Capture `json:"captures"`
	} `json:"payments,omitempty"`
}

type Capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ApproveURL is where the buyer is sent to approve the payment.
func (o Order) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

// CaptureID returns the first completed capture, if any.
func (o Order) CaptureID() string {
	for _, pu := range o.PurchaseUnits {
		if pu.Payments == nil {
			continue
		}
		for _, c := range pu.Payments.Captures {
			if c.ID != "" {
				return c.ID
			}
		}
	}
	return ""
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createOrderRequest struct {
	Intent        string              `json:"intent"`
	PurchaseUnits []purchaseUnitInput `json:"purchase_units"`
	Context       *applicationContext `json:"application_context,omitempty"`
}

type purchaseUnitInput struct {
	ReferenceID string `json:"reference_id"`
	CustomID    string `json:"custom_id"`
	Description string `json:"description,omitempty"`
	Amount      amount `json:"amount"`
}

type applicationContext struct {
	ReturnURL string `json:"return_url,omitempty"`
	CancelURL string `json:"cancel_url,omitempty"`
}

// CreateOrder opens a CAPTURE-intent order. The reference id doubles as the
// PayPal-Request-Id so a retried call returns the same remote order.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if strings.TrimSpace(params.ReferenceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference id is required")
	}
	if strings.TrimSpace(params.Amount) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount is required")
	}
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnitInput{{
			ReferenceID: params.ReferenceID,
			CustomID:    params.ReferenceID,
			Description: params.Description,
			Amount:      amount{CurrencyCode: strings.ToUpper(params.Currency), Value: params.Amount},
		}},
	}
	if c.returnURL != "" || c.cancelURL != "" {
		body.Context = &applicationContext{ReturnURL: c.returnURL, CancelURL: c.cancelURL}
	}
	var out Order
	headers := map[string]string{"PayPal-Request-Id": "order-" + params.ReferenceID}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", body, &out, headers); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal order id missing")
	}
	return &out, nil
}

// GetOrder fetches a remote order.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+url.PathEscape(id), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder captures an approved order.
func (c *Client) CaptureOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	headers := map[string]string{"PayPal-Request-Id": "capture-" + id}
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(id)+"/capture", struct{}{}, &out, headers); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefundOrder refunds the captured payment of a remote order in full and
// returns the refund id.
func (c *Client) RefundOrder(ctx context.Context, orderID string) (string, error) {
	order, err := c.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	captureID := order.CaptureID()
	if captureID == "" {
		return "", pkgerrors.New(pkgerrors.CodeConflict, "paypal order has no capture to refund").
			WithDetails(map[string]any{"paypalOrderId": orderID})
	}
	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	headers := map[string]string{"PayPal-Request-Id": "refund-" + captureID}
	if err := c.do(ctx, http.MethodPost, "/v2/payments/captures/"+url.PathEscape(captureID)+"/refund", struct{}{}, &out, headers); err != nil {
		return "", err
	}
	return out.ID, nil
}
