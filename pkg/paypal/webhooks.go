package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// Transmission headers PayPal attaches to every webhook delivery.
const (
	HeaderTransmissionID   = "Paypal-Transmission-Id"
	HeaderTransmissionTime = "Paypal-Transmission-Time"
	HeaderTransmissionSig  = "Paypal-Transmission-Sig"
	HeaderCertURL          = "Paypal-Cert-Url"
	HeaderAuthAlgo         = "Paypal-Auth-Algo"
)

const verificationSuccess = "SUCCESS"

type verifyRequest struct {
	AuthAlgo         string          `json:"auth_algo"`
	CertURL          string          `json:"cert_url"`
	TransmissionID   string          `json:"transmission_id"`
	TransmissionSig  string          `json:"transmission_sig"`
	TransmissionTime string          `json:"transmission_time"`
	WebhookID        string          `json:"webhook_id"`
	WebhookEvent     json.RawMessage `json:"webhook_event"`
}

// VerifyWebhookSignature asks PayPal whether the delivery is authentic for
// the given webhook subscription. An empty webhookID falls back to the
// configured one. Anything other than an explicit success, including
// transport errors and missing headers, reports false.
func (c *Client) VerifyWebhookSignature(ctx context.Context, webhookID string, headers http.Header, rawEvent []byte) bool {
	if webhookID == "" {
		webhookID = c.webhookID
	}
	if webhookID == "" || !json.Valid(rawEvent) {
		return false
	}
	body := verifyRequest{
		AuthAlgo:         headers.Get(HeaderAuthAlgo),
		CertURL:          headers.Get(HeaderCertURL),
		TransmissionID:   headers.Get(HeaderTransmissionID),
		TransmissionSig:  headers.Get(HeaderTransmissionSig),
		TransmissionTime: headers.Get(HeaderTransmissionTime),
		WebhookID:        webhookID,
		WebhookEvent:     rawEvent,
	}
	if body.AuthAlgo == "" || body.CertURL == "" || body.TransmissionID == "" || body.TransmissionSig == "" || body.TransmissionTime == "" {
		return false
	}
	var out struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/verify-webhook-signature", body, &out, nil); err != nil {
		return false
	}
	return out.VerificationStatus == verificationSuccess
}

// Webhook is a remote webhook subscription.
type Webhook struct {
	ID         string      `json:"id"`
	URL        string      `json:"url"`
	EventTypes []EventType `json:"event_types"`
}

type EventType struct {
	Name string `json:"name"`
}

// EventNames flattens the subscribed event types.
func (w Webhook) EventNames() []string {
	names := make([]string, 0, len(w.EventTypes))
	for _, et := range w.EventTypes {
		names = append(names, et.Name)
	}
	return names
}

func eventTypes(names []string) []EventType {
	out := make([]EventType, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, EventType{Name: n})
		}
	}
	return out
}

// CreateWebhook subscribes url to the given event types.
func (c *Client) CreateWebhook(ctx context.Context, target string, events []string) (*Webhook, error) {
	types := eventTypes(events)
	if strings.TrimSpace(target) == "" || len(types) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook url and events are required")
	}
	var out Webhook
	if err := c.do(ctx, http.MethodPost, "/v1/notifications/webhooks", Webhook{URL: target, EventTypes: types}, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// UpdateWebhook replaces the subscribed event types.
func (c *Client) UpdateWebhook(ctx context.Context, id string, events []string) (*Webhook, error) {
	types := eventTypes(events)
	if strings.TrimSpace(id) == "" || len(types) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook id and events are required")
	}
	var out Webhook
	patch := []patchOp{{Op: "replace", Path: "/event_types", Value: types}}
	if err := c.do(ctx, http.MethodPatch, "/v1/notifications/webhooks/"+url.PathEscape(id), patch, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteWebhook removes a subscription.
func (c *Client) DeleteWebhook(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook id is required")
	}
	return c.do(ctx, http.MethodDelete, "/v1/notifications/webhooks/"+url.PathEscape(id), nil, nil, nil)
}

// Event is the envelope of a webhook delivery.
type Event struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

// ParseEvent decodes a raw delivery.
func ParseEvent(raw []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode paypal event")
	}
	if ev.ID == "" || ev.EventType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paypal event id and type are required")
	}
	return &ev, nil
}

// OrderID resolves the PayPal order the event refers to. Checkout events
// carry the order itself; capture events link it through related ids.
func (e Event) OrderID() string {
	var resource struct {
		ID                string `json:"id"`
		SupplementaryData struct {
			RelatedIDs struct {
				OrderID string `json:"order_id"`
			} `json:"related_ids"`
		} `json:"supplementary_data"`
	}
	if err := json.Unmarshal(e.Resource, &resource); err != nil {
		return ""
	}
	if resource.SupplementaryData.RelatedIDs.OrderID != "" {
		return resource.SupplementaryData.RelatedIDs.OrderID
	}
	if strings.HasPrefix(e.EventType, "CHECKOUT.ORDER.") {
		return resource.ID
	}
	return ""
}
