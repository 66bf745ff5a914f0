package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

type stubDeliveries struct {
	paypalErr  error
	stripeErr  error
	payload    []byte
	signature  string
	transmitID string
}

func (s *stubDeliveries) HandlePayPal(ctx context.Context, headers http.Header, raw []byte) error {
	s.payload = raw
	s.transmitID = headers.Get("Paypal-Transmission-Id")
	return s.paypalErr
}

func (s *stubDeliveries) HandleStripe(ctx context.Context, payload []byte, signature string) error {
	s.payload = payload
	s.signature = signature
	return s.stripeErr
}

func TestPayPalAcknowledgesProcessedEvent(t *testing.T) {
	svc := &stubDeliveries{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paypal", strings.NewReader(`{"id":"WH-1"}`))
	req.Header.Set("Paypal-Transmission-Id", "tx-1")
	resp := httptest.NewRecorder()
	PayPal(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if string(svc.payload) != `{"id":"WH-1"}` || svc.transmitID != "tx-1" {
		t.Fatalf("payload or headers not forwarded")
	}
}

func TestPayPalUnverifiedIsNot2xx(t *testing.T) {
	svc := &stubDeliveries{paypalErr: pkgerrors.New(pkgerrors.CodeUnverifiedWebhook, "webhook signature could not be verified")}
	resp := httptest.NewRecorder()
	PayPal(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPayPalProcessingFailureIsRetryable(t *testing.T) {
	svc := &stubDeliveries{paypalErr: errors.New("db down")}
	resp := httptest.NewRecorder()
	PayPal(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if resp.Code < 500 {
		t.Fatalf("expected 5xx got %d", resp.Code)
	}
}

func TestPayPalRejectsEmptyBody(t *testing.T) {
	resp := httptest.NewRecorder()
	PayPal(&stubDeliveries{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStripeRequiresSignature(t *testing.T) {
	resp := httptest.NewRecorder()
	Stripe(&stubDeliveries{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStripeForwardsSignature(t *testing.T) {
	svc := &stubDeliveries{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	resp := httptest.NewRecorder()
	Stripe(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || svc.signature != "t=1,v1=abc" {
		t.Fatalf("expected 200 with forwarded signature, got %d %q", resp.Code, svc.signature)
	}
}

type stubRegistrations struct {
	cfg     *models.WebhookConfig
	err     error
	gateway string
	url     string
	events  []string
	deleted bool
}

func (s *stubRegistrations) Create(ctx context.Context, gatewayKey, url string, events []string) (*models.WebhookConfig, error) {
	s.gateway, s.url, s.events = gatewayKey, url, events
	if s.err != nil {
		return nil, s.err
	}
	return &models.WebhookConfig{GatewayKey: gatewayKey, RemoteID: "WH-REMOTE", URL: url, EventTypes: events}, nil
}

func (s *stubRegistrations) Update(ctx context.Context, gatewayKey string, events []string) (*models.WebhookConfig, error) {
	s.gateway, s.events = gatewayKey, events
	if s.err != nil {
		return nil, s.err
	}
	return &models.WebhookConfig{GatewayKey: gatewayKey, RemoteID: "WH-REMOTE", EventTypes: events}, nil
}

func (s *stubRegistrations) Delete(ctx context.Context, gatewayKey string) error {
	s.gateway = gatewayKey
	s.deleted = s.err == nil
	return s.err
}

func (s *stubRegistrations) Get(ctx context.Context, gatewayKey string) (*models.WebhookConfig, error) {
	s.gateway = gatewayKey
	return s.cfg, s.err
}

func withGateway(req *http.Request, gateway string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("gateway", gateway)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestCreateRegistration(t *testing.T) {
	svc := &stubRegistrations{}
	body := `{"gateway":"paypal","url":"https://api.example.com/api/v1/webhooks/paypal","events":["PAYMENT.CAPTURE.COMPLETED"]}`
	resp := httptest.NewRecorder()
	CreateRegistration(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data RegistrationResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.RemoteID != "WH-REMOTE" || svc.gateway != "paypal" || len(svc.events) != 1 {
		t.Fatalf("unexpected registration: %+v", envelope.Data)
	}
}

func TestCreateRegistrationRequiresEvents(t *testing.T) {
	body := `{"gateway":"paypal","url":"https://api.example.com/hook","events":[]}`
	resp := httptest.NewRecorder()
	CreateRegistration(&stubRegistrations{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestUpdateRegistrationUsesPathGateway(t *testing.T) {
	svc := &stubRegistrations{}
	req := withGateway(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"events":["CHECKOUT.ORDER.COMPLETED"]}`)), "paypal")
	resp := httptest.NewRecorder()
	UpdateRegistration(svc, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || svc.gateway != "paypal" {
		t.Fatalf("expected update for paypal, got %d %q", resp.Code, svc.gateway)
	}
}

func TestGetRegistrationNotFound(t *testing.T) {
	svc := &stubRegistrations{err: pkgerrors.New(pkgerrors.CodeNotFound, "webhook not registered")}
	resp := httptest.NewRecorder()
	GetRegistration(svc, nil).ServeHTTP(resp, withGateway(httptest.NewRequest(http.MethodGet, "/", nil), "paypal"))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestDeleteRegistration(t *testing.T) {
	svc := &stubRegistrations{}
	resp := httptest.NewRecorder()
	DeleteRegistration(svc, nil).ServeHTTP(resp, withGateway(httptest.NewRequest(http.MethodDelete, "/", nil), "paypal"))
	if resp.Code != http.StatusNoContent || !svc.deleted {
		t.Fatalf("expected 204 and delete, got %d", resp.Code)
	}
}
