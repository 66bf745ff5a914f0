package square

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	sq "github.com/square/square-go-sdk"
	sqcore "github.com/square/square-go-sdk/core"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

func TestNewClientValidatesConfig(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ctx := context.Background()

	cases := map[string]config.SquareConfig{
		"bad environment":  {AccessToken: "tok", LocationID: "LOC1", Env: "staging"},
		"missing token":    {LocationID: "LOC1"},
		"missing location": {AccessToken: "tok"},
	}
	for name, cfg := range cases {
		if _, err := NewClient(ctx, cfg, logg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok", LocationID: "LOC1"}, nil); err == nil {
		t.Fatalf("expected error without logger")
	}

	c, err := NewClient(ctx, config.SquareConfig{AccessToken: "tok", LocationID: "LOC1", Env: "Production"}, logg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.Environment() != "production" {
		t.Fatalf("unexpected environment %q", c.Environment())
	}
}

func TestCreatePaymentValidatesBeforeCallingSquare(t *testing.T) {
	c := &Client{}
	_, err := c.CreatePayment(context.Background(), PaymentCreateParams{AmountCents: 100})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing source, got %v", err)
	}
	_, err = c.CreatePayment(context.Background(), PaymentCreateParams{SourceID: "cnon:ok"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
	if _, err := c.RefundPayment(context.Background(), RefundParams{}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for missing payment id, got %v", err)
	}
}

func TestEnsureIdempotencyKey(t *testing.T) {
	c := &Client{}
	if got := c.ensureIdempotencyKey("pref", "custom-key"); got != "custom-key" {
		t.Fatalf("expected provided key, got %q", got)
	}
	if got := c.ensureIdempotencyKey("prefix", ""); !strings.HasPrefix(got, "prefix-") {
		t.Fatalf("generated idempotency key %q missing prefix", got)
	}
}

func TestRedact(t *testing.T) {
	c := &Client{}
	if out := c.redact("buyer_email", "ada@example.com"); out != "[REDACTED]" {
		t.Fatalf("expected redacted value, got %v", out)
	}
	if v := c.redact("status", "ok"); v != "ok" {
		t.Fatalf("unexpected redaction for safe key")
	}
}

func TestDomainCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		code   pkgerrors.Code
	}{
		{http.StatusUnauthorized, pkgerrors.CodeGatewayUnavailable},
		{http.StatusForbidden, pkgerrors.CodeGatewayUnavailable},
		{http.StatusTooManyRequests, pkgerrors.CodeGatewayUnavailable},
		{http.StatusNotFound, pkgerrors.CodeNotFound},
		{http.StatusConflict, pkgerrors.CodeConflict},
		{http.StatusPaymentRequired, pkgerrors.CodeValidation},
		{http.StatusBadRequest, pkgerrors.CodeValidation},
		{http.StatusInternalServerError, pkgerrors.CodeGatewayUnavailable},
	}
	for _, tt := range tests {
		if got := domainCodeForStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestMapSquareError(t *testing.T) {
	c := &Client{}
	table := []struct {
		name     string
		status   int
		payload  string
		wantCode pkgerrors.Code
	}{
		{
			name:     "authentication error",
			status:   http.StatusUnauthorized,
			payload:  `{"errors":[{"category":"AUTHENTICATION_ERROR","code":"UNAUTHORIZED"}]}`,
			wantCode: pkgerrors.CodeGatewayUnavailable,
		},
		{
			name:     "idempotency key reused",
			status:   http.StatusConflict,
			payload:  `{"errors":[{"category":"API_ERROR","code":"IDEMPOTENCY_KEY_REUSED"}]}`,
			wantCode: pkgerrors.CodeIdempotency,
		},
		{
			name:     "card declined",
			status:   http.StatusPaymentRequired,
			payload:  `{"errors":[{"category":"PAYMENT_METHOD_ERROR","code":"CARD_DECLINED"}]}`,
			wantCode: pkgerrors.CodeValidation,
		},
	}
	for _, tt := range table {
		err := sqcore.NewAPIError(tt.status, errors.New(tt.payload))
		typed := pkgerrors.As(c.mapSquareError(err, "operation"))
		if typed == nil {
			t.Fatalf("%s: result is not pkgerror", tt.name)
		}
		if typed.Code() != tt.wantCode {
			t.Fatalf("%s: expected code %s, got %s", tt.name, tt.wantCode, typed.Code())
		}
	}

	typed := pkgerrors.As(c.mapSquareError(errors.New("dial tcp: timeout"), "operation"))
	if typed == nil || typed.Code() != pkgerrors.CodeGatewayUnavailable {
		t.Fatalf("transport errors must map to gateway unavailable")
	}
}

func TestExtractSquareErrors(t *testing.T) {
	c := &Client{}
	payload := `{"errors":[{"category":"API_ERROR","code":"BAD_REQUEST","detail":"oops"}]}`
	apiErr := sqcore.NewAPIError(http.StatusBadRequest, errors.New(payload))
	got := c.extractSquareErrors(apiErr)
	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %d", len(got))
	}
	if got[0].GetCode() != sq.ErrorCodeBadRequest {
		t.Fatalf("unexpected error code %s", got[0].GetCode())
	}
}

func TestPaymentRequestCarriesLocationAndAmount(t *testing.T) {
	req := PaymentCreateParams{
		AmountCents: 3600,
		Currency:    "usd",
		SourceID:    "cnon:card-nonce-ok",
		ReferenceID: "order-1",
	}.toSquareRequest("LOC1", "key-1")

	if req.IdempotencyKey != "key-1" || req.SourceID != "cnon:card-nonce-ok" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.LocationID == nil || *req.LocationID != "LOC1" {
		t.Fatalf("location not set")
	}
	if req.AmountMoney == nil || *req.AmountMoney.Amount != 3600 || *req.AmountMoney.Currency != sq.Currency("USD") {
		t.Fatalf("unexpected amount %+v", req.AmountMoney)
	}
	if req.Autocomplete == nil || !*req.Autocomplete {
		t.Fatalf("payment must autocomplete")
	}
}

func TestTextOf(t *testing.T) {
	id := "r-1"
	if textOf(&id) != "r-1" || textOf("r-2") != "r-2" || textOf((*string)(nil)) != "" {
		t.Fatalf("unexpected textOf results")
	}
}
