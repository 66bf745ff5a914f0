// Package square wraps the Square SDK for card payments and refunds.
package square

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

var sensitiveFields = []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"}

// Client charges and refunds through one Square location.
type Client struct {
	sdk         *sqclient.Client
	environment string
	locationID  string
	logger      *logger.Logger
}

func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errors.New("square logger is required")
	}
	env := cfg.Environment()
	baseURL, ok := baseURLs[env]
	if !ok {
		return nil, fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	}
	token := strings.TrimSpace(cfg.AccessToken)
	location := strings.TrimSpace(cfg.LocationID)
	switch {
	case token == "":
		return nil, errors.New("square access token is required")
	case location == "":
		return nil, errors.New("square location id is required")
	}

	c := &Client{
		sdk:         sqclient.NewClient(sqoption.WithBaseURL(baseURL), sqoption.WithToken(token)),
		environment: env,
		locationID:  location,
		logger:      logg,
	}
	logg.Info(logg.WithField(ctx, "environment", env), "square client initialized")
	return c, nil
}

func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreatePayment charges the buyer's card nonce and completes the payment
// immediately.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*sq.Payment, error) {
	switch {
	case strings.TrimSpace(params.SourceID) == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	case params.AmountCents <= 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	req := params.toSquareRequest(c.locationID, c.ensureIdempotencyKey("payment.create", params.IdempotencyKey))
	resp, err := call(ctx, c, "create_payment", map[string]any{
		"location_id":  c.locationID,
		"reference_id": params.ReferenceID,
		"amount":       params.AmountCents,
		"buyer_email":  params.BuyerEmail,
	}, func(ctx context.Context) (*sq.CreatePaymentResponse, error) {
		return c.sdk.Payments.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return resp.GetPayment(), nil
}

// RefundPayment returns money for a completed payment and reports the
// refund id Square assigned.
func (c *Client) RefundPayment(ctx context.Context, params RefundParams) (string, error) {
	if strings.TrimSpace(params.PaymentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}
	req := params.toSquareRequest(c.ensureIdempotencyKey("payment.refund", params.IdempotencyKey))
	resp, err := call(ctx, c, "refund_payment", map[string]any{
		"payment_id": params.PaymentID,
		"amount":     params.AmountCents,
	}, func(ctx context.Context) (*sq.RefundPaymentResponse, error) {
		return c.sdk.Refunds.RefundPayment(ctx, req)
	})
	if err != nil {
		return "", err
	}
	if refund := resp.GetRefund(); refund != nil {
		return textOf(refund.ID), nil
	}
	return "", nil
}

// call runs one SDK request with request/response logging and maps any
// failure onto a domain error code.
func call[T any](ctx context.Context, c *Client, op string, fields map[string]any, fn func(context.Context) (T, error)) (T, error) {
	logCtx := c.logger.WithFields(ctx, c.scrub(op, fields))
	start := time.Now()
	resp, err := fn(ctx)
	logCtx = c.logger.WithField(logCtx, "elapsed_ms", time.Since(start).Milliseconds())
	if err != nil {
		c.logger.Error(logCtx, "square."+op+"_failed", err)
		return resp, c.mapSquareError(err, strings.ReplaceAll(op, "_", " "))
	}
	c.logger.Info(logCtx, "square."+op)
	return resp, nil
}

func (c *Client) scrub(op string, fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	out["operation"] = op
	for k, v := range fields {
		out[k] = c.redact(k, v)
	}
	return out
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "bo"
	}
	return prefix + "-" + uuid.NewString()
}

// mapSquareError prefers the category of the first recognised Square error
// over the HTTP status.
func (c *Client) mapSquareError(err error, op string) error {
	var apiErr *sqcore.APIError
	if !errors.As(err, &apiErr) {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "square "+op+" failed")
	}
	code := domainCodeForStatus(apiErr.StatusCode)
	for _, sqErr := range c.extractSquareErrors(apiErr) {
		if mapped, ok := codeForSquareError(sqErr); ok {
			code = mapped
			break
		}
	}
	return pkgerrors.Wrap(code, err, "square "+op+" failed")
}

func codeForSquareError(e *sq.Error) (pkgerrors.Code, bool) {
	switch {
	case e == nil:
		return "", false
	case e.Code == sq.ErrorCodeIdempotencyKeyReused:
		return pkgerrors.CodeIdempotency, true
	case e.Category == sq.ErrorCategoryAuthenticationError:
		return pkgerrors.CodeGatewayUnavailable, true
	case e.Category == sq.ErrorCategoryPaymentMethodError:
		return pkgerrors.CodeValidation, true
	default:
		return "", false
	}
}

// extractSquareErrors decodes the errors array the SDK leaves as the
// wrapped error's text.
func (c *Client) extractSquareErrors(apiErr *sqcore.APIError) []*sq.Error {
	inner := apiErr.Unwrap()
	if inner == nil {
		return nil
	}
	var payload struct {
		Errors []*sq.Error `json:"errors"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(inner.Error())), &payload); err != nil {
		return nil
	}
	return payload.Errors
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return pkgerrors.CodeGatewayUnavailable
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status == http.StatusConflict:
		return pkgerrors.CodeConflict
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeGatewayUnavailable
	}
}

// textOf reads identifiers the SDK models as either string or *string.
func textOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case *string:
		if t != nil {
			return *t
		}
	}
	return ""
}
