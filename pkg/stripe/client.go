package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errSecretRequired   = errors.New("stripe webhook secret is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata.
type Client struct {
	api           *stripe.Client
	environment   string
	signingSecret string
	logger        *logger.Logger
}

// NewClient initializes Stripe once with the configured secrets and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	signingSecret := strings.TrimSpace(cfg.Secret)
	if signingSecret == "" {
		return nil, errSecretRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	return &Client{
		api:           stripe.NewClient(apiKey),
		environment:   env,
		signingSecret: signingSecret,
		logger:        logg,
	}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// SigningSecret returns the webhook signing secret.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// ChargeParams describes one confirmed PaymentIntent.
type ChargeParams struct {
	AmountCents    int64
	Currency       string
	PaymentMethod  string
	IdempotencyKey string
	Description    string
	Metadata       map[string]string
}

// Charge creates and confirms a PaymentIntent in one call. Redirect-based
// methods are disabled so the outcome is known when the call returns.
func (c *Client) Charge(ctx context.Context, params ChargeParams) (*stripe.PaymentIntent, error) {
	if strings.TrimSpace(params.PaymentMethod) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}
	if params.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	req := &stripe.PaymentIntentCreateParams{
		Amount:        stripe.Int64(params.AmountCents),
		Currency:      stripe.String(strings.ToLower(params.Currency)),
		PaymentMethod: stripe.String(params.PaymentMethod),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	if params.Description != "" {
		req.Description = stripe.String(params.Description)
	}
	for k, v := range params.Metadata {
		req.AddMetadata(k, v)
	}
	if params.IdempotencyKey != "" {
		req.SetIdempotencyKey(params.IdempotencyKey)
	}

	intent, err := c.api.V1PaymentIntents.Create(ctx, req)
	if err != nil {
		c.logError(ctx, "create payment intent", err)
		return nil, mapStripeError(err, "create payment intent")
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return intent, pkgerrors.New(pkgerrors.CodeValidation, "payment was not completed").
			WithDetails(map[string]any{"status": string(intent.Status)})
	}
	return intent, nil
}

// Refund returns the full amount of a PaymentIntent and reports the refund id.
func (c *Client) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) (string, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	req := &stripe.RefundCreateParams{
		PaymentIntent: stripe.String(paymentIntentID),
		Reason:        stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if idempotencyKey != "" {
		req.SetIdempotencyKey(idempotencyKey)
	}
	refund, err := c.api.V1Refunds.Create(ctx, req)
	if err != nil {
		c.logError(ctx, "create refund", err)
		return "", mapStripeError(err, "create refund")
	}
	return refund.ID, nil
}

func (c *Client) logError(ctx context.Context, op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(c.logger.WithField(ctx, "operation", op), "stripe request failed", err)
}

func mapStripeError(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		code := domainCodeForStatus(stripeErr.HTTPStatusCode)
		if stripeErr.Type == stripe.ErrorTypeCard {
			code = pkgerrors.CodeValidation
		}
		if stripeErr.Code == stripe.ErrorCodeIdempotencyKeyInUse {
			code = pkgerrors.CodeIdempotency
		}
		return pkgerrors.Wrap(code, err, fmt.Sprintf("stripe %s failed", op)).
			WithDetails(map[string]any{"stripeCode": string(stripeErr.Code)})
	}
	return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, fmt.Sprintf("stripe %s failed", op))
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

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
