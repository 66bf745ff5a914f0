// Package paypal is a small REST client for the PayPal Orders, Payments and
// Notifications APIs used by the hosted PayPal gateway.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

const (
	defaultTimeout = 15 * time.Second
	// tokens are refreshed this long before PayPal expires them
	tokenSkew = time.Minute
)

var (
	errClientIDRequired     = errors.New("paypal client id is required")
	errClientSecretRequired = errors.New("paypal client secret is required")
)

type doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to one PayPal environment with client-credentials auth.
type Client struct {
	http         doer
	baseURL      string
	clientID     string
	clientSecret string
	webhookID    string
	returnURL    string
	cancelURL    string
	logger       *logger.Logger
	now          func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(h doer) Option {
	return func(c *Client) { c.http = h }
}

// WithBaseURL points the client at another host.
func WithBaseURL(raw string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(raw, "/") }
}

// NewClient validates credentials and builds the client. No network call is made.
func NewClient(cfg config.PayPalConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	clientID := strings.TrimSpace(cfg.ClientID)
	if clientID == "" {
		return nil, errClientIDRequired
	}
	secret := strings.TrimSpace(cfg.ClientSecret)
	if secret == "" {
		return nil, errClientSecretRequired
	}
	c := &Client{
		http:         &http.Client{Timeout: defaultTimeout},
		baseURL:      cfg.BaseURL(),
		clientID:     clientID,
		clientSecret: secret,
		webhookID:    strings.TrimSpace(cfg.WebhookID),
		returnURL:    cfg.ReturnURL,
		cancelURL:    cfg.CancelURL,
		logger:       logg,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WebhookID is the id of the subscription events are verified against.
func (c *Client) WebhookID() string {
	return c.webhookID
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal token request")
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out tokenResponse
	if err := c.send(req, "oauth token", &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "paypal returned an empty access token")
	}
	c.token = out.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(out.ExpiresIn)*time.Second - tokenSkew)
	return c.token, nil
}

// do sends an authenticated JSON request. A nil out discards the body.
func (c *Client) do(ctx context.Context, method, path string, body any, out any, headers map[string]string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode paypal request")
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build paypal request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.send(req, method+" "+path, out)
}

type apiError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	DebugID string `json:"debug_id"`
	Error   string `json:"error"`
}

func (c *Client) send(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.logError(req.Context(), op, err)
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, fmt.Sprintf("paypal %s failed", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, fmt.Sprintf("read paypal %s response", op))
	}
	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(raw, &apiErr)
		name := apiErr.Name
		if name == "" {
			name = apiErr.Error
		}
		cause := fmt.Errorf("paypal status %d: %s %s", resp.StatusCode, name, apiErr.Message)
		c.logError(req.Context(), op, cause)
		return pkgerrors.Wrap(domainCodeForStatus(resp.StatusCode), cause, fmt.Sprintf("paypal %s failed", op)).
			WithDetails(map[string]any{"name": name, "debugId": apiErr.DebugID})
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, fmt.Sprintf("decode paypal %s response", op))
	}
	return nil
}

func (c *Client) logError(ctx context.Context, op string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Error(c.logger.WithField(ctx, "operation", op), "paypal request failed", err)
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
