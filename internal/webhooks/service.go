// Package webhooks turns verified payment network deliveries into order
// status changes and manages the remote webhook subscriptions.
package webhooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	stripego "github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/boxoffice-backend/internal/gateways"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
	"github.com/angelmondragon/boxoffice-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/boxoffice-backend/pkg/paypal"
	"github.com/angelmondragon/boxoffice-backend/pkg/stripe"
)

// Outcomes recorded on the webhook counter.
const (
	outcomeApplied    = "applied"
	outcomeDuplicate  = "duplicate"
	outcomeIgnored    = "ignored"
	outcomeUnverified = "unverified"
	outcomeFailed     = "failed"
)

const approvedEvent = "CHECKOUT.ORDER.APPROVED"

var paypalTransitions = map[string]enums.OrderStatus{
	"PAYMENT.CAPTURE.COMPLETED": enums.OrderStatusCompleted,
	"CHECKOUT.ORDER.COMPLETED":  enums.OrderStatusCompleted,
	"PAYMENT.CAPTURE.DENIED":    enums.OrderStatusFailed,
	"CHECKOUT.ORDER.VOIDED":     enums.OrderStatusFailed,
	"PAYMENT.CAPTURE.REFUNDED":  enums.OrderStatusRefunded,
}

var stripeTransitions = map[stripego.EventType]enums.OrderStatus{
	stripego.EventTypePaymentIntentSucceeded:     enums.OrderStatusCompleted,
	stripego.EventTypePaymentIntentPaymentFailed: enums.OrderStatusFailed,
	stripego.EventTypeChargeRefunded:             enums.OrderStatusRefunded,
}

type orderTransitions interface {
	ModifyStatusByGatewayOrder(ctx context.Context, gatewayKey, gatewayOrderID string, to enums.OrderStatus, reason string) (*models.Order, error)
}

type eventGuard interface {
	Claim(ctx context.Context, consumer, eventID string) (*idempotency.Claim, error)
}

type paypalGateway interface {
	gateways.WebhookVerifier
	Capture(ctx context.Context, remoteOrderID string) error
}

type ServiceParams struct {
	Logger  *logger.Logger
	Orders  orderTransitions
	Guard   eventGuard
	PayPal  paypalGateway
	Metrics *metrics.WebhookMetrics
	// StripeSecret enables the Stripe endpoint when set.
	StripeSecret string
}

// Service handles webhook deliveries. Every handler verifies first, then
// claims the event id, then mutates.
type Service struct {
	logg         *logger.Logger
	orders       orderTransitions
	guard        eventGuard
	paypal       paypalGateway
	metrics      *metrics.WebhookMetrics
	stripeSecret string
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	return &Service{
		logg:         params.Logger,
		orders:       params.Orders,
		guard:        params.Guard,
		paypal:       params.PayPal,
		metrics:      params.Metrics,
		stripeSecret: params.StripeSecret,
	}, nil
}

// HandlePayPal processes one PayPal delivery. A nil error means the sender
// may stop retrying.
func (s *Service) HandlePayPal(ctx context.Context, headers http.Header, raw []byte) error {
	const gw = gateways.KeyPayPal
	ctx = s.logg.WithGateway(ctx, gw)
	if s.paypal == nil || !s.paypal.VerifySignature(ctx, headers, raw) {
		s.metrics.Inc(gw, outcomeUnverified)
		s.logg.Warn(ctx, "paypal webhook rejected: signature not verified")
		return pkgerrors.New(pkgerrors.CodeUnverifiedWebhook, "webhook signature could not be verified")
	}
	event, err := paypal.ParseEvent(raw)
	if err != nil {
		s.metrics.Inc(gw, outcomeFailed)
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": event.EventType})

	remoteID := event.OrderID()
	to, mapped := paypalTransitions[event.EventType]
	if event.EventType == approvedEvent && remoteID != "" {
		return s.once(ctx, gw, event.ID, func(ctx context.Context) error {
			return s.paypal.Capture(ctx, remoteID)
		})
	}
	if !mapped || remoteID == "" {
		s.metrics.Inc(gw, outcomeIgnored)
		s.logg.Info(ctx, "paypal webhook acknowledged without changes")
		return nil
	}
	return s.once(ctx, gw, event.ID, func(ctx context.Context) error {
		return s.transition(ctx, gw, remoteID, to, "paypal "+event.EventType)
	})
}

// HandleStripe processes one Stripe delivery for card orders.
func (s *Service) HandleStripe(ctx context.Context, payload []byte, signature string) error {
	const gw = gateways.KeyCard
	ctx = s.logg.WithGateway(ctx, gw)
	if s.stripeSecret == "" {
		s.metrics.Inc(gw, outcomeUnverified)
		return pkgerrors.New(pkgerrors.CodeUnverifiedWebhook, "stripe webhooks are not configured")
	}
	event, err := stripe.ConstructEvent(payload, signature, s.stripeSecret)
	if err != nil {
		s.metrics.Inc(gw, outcomeUnverified)
		s.logg.Warn(ctx, "stripe webhook rejected: signature not verified")
		return err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"event_id": event.ID, "event_type": string(event.Type)})

	to, mapped := stripeTransitions[event.Type]
	if !mapped {
		s.metrics.Inc(gw, outcomeIgnored)
		return nil
	}
	intentID, err := stripe.PaymentIntentID(event)
	if err != nil {
		s.metrics.Inc(gw, outcomeFailed)
		return err
	}
	return s.once(ctx, gw, event.ID, func(ctx context.Context) error {
		return s.transition(ctx, gw, intentID, to, "stripe "+string(event.Type))
	})
}

// once claims eventID before running fn. A duplicate delivery returns nil
// without running fn; a failed fn releases the claim so the retry can run.
func (s *Service) once(ctx context.Context, gw, eventID string, fn func(context.Context) error) error {
	claim, err := s.guard.Claim(ctx, gw, eventID)
	switch {
	case errors.Is(err, idempotency.ErrDuplicate):
		s.metrics.Inc(gw, outcomeDuplicate)
		s.logg.Info(ctx, "duplicate webhook delivery skipped")
		return nil
	case err != nil:
		s.metrics.Inc(gw, outcomeFailed)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim webhook event")
	}
	detached := context.WithoutCancel(ctx)
	if err := fn(ctx); err != nil {
		if relErr := claim.Release(detached); relErr != nil {
			s.logg.Error(ctx, "release webhook claim", relErr)
		}
		s.metrics.Inc(gw, outcomeFailed)
		return err
	}
	if err := claim.Commit(detached); err != nil {
		// the pending reservation still expires on its own
		s.logg.Error(ctx, "commit webhook claim", err)
	}
	s.metrics.Inc(gw, outcomeApplied)
	return nil
}

// transition applies the status. Deliveries for unknown orders and
// transitions the state machine forbids cannot succeed on retry, so they
// are logged and acknowledged.
func (s *Service) transition(ctx context.Context, gw, remoteID string, to enums.OrderStatus, reason string) error {
	order, err := s.orders.ModifyStatusByGatewayOrder(ctx, gw, remoteID, to, reason)
	switch {
	case err == nil:
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "webhook status applied")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeNotFound):
		s.logg.Warn(s.logg.WithField(ctx, "gateway_order_id", remoteID), "webhook for unknown order acknowledged")
		return nil
	case pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition):
		s.logg.Error(s.logg.WithField(ctx, "gateway_order_id", remoteID), "webhook transition rejected", err)
		return nil
	default:
		return err
	}
}
