package webhooks

import (
	"context"
	"io"
	"net/http"

	"github.com/angelmondragon/boxoffice-backend/api/responses"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// maxPayloadBytes bounds webhook bodies; payment network events are far smaller.
const maxPayloadBytes = 1 << 20

// DeliveryService applies verified payment network events to orders.
type DeliveryService interface {
	HandlePayPal(ctx context.Context, headers http.Header, raw []byte) error
	HandleStripe(ctx context.Context, payload []byte, signature string) error
}

type ackResponse struct {
	Received bool `json:"received"`
}

// PayPal receives PayPal notifications. Anything but a 2xx makes PayPal
// redeliver, so unverified events and processing failures both return errors.
func PayPal(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		payload, err := readPayload(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.HandlePayPal(ctx, r.Header, payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ackResponse{Received: true})
	}
}

// Stripe receives Stripe events for card orders processed through Stripe.
func Stripe(svc DeliveryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		sigHeader := r.Header.Get("Stripe-Signature")
		if sigHeader == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "stripe signature missing"))
			return
		}
		payload, err := readPayload(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if err := svc.HandleStripe(ctx, payload, sigHeader); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, ackResponse{Received: true})
	}
}

func readPayload(r *http.Request) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	if len(payload) > maxPayloadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload too large")
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload is empty")
	}
	return payload, nil
}
