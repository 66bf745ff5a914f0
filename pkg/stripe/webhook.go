package stripe

import (
	"encoding/json"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
)

// SignatureHeader carries the Stripe webhook signature.
const SignatureHeader = "Stripe-Signature"

// ConstructEvent verifies the signature header against the raw body and
// decodes the event. Any failure is reported as an unverified webhook.
func ConstructEvent(payload []byte, signature, secret string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, pkgerrors.Wrap(pkgerrors.CodeUnverifiedWebhook, err, "invalid stripe signature")
	}
	return event, nil
}

// PaymentIntentID extracts the PaymentIntent an event refers to. Charge
// events carry it as a nested reference.
func PaymentIntentID(event stripe.Event) (string, error) {
	if event.Data == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	switch event.Type {
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge")
		}
		if charge.PaymentIntent == nil || charge.PaymentIntent.ID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "charge has no payment intent")
		}
		return charge.PaymentIntent.ID, nil
	default:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
		}
		if intent.ID == "" {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing")
		}
		return intent.ID, nil
	}
}
