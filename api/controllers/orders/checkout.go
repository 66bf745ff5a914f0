package orders

import (
	"context"
	"net/http"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	"github.com/angelmondragon/boxoffice-backend/internal/checkout"
	"github.com/angelmondragon/boxoffice-backend/internal/gateways"
	internalorders "github.com/angelmondragon/boxoffice-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// CheckoutService places orders from the session cart.
type CheckoutService interface {
	Checkout(ctx context.Context, input checkout.Input) (*gateways.Placement, error)
	ListGateways(ctx context.Context, sessionID string) ([]checkout.GatewayOption, error)
}

type PurchaserRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Email     string  `json:"email" validate:"required,email,max=320"`
	AccountID *string `json:"accountId,omitempty" validate:"omitempty,max=128"`
}

type CheckoutRequest struct {
	Gateway       string           `json:"gateway" validate:"required,max=32"`
	Purchaser     PurchaserRequest `json:"purchaser"`
	PaymentSource string           `json:"paymentSource,omitempty" validate:"max=512"`
}

// PlacementResponse is returned once an order exists, whatever its status.
type PlacementResponse struct {
	Order      internalorders.OrderDTO `json:"order"`
	ApproveURL string                  `json:"approveUrl,omitempty"`
}

// Gateways lists the gateways usable for the session's current cart.
func Gateways(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		options, err := svc.ListGateways(r.Context(), middleware.CartSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, options)
	}
}

// Checkout converts the session cart into an order through the chosen gateway.
func Checkout(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload CheckoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		placement, err := svc.Checkout(r.Context(), checkout.Input{
			SessionID:  middleware.CartSessionFromContext(r.Context()),
			GatewayKey: payload.Gateway,
			Purchaser: internalorders.Purchaser{
				Name:      validators.SanitizeString(payload.Purchaser.Name, 200),
				Email:     payload.Purchaser.Email,
				AccountID: payload.Purchaser.AccountID,
			},
			PaymentSource: payload.PaymentSource,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if placement == nil || placement.Order == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout returned no order"))
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, PlacementResponse{
			Order:      internalorders.ToDTO(*placement.Order),
			ApproveURL: placement.ApproveURL,
		})
	}
}
