package cart

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	cartsvc "github.com/angelmondragon/boxoffice-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// Service is the buyer cart surface backed by internal/cart.
type Service interface {
	Get(ctx context.Context, sessionID string) (*cartsvc.Cart, error)
	AddTicket(ctx context.Context, sessionID string, ticketID uuid.UUID, quantity int) (*cartsvc.Cart, error)
	RemoveTicket(ctx context.Context, sessionID string, ticketID uuid.UUID, quantity int) (*cartsvc.Cart, error)
	AddCoupon(ctx context.Context, sessionID, code string) (*cartsvc.Cart, error)
	RemoveCoupon(ctx context.Context, sessionID string, modifierID uuid.UUID) (*cartsvc.Cart, error)
	Clear(ctx context.Context, sessionID string) error
	Quote(ctx context.Context, sessionID string) (*cartsvc.Quote, error)
}

type AddTicketRequest struct {
	TicketID uuid.UUID `json:"ticketId" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,min=1,max=100"`
}

type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// Fetch returns the session cart, empty when none exists yet.
func Fetch(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		c, err := svc.Get(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func AddTicket(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		var payload AddTicketRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddTicket(r.Context(), sessionID, payload.TicketID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

// RemoveTicket drops ?quantity units of a ticket, or the whole line when
// the parameter is absent.
func RemoveTicket(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		ticketID, err := validators.ParseUUIDParam(r, "ticketId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryInt(r, "quantity", 0, 0, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveTicket(r.Context(), sessionID, ticketID, quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func ApplyCoupon(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		var payload ApplyCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.AddCoupon(r.Context(), sessionID, validators.SanitizeString(payload.Code, 64))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func RemoveCoupon(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		modifierID, err := validators.ParseUUIDParam(r, "modifierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		c, err := svc.RemoveCoupon(r.Context(), sessionID, modifierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, c)
	}
}

func Clear(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		if err := svc.Clear(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// Quote prices the cart against live fees and the applied coupons.
func Quote(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := requireSession(w, r, svc, logg)
		if !ok {
			return
		}
		quote, err := svc.Quote(r.Context(), sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

func requireSession(w http.ResponseWriter, r *http.Request, svc Service, logg *logger.Logger) (string, bool) {
	if svc == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
		return "", false
	}
	sessionID := middleware.CartSessionFromContext(r.Context())
	if sessionID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required"))
		return "", false
	}
	return sessionID, true
}
