package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	internalorders "github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/pagination"
)

// BuyerService is the order surface visible to a cart session.
type BuyerService interface {
	GetForSession(ctx context.Context, id uuid.UUID, sessionID string) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, sessionID string) (*models.Order, error)
}

// AdminService is the order surface available to operators.
type AdminService interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, params internalorders.ListParams) (*internalorders.OrderList, error)
	ModifyStatus(ctx context.Context, change internalorders.StatusChange) (*models.Order, error)
}

// Refunder returns money through the order's gateway before marking it refunded.
type Refunder interface {
	RefundOrder(ctx context.Context, orderID uuid.UUID, actor string) (*models.Order, error)
}

type StatusChangeRequest struct {
	Status string `json:"status" validate:"required,oneof=pending completed failed"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

// Detail returns an order to the session that placed it. Other sessions get 404.
func Detail(svc BuyerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetForSession(r.Context(), orderID, middleware.CartSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}

// Cancel fails an unpaid order and releases its stock.
func Cancel(svc BuyerService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Cancel(r.Context(), orderID, middleware.CartSessionFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}

// AdminList pages through orders, newest first, optionally filtered by ?status.
func AdminList(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AdminDetail(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}

// AdminUpdateStatus applies a manual transition, e.g. confirming a
// manual-gateway order once the offline payment arrives. Refunds go through
// AdminRefund so the gateway is refunded too.
func AdminUpdateStatus(svc AdminService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload StatusChangeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ModifyStatus(r.Context(), internalorders.StatusChange{
			OrderID: orderID,
			To:      enums.OrderStatus(payload.Status),
			Actor:   internalorders.AdminActor(middleware.ActorIDFromContext(r.Context())),
			Reason:  validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}

// AdminRefund refunds a completed order through its gateway.
func AdminRefund(svc Refunder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		orderID, err := validators.ParseUUIDParam(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.RefundOrder(r.Context(), orderID, internalorders.AdminActor(middleware.ActorIDFromContext(r.Context())))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, internalorders.ToDTO(*order))
	}
}
