package modifiers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	internalmodifiers "github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

type Service interface {
	CreateModifier(ctx context.Context, input internalmodifiers.CreateModifierInput) (*models.OrderModifier, error)
	ListModifiers(ctx context.Context, kind *enums.ModifierKind) ([]models.OrderModifier, error)
	GetModifier(ctx context.Context, id uuid.UUID) (*models.OrderModifier, error)
	DeactivateModifier(ctx context.Context, id uuid.UUID) error
}

// CreateModifierRequest configures a fee or coupon. Amount is a currency
// value for flat modifiers and a percentage for percent modifiers.
type CreateModifierRequest struct {
	Kind        string          `json:"kind" validate:"required,oneof=fee coupon"`
	SubType     string          `json:"subType" validate:"required,oneof=flat percent"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	DisplayName string          `json:"displayName" validate:"required,max=120"`
	Code        *string         `json:"code,omitempty" validate:"omitempty,max=64"`
	Priority    int             `json:"priority"`
	FeeScope    *string         `json:"feeScope,omitempty" validate:"omitempty,oneof=all per"`
	CouponBase  *string         `json:"couponBase,omitempty" validate:"omitempty,oneof=tickets_only total_order"`
	EventID     *uuid.UUID      `json:"eventId,omitempty"`
	StartsAt    *time.Time      `json:"startsAt,omitempty"`
	EndsAt      *time.Time      `json:"endsAt,omitempty"`
}

func (r CreateModifierRequest) toInput() internalmodifiers.CreateModifierInput {
	input := internalmodifiers.CreateModifierInput{
		Kind:        enums.ModifierKind(r.Kind),
		SubType:     enums.ModifierSubType(r.SubType),
		RawAmount:   r.Amount,
		DisplayName: validators.SanitizeString(r.DisplayName, 120),
		Code:        r.Code,
		Priority:    r.Priority,
		EventID:     r.EventID,
		StartsAt:    r.StartsAt,
		EndsAt:      r.EndsAt,
	}
	if r.FeeScope != nil {
		scope := enums.FeeScope(*r.FeeScope)
		input.FeeScope = &scope
	}
	if r.CouponBase != nil {
		base := enums.CouponBase(*r.CouponBase)
		input.CouponBase = &base
	}
	return input
}

type ModifierResponse struct {
	ID          uuid.UUID             `json:"id"`
	Kind        enums.ModifierKind    `json:"kind"`
	SubType     enums.ModifierSubType `json:"subType"`
	Amount      decimal.Decimal       `json:"amount"`
	DisplayName string                `json:"displayName"`
	Code        *string               `json:"code,omitempty"`
	Priority    int                   `json:"priority"`
	FeeScope    *enums.FeeScope       `json:"feeScope,omitempty"`
	CouponBase  *enums.CouponBase     `json:"couponBase,omitempty"`
	EventID     *uuid.UUID            `json:"eventId,omitempty"`
	Active      bool                  `json:"active"`
	StartsAt    *time.Time            `json:"startsAt,omitempty"`
	EndsAt      *time.Time            `json:"endsAt,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func newModifierResponse(m models.OrderModifier) ModifierResponse {
	return ModifierResponse{
		ID:          m.ID,
		Kind:        m.Kind,
		SubType:     m.SubType,
		Amount:      m.RawAmount,
		DisplayName: m.DisplayName,
		Code:        m.Code,
		Priority:    m.Priority,
		FeeScope:    m.FeeScope,
		CouponBase:  m.CouponBase,
		EventID:     m.EventID,
		Active:      m.Active,
		StartsAt:    m.StartsAt,
		EndsAt:      m.EndsAt,
		CreatedAt:   m.CreatedAt,
	}
}

func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "modifier service unavailable"))
			return
		}
		var payload CreateModifierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mod, err := svc.CreateModifier(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newModifierResponse(*mod))
	}
}

// List returns every modifier, optionally narrowed by ?kind=fee|coupon.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "modifier service unavailable"))
			return
		}
		var kind *enums.ModifierKind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, err := enums.ParseModifierKind(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind filter"))
				return
			}
			kind = &parsed
		}
		mods, err := svc.ListModifiers(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]ModifierResponse, 0, len(mods))
		for _, mod := range mods {
			out = append(out, newModifierResponse(mod))
		}
		responses.WriteSuccess(w, out)
	}
}

func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "modifier service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "modifierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mod, err := svc.GetModifier(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newModifierResponse(*mod))
	}
}

// Deactivate retires a modifier. Orders already placed keep their lines.
func Deactivate(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "modifier service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "modifierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateModifier(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
