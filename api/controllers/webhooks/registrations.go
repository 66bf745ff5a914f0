package webhooks

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/boxoffice-backend/api/responses"
	"github.com/angelmondragon/boxoffice-backend/api/validators"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

// RegistrationService manages remote webhook subscriptions per gateway.
type RegistrationService interface {
	Create(ctx context.Context, gatewayKey, url string, events []string) (*models.WebhookConfig, error)
	Update(ctx context.Context, gatewayKey string, events []string) (*models.WebhookConfig, error)
	Delete(ctx context.Context, gatewayKey string) error
	Get(ctx context.Context, gatewayKey string) (*models.WebhookConfig, error)
}

type CreateRegistrationRequest struct {
	Gateway string   `json:"gateway" validate:"required,max=32"`
	URL     string   `json:"url" validate:"required,url,max=2048"`
	Events  []string `json:"events" validate:"required,min=1,dive,required,max=128"`
}

type UpdateRegistrationRequest struct {
	Events []string `json:"events" validate:"required,min=1,dive,required,max=128"`
}

type RegistrationResponse struct {
	Gateway   string    `json:"gateway"`
	RemoteID  string    `json:"remoteId"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newRegistrationResponse(cfg models.WebhookConfig) RegistrationResponse {
	return RegistrationResponse{
		Gateway:   cfg.GatewayKey,
		RemoteID:  cfg.RemoteID,
		URL:       cfg.URL,
		Events:    cfg.EventTypes,
		UpdatedAt: cfg.UpdatedAt,
	}
}

func CreateRegistration(svc RegistrationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook registrations unavailable"))
			return
		}
		var payload CreateRegistrationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Create(r.Context(), strings.TrimSpace(payload.Gateway), payload.URL, payload.Events)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newRegistrationResponse(*cfg))
	}
}

func GetRegistration(svc RegistrationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook registrations unavailable"))
			return
		}
		cfg, err := svc.Get(r.Context(), gatewayParam(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRegistrationResponse(*cfg))
	}
}

func UpdateRegistration(svc RegistrationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook registrations unavailable"))
			return
		}
		var payload UpdateRegistrationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Update(r.Context(), gatewayParam(r), payload.Events)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newRegistrationResponse(*cfg))
	}
}

func DeleteRegistration(svc RegistrationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook registrations unavailable"))
			return
		}
		if err := svc.Delete(r.Context(), gatewayParam(r)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func gatewayParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "gateway"))
}
