package webhooks

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/boxoffice-backend/internal/gateways"
	"github.com/angelmondragon/boxoffice-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/boxoffice-backend/pkg/errors"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
)

type configStore interface {
	SaveConfig(ctx context.Context, cfg *models.WebhookConfig) error
	GetConfig(ctx context.Context, gatewayKey string) (*models.WebhookConfig, error)
	DeleteConfig(ctx context.Context, gatewayKey string) error
}

type gatewayLookup interface {
	Get(key string) (gateways.Gateway, error)
}

// Registrations manages remote webhook subscriptions and their stored
// config. Remote calls go first; local config only changes after the
// payment network accepted the change.
type Registrations struct {
	logg     *logger.Logger
	store    configStore
	gateways gatewayLookup
}

func NewRegistrations(logg *logger.Logger, store configStore, gws gatewayLookup) (*Registrations, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("webhook config store required")
	}
	if gws == nil {
		return nil, fmt.Errorf("gateway registry required")
	}
	return &Registrations{logg: logg, store: store, gateways: gws}, nil
}

func (r *Registrations) registrar(key string) (gateways.WebhookRegistrar, error) {
	gw, err := r.gateways.Get(key)
	if err != nil {
		return nil, err
	}
	reg, ok := gw.(gateways.WebhookRegistrar)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway does not support webhook registration").
			WithDetails(map[string]any{"gateway": key})
	}
	return reg, nil
}

// Create subscribes url for the gateway. An existing subscription must be
// deleted first.
func (r *Registrations) Create(ctx context.Context, gatewayKey, url string, events []string) (*models.WebhookConfig, error) {
	url = strings.TrimSpace(url)
	if url == "" || len(events) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook url and events are required")
	}
	reg, err := r.registrar(gatewayKey)
	if err != nil {
		return nil, err
	}
	existing, err := r.store.GetConfig(ctx, gatewayKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load webhook config")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "webhook already registered").
			WithDetails(map[string]any{"gateway": gatewayKey, "remoteId": existing.RemoteID})
	}
	remote, err := reg.CreateWebhook(ctx, url, events)
	if err != nil {
		return nil, err
	}
	cfg := &models.WebhookConfig{
		GatewayKey: gatewayKey,
		RemoteID:   remote.ID,
		URL:        remote.URL,
		EventTypes: remote.Events,
	}
	if cfg.URL == "" {
		cfg.URL = url
	}
	if err := r.store.SaveConfig(ctx, cfg); err != nil {
		r.dropUnsaved(ctx, reg, gatewayKey, remote.ID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save webhook config")
	}
	r.logg.Info(r.logg.WithFields(ctx, map[string]any{"gateway": gatewayKey, "remote_id": remote.ID}), "webhook registered")
	return cfg, nil
}

// dropUnsaved removes a remote subscription whose config could not be
// stored, so a retry does not leave a second live subscription behind.
func (r *Registrations) dropUnsaved(ctx context.Context, reg gateways.WebhookRegistrar, gatewayKey, remoteID string) {
	ctx = context.WithoutCancel(ctx)
	if err := reg.DeleteWebhook(ctx, remoteID); err != nil {
		r.logg.Error(r.logg.WithFields(ctx, map[string]any{"gateway": gatewayKey, "remote_id": remoteID}), "removing unsaved webhook subscription", err)
	}
}

// Update replaces the subscribed events.
func (r *Registrations) Update(ctx context.Context, gatewayKey string, events []string) (*models.WebhookConfig, error) {
	if len(events) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook events are required")
	}
	reg, err := r.registrar(gatewayKey)
	if err != nil {
		return nil, err
	}
	cfg, err := r.Get(ctx, gatewayKey)
	if err != nil {
		return nil, err
	}
	remote, err := reg.UpdateWebhook(ctx, cfg.RemoteID, events)
	if err != nil {
		return nil, err
	}
	cfg.EventTypes = remote.Events
	if len(cfg.EventTypes) == 0 {
		cfg.EventTypes = events
	}
	if err := r.store.SaveConfig(ctx, cfg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save webhook config")
	}
	return cfg, nil
}

// Delete removes the remote subscription, then the stored config.
func (r *Registrations) Delete(ctx context.Context, gatewayKey string) error {
	reg, err := r.registrar(gatewayKey)
	if err != nil {
		return err
	}
	cfg, err := r.Get(ctx, gatewayKey)
	if err != nil {
		return err
	}
	if err := reg.DeleteWebhook(ctx, cfg.RemoteID); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		return err
	}
	if err := r.store.DeleteConfig(ctx, gatewayKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete webhook config")
	}
	r.logg.Info(r.logg.WithField(ctx, "gateway", gatewayKey), "webhook unregistered")
	return nil
}

// Get returns the stored subscription.
func (r *Registrations) Get(ctx context.Context, gatewayKey string) (*models.WebhookConfig, error) {
	cfg, err := r.store.GetConfig(ctx, gatewayKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load webhook config")
	}
	if cfg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "webhook not registered").
			WithDetails(map[string]any{"gateway": gatewayKey})
	}
	return cfg, nil
}
