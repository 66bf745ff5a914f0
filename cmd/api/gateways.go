package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/boxoffice-backend/internal/gateways"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/paypal"
	"github.com/angelmondragon/boxoffice-backend/pkg/square"
	"github.com/angelmondragon/boxoffice-backend/pkg/stripe"
)

type gatewaySet struct {
	registry     *gateways.Registry
	paypal       *gateways.PayPal
	stripeSecret string
}

// buildGateways connects whichever payment networks are configured. A
// network with missing credentials stays registered but disconnected, so
// it is hidden from buyers instead of failing startup.
func buildGateways(ctx context.Context, cfg *config.Config, logg *logger.Logger, orderService *orders.Service) (*gatewaySet, error) {
	set := &gatewaySet{}

	var processor gateways.CardProcessor
	switch strings.ToLower(strings.TrimSpace(cfg.Checkout.CardProcessor)) {
	case "", "square":
		client, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "square card processor disabled")
			break
		}
		processor = gateways.NewSquareProcessor(client)
	case "stripe":
		client, err := stripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "stripe card processor disabled")
			break
		}
		processor = gateways.NewStripeProcessor(client)
		set.stripeSecret = client.SigningSecret()
	default:
		return nil, fmt.Errorf("unsupported card processor %q", cfg.Checkout.CardProcessor)
	}

	var paypalGateway *gateways.PayPal
	if cfg.PayPal.Enabled {
		client, err := paypal.NewClient(cfg.PayPal, logg)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "reason", err.Error()), "paypal gateway disconnected")
			paypalGateway = gateways.NewPayPal(orderService, nil, true, cfg.Webhooks.VerifyTimeout)
		} else {
			paypalGateway = gateways.NewPayPal(orderService, client, true, cfg.Webhooks.VerifyTimeout)
			set.paypal = paypalGateway
		}
	}

	all := []gateways.Gateway{
		gateways.NewFree(orderService),
		gateways.NewCard(orderService, processor),
		gateways.NewManual(orderService, cfg.Checkout.ManualEnabled),
	}
	if paypalGateway != nil {
		all = append(all, paypalGateway)
	}

	registry, err := gateways.NewRegistry(gateways.Ordered(cfg.Checkout.GatewayOrder, all...)...)
	if err != nil {
		return nil, err
	}
	set.registry = registry
	return set, nil
}
