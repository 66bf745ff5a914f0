package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/boxoffice-backend/api/controllers"
	"github.com/angelmondragon/boxoffice-backend/api/routes"
	"github.com/angelmondragon/boxoffice-backend/internal/cart"
	"github.com/angelmondragon/boxoffice-backend/internal/checkout"
	"github.com/angelmondragon/boxoffice-backend/internal/inventory"
	"github.com/angelmondragon/boxoffice-backend/internal/modifiers"
	"github.com/angelmondragon/boxoffice-backend/internal/orders"
	"github.com/angelmondragon/boxoffice-backend/internal/webhooks"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/db"
	"github.com/angelmondragon/boxoffice-backend/pkg/enums"
	"github.com/angelmondragon/boxoffice-backend/pkg/instance"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
	"github.com/angelmondragon/boxoffice-backend/pkg/migrate"
	"github.com/angelmondragon/boxoffice-backend/pkg/outbox"
	"github.com/angelmondragon/boxoffice-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/boxoffice-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	currency, err := enums.ParseCurrency(cfg.Checkout.Currency)
	if err != nil {
		logg.Error(context.Background(), "invalid checkout currency", err)
		os.Exit(1)
	}

	stockCache, err := inventory.NewStockCache(redisClient, cfg.Inventory.StockCacheTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock cache", err)
		os.Exit(1)
	}
	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Logger:  logg,
		Repo:    inventory.NewRepository(dbClient.DB()),
		Cache:   stockCache,
		Metrics: metrics.NewLedgerMetrics(reg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	modifierService, err := modifiers.NewService(logg, modifiers.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create modifier service", err)
		os.Exit(1)
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Checkout.CartTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Logger:  logg,
		Store:   cartStore,
		Tickets: inventoryService,
		Pricer:  modifierService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Logger:    logg,
		Repo:      orders.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Outbox:    outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Inventory: inventoryService,
		Currency:  currency,
		Metrics:   metrics.NewOrderMetrics(reg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	gws, err := buildGateways(context.Background(), cfg, logg, orderService)
	if err != nil {
		logg.Error(context.Background(), "failed to build gateway registry", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Logger:   logg,
		Carts:    cartService,
		Gateways: gws.registry,
		Orders:   orderService,
		Locks:    redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	guard, err := idempotency.NewLedger(redisClient, cfg.Webhooks.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook idempotency guard", err)
		os.Exit(1)
	}
	webhookParams := webhooks.ServiceParams{
		Logger:       logg,
		Orders:       orderService,
		Guard:        guard,
		Metrics:      metrics.NewWebhookMetrics(reg),
		StripeSecret: gws.stripeSecret,
	}
	webhookConfigs := webhooks.NewRepository(dbClient.DB())
	if gws.paypal != nil {
		gws.paypal.UseWebhookConfigs(webhookConfigs)
		webhookParams.PayPal = gws.paypal
	}
	webhookService, err := webhooks.NewService(webhookParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}
	registrations, err := webhooks.NewRegistrations(logg, webhookConfigs, gws.registry)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook registrations", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(cfg, logg, routes.Services{
		Tickets:       inventoryService,
		Carts:         cartService,
		Checkout:      checkoutService,
		Refunds:       checkoutService,
		BuyerOrders:   orderService,
		AdminOrders:   orderService,
		Modifiers:     modifierService,
		Deliveries:    webhookService,
		Registrations: registrations,
		Readiness: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		Idempotency: redisClient,
		RateLimits:  redisClient,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID("local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"gateways": gws.registry.Keys(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}
