package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/boxoffice-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/cart"
	modifiercontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/modifiers"
	ordercontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/orders"
	ticketcontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/tickets"
	webhookcontrollers "github.com/angelmondragon/boxoffice-backend/api/controllers/webhooks"
	"github.com/angelmondragon/boxoffice-backend/api/middleware"
	pkgAuth "github.com/angelmondragon/boxoffice-backend/pkg/auth"
	"github.com/angelmondragon/boxoffice-backend/pkg/config"
	"github.com/angelmondragon/boxoffice-backend/pkg/logger"
	"github.com/angelmondragon/boxoffice-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/boxoffice-backend/pkg/redis"
)

// Services groups everything the router dispatches to. Nil pingers are
// skipped by readiness; nil stores disable the middleware they back.
type Services struct {
	Tickets       ticketcontrollers.Service
	Carts         cartcontrollers.Service
	Checkout      ordercontrollers.CheckoutService
	Refunds       ordercontrollers.Refunder
	BuyerOrders   ordercontrollers.BuyerService
	AdminOrders   ordercontrollers.AdminService
	Modifiers     modifiercontrollers.Service
	Deliveries    webhookcontrollers.DeliveryService
	Registrations webhookcontrollers.RegistrationService

	Readiness   map[string]controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	RateLimits  middleware.RateLimitStore
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, svc.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutLimit)
	couponPolicy := middleware.NewRateLimitPolicy("coupon", cfg.RateLimit.Window, cfg.RateLimit.CouponLimit)
	idempotent := middleware.Idempotency(svc.Idempotency, middleware.StandardIdempotencyTTL, logg)
	critical := middleware.Idempotency(svc.Idempotency, middleware.CriticalIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, svc.Readiness))
	})
	if svc.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/events/{eventId}/tickets", ticketcontrollers.ListByEvent(svc.Tickets, logg))
		r.Get("/tickets/{ticketId}", ticketcontrollers.Detail(svc.Tickets, logg))
		r.Get("/tickets/{ticketId}/stock", ticketcontrollers.Stock(svc.Tickets, logg))

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/paypal", webhookcontrollers.PayPal(svc.Deliveries, logg))
			r.Post("/stripe", webhookcontrollers.Stripe(svc.Deliveries, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(svc.Carts, logg))
				r.Delete("/", cartcontrollers.Clear(svc.Carts, logg))
				r.Get("/quote", cartcontrollers.Quote(svc.Carts, logg))
				r.With(idempotent).Post("/tickets", cartcontrollers.AddTicket(svc.Carts, logg))
				r.Delete("/tickets/{ticketId}", cartcontrollers.RemoveTicket(svc.Carts, logg))
				r.With(middleware.RateLimit(couponPolicy, svc.RateLimits, logg)).Post("/coupons", cartcontrollers.ApplyCoupon(svc.Carts, logg))
				r.Delete("/coupons/{modifierId}", cartcontrollers.RemoveCoupon(svc.Carts, logg))
			})

			r.Get("/checkout/gateways", ordercontrollers.Gateways(svc.Checkout, logg))
			r.With(
				middleware.RateLimit(checkoutPolicy, svc.RateLimits, logg),
				critical,
			).Post("/checkout", ordercontrollers.Checkout(svc.Checkout, logg))

			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(svc.BuyerOrders, logg))
				r.With(critical).Post("/cancel", ordercontrollers.Cancel(svc.BuyerOrders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(pkgAuth.RoleAdmin, logg))

		r.With(idempotent).Post("/tickets", ticketcontrollers.Create(svc.Tickets, logg))

		r.Route("/modifiers", func(r chi.Router) {
			r.Get("/", modifiercontrollers.List(svc.Modifiers, logg))
			r.With(idempotent).Post("/", modifiercontrollers.Create(svc.Modifiers, logg))
			r.Get("/{modifierId}", modifiercontrollers.Detail(svc.Modifiers, logg))
			r.Delete("/{modifierId}", modifiercontrollers.Deactivate(svc.Modifiers, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(svc.AdminOrders, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(svc.AdminOrders, logg))
			r.With(idempotent).Post("/{orderId}/status", ordercontrollers.AdminUpdateStatus(svc.AdminOrders, logg))
			r.With(idempotent).Post("/{orderId}/refund", ordercontrollers.AdminRefund(svc.Refunds, logg))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/", webhookcontrollers.CreateRegistration(svc.Registrations, logg))
			r.Get("/{gateway}", webhookcontrollers.GetRegistration(svc.Registrations, logg))
			r.Put("/{gateway}", webhookcontrollers.UpdateRegistration(svc.Registrations, logg))
			r.Delete("/{gateway}", webhookcontrollers.DeleteRegistration(svc.Registrations, logg))
		})
	})

	return r
}
