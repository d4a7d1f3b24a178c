package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketcart/api/controllers"
	ordercontrollers "github.com/angelmondragon/marketcart/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/marketcart/api/controllers/webhooks"
	"github.com/angelmondragon/marketcart/api/middleware"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/logger"
	pkgredis "github.com/angelmondragon/marketcart/pkg/redis"
)

// RedisStore is what the router needs from redis: idempotency records and a
// readiness ping.
type RedisStore interface {
	pkgredis.IdempotencyStore
	controllers.Pinger
}

type Deps struct {
	DB        controllers.Pinger
	Redis     RedisStore
	Gatherer  prometheus.Gatherer
	Discounts discounts.Service
	Orders    orders.Service
	Checkout  controllers.CheckoutFor
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.With(middleware.WebhookSecret(cfg.Webhooks.PaymentSecret, logg)).
			Post("/payment", webhookcontrollers.Payment(deps.Orders, logg))
		r.With(middleware.WebhookSecret(cfg.Webhooks.CarrierSecret, logg)).
			Post("/carrier", webhookcontrollers.Carrier(deps.Orders, logg))
	})

	buyerOnly := middleware.RequireRole(logg, string(enums.ActorRoleBuyer))
	orderActors := middleware.RequireRole(logg,
		string(enums.ActorRoleBuyer), string(enums.ActorRoleVendor), string(enums.ActorRoleAdmin))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}

		r.Route("/discounts", func(r chi.Router) {
			r.Get("/", controllers.DiscountList(deps.Discounts, logg))
			r.Get("/eligible", controllers.DiscountEligible(deps.Discounts, logg))
			r.Post("/lookup", controllers.DiscountLookup(deps.Discounts, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Use(buyerOnly)
			r.Post("/quote", controllers.CheckoutQuote(deps.Checkout, logg))
			r.Post("/", controllers.CheckoutSubmit(deps.Checkout, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(orderActors)
			r.Get("/", ordercontrollers.List(deps.Orders, logg))
			r.With(buyerOnly).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				r.Get("/history", ordercontrollers.History(deps.Orders, logg))
				r.Patch("/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(deps.Orders, logg))
				r.With(buyerOnly).Post("/confirm-delivery", ordercontrollers.ConfirmDelivery(deps.Orders, logg))
				r.With(buyerOnly).Post("/retry-payment", ordercontrollers.RetryPayment(deps.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, string(enums.ActorRoleAdmin)))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, logg))
		}
		r.Patch("/discounts/{discountId}", controllers.AdminDiscountSetActive(deps.Discounts, logg))
		r.Get("/orders", ordercontrollers.List(deps.Orders, logg))
		r.Post("/orders/{orderId}/flag", ordercontrollers.AdminFlag(deps.Orders, logg))
		r.Patch("/orders/{orderId}/status", ordercontrollers.UpdateStatus(deps.Orders, logg))
	})

	return r
}
