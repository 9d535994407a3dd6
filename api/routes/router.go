package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercadito-dev/mercadito-backend/api/controllers"
	webhookcontrollers "github.com/mercadito-dev/mercadito-backend/api/controllers/webhooks"
	"github.com/mercadito-dev/mercadito-backend/api/middleware"
	checkoutsvc "github.com/mercadito-dev/mercadito-backend/internal/checkout"
	"github.com/mercadito-dev/mercadito-backend/internal/reconcile"
	"github.com/mercadito-dev/mercadito-backend/internal/webhookevents"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	"github.com/mercadito-dev/mercadito-backend/pkg/db"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/metrics"
	"github.com/mercadito-dev/mercadito-backend/pkg/redis"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        db.Pinger
	Redis           *redis.Client
	CheckoutService checkoutsvc.Service
	Reconciler      reconcile.Service
	WebhookEvents   webhookevents.Service
	WebhookMetrics  *metrics.WebhookMetrics
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DBPinger, params.Redis))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", controllers.Checkout(params.CheckoutService, logg))

		r.With(middleware.VerifyRateLimit(cfg.RateLimit, params.Redis, logg)).
			Get("/payments/verify", controllers.VerifyPayment(params.Reconciler, params.WebhookMetrics, logg))

		r.Post("/webhooks/mercadopago", webhookcontrollers.MercadoPago(
			params.Reconciler,
			params.WebhookEvents,
			cfg.MercadoPago,
			params.WebhookMetrics,
			logg,
		))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.JWT, logg))

		r.Get("/webhooks", controllers.AdminListWebhookEvents(params.WebhookEvents, logg))
		r.Post("/webhooks/{id}/retry", controllers.AdminRetryWebhookEvent(params.Reconciler, logg))
	})

	if params.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	return r
}
