package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mercadito-dev/mercadito-backend/api/routes"
	"github.com/mercadito-dev/mercadito-backend/internal/checkout"
	"github.com/mercadito-dev/mercadito-backend/internal/checkoutorders"
	"github.com/mercadito-dev/mercadito-backend/internal/drafts"
	"github.com/mercadito-dev/mercadito-backend/internal/notifications"
	"github.com/mercadito-dev/mercadito-backend/internal/orders"
	"github.com/mercadito-dev/mercadito-backend/internal/paymentattempts"
	"github.com/mercadito-dev/mercadito-backend/internal/payments"
	"github.com/mercadito-dev/mercadito-backend/internal/reconcile"
	"github.com/mercadito-dev/mercadito-backend/internal/webhookevents"
	"github.com/mercadito-dev/mercadito-backend/pkg/config"
	"github.com/mercadito-dev/mercadito-backend/pkg/db"
	"github.com/mercadito-dev/mercadito-backend/pkg/logger"
	"github.com/mercadito-dev/mercadito-backend/pkg/mercadopago"
	"github.com/mercadito-dev/mercadito-backend/pkg/metrics"
	"github.com/mercadito-dev/mercadito-backend/pkg/migrate"
	"github.com/mercadito-dev/mercadito-backend/pkg/redis"
)

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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gateway, err := mercadopago.NewClient(cfg.MercadoPago)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	gormDB := dbClient.DB()
	draftsRepo := drafts.NewRepository(gormDB)
	cosRepo := checkoutorders.NewRepository(gormDB)
	productsRepo := orders.NewProductRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	attemptsRepo := paymentattempts.NewRepository(gormDB)
	paymentsRepo := payments.NewRepository(gormDB)
	eventsRepo := webhookevents.NewRepository(gormDB)

	notifySvc, err := notifications.NewService(notifications.NewRepository(gormDB), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	accessRouter, err := payments.NewAccessRouter(paymentsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create access router", err)
		os.Exit(1)
	}

	materializer, err := orders.NewService(orders.ServiceParams{
		Repo:          ordersRepo,
		Products:      productsRepo,
		Drafts:        draftsRepo,
		Notifications: notifySvc,
		Tx:            dbClient,
		Logger:        logg,
		NumberPrefix:  cfg.Orders.NumberPrefix,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order materializer", err)
		os.Exit(1)
	}

	eventsSvc, err := webhookevents.NewService(webhookevents.ServiceParams{
		Repo:            eventsRepo,
		Logger:          logg,
		PayloadMaxBytes: cfg.Webhooks.PayloadMaxBytes,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook event ledger", err)
		os.Exit(1)
	}

	reconciler, err := reconcile.NewService(reconcile.ServiceParams{
		Gateway:        gateway,
		CheckoutOrders: cosRepo,
		Drafts:         draftsRepo,
		Attempts:       attemptsRepo,
		Payments:       paymentsRepo,
		Access:         accessRouter,
		Materializer:   materializer,
		Events:         eventsSvc,
		Tx:             dbClient,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation service", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Gateway:        gateway,
		Drafts:         draftsRepo,
		CheckoutOrders: cosRepo,
		Products:       productsRepo,
		Tx:             dbClient,
		Logger:         logg,
		Orders:         cfg.Orders,
		ReturnURLs:     cfg.MercadoPago,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			Redis:           redisClient,
			CheckoutService: checkoutSvc,
			Reconciler:      reconciler,
			WebhookEvents:   eventsSvc,
			WebhookMetrics:  webhookMetrics,
			MetricsGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
