package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/marketcart/api/controllers"
	"github.com/angelmondragon/marketcart/api/routes"
	"github.com/angelmondragon/marketcart/internal/checkout"
	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/orders"
	"github.com/angelmondragon/marketcart/internal/pricing"
	"github.com/angelmondragon/marketcart/internal/realtime"
	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/db"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
	"github.com/angelmondragon/marketcart/pkg/migrate"
	"github.com/angelmondragon/marketcart/pkg/redis"
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := openDatabase(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(reg)
	orderMetrics := metrics.NewOrderMetrics(reg)
	realtimeMetrics := metrics.NewRealtimeMetrics(reg)

	publisher := realtime.NewPublisher(redisClient, cfg.Realtime.ChannelPrefix, logg, realtimeMetrics)
	engine := pricing.NewEngine(pricing.Policy{
		FlatShippingFee:       cfg.Checkout.FlatShippingFee,
		FreeShippingThreshold: cfg.Checkout.FreeShippingThreshold,
	})

	allocation, err := discounts.ParseAllocation(cfg.Checkout.ProductAllocation)
	if err != nil {
		logg.Error(ctx, "invalid product allocation", err)
		os.Exit(1)
	}
	discountRepo := discounts.NewRepository(dbClient.DB())
	offerSource := discounts.NewCachedSource(discountRepo, redisClient, cfg.Discounts.CacheTTL, logg)
	resolver := discounts.NewResolver(offerSource, allocation, logg, checkoutMetrics)
	discountService, err := discounts.NewService(discountRepo, offerSource, resolver, offerSource, publisher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create discount service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.Deps{
		Repo:      orders.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Discounts: discountRepo,
		Engine:    engine,
		Sequencer: redisClient,
		Publisher: publisher,
		Logger:    logg,
		Metrics:   orderMetrics,
	})
	if err != nil {
		logg.Error(ctx, "failed to create order service", err)
		os.Exit(1)
	}

	submitter := checkout.NewSubmitter(nil, cfg.Checkout.SubmitConcurrency, logg, checkoutMetrics)
	checkoutService, err := checkout.NewService(engine, resolver, submitter, logg)
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}
	checkoutFor := func(buyerID uuid.UUID) controllers.CheckoutService {
		return checkoutService.WithCreator(orderService.CreatorFor(buyerID))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			DB:        dbClient,
			Redis:     redisClient,
			Gatherer:  reg,
			Discounts: discountService,
			Orders:    orderService,
			Checkout:  checkoutFor,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, error) {
	if cfg.FeatureFlags.UseSQLite {
		return db.NewSQLite(ctx, cfg.DB.SQLitePath, logg)
	}
	return db.New(ctx, cfg.DB, logg)
}
