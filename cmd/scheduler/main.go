package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketcart/internal/discounts"
	"github.com/angelmondragon/marketcart/internal/jobs"
	"github.com/angelmondragon/marketcart/internal/realtime"
	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/db"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
	"github.com/angelmondragon/marketcart/pkg/redis"
)

const lockKeyFormat = "mc:scheduler:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "scheduler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "scheduler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	var dbClient *db.Client
	if cfg.FeatureFlags.UseSQLite {
		dbClient, err = db.NewSQLite(ctx, cfg.DB.SQLitePath, logg)
	} else {
		dbClient, err = db.New(ctx, cfg.DB, logg)
	}
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	reg := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(reg)
	publisher := realtime.NewPublisher(redisClient, cfg.Realtime.ChannelPrefix, logg, metrics.NewRealtimeMetrics(reg))

	allocation, err := discounts.ParseAllocation(cfg.Checkout.ProductAllocation)
	if err != nil {
		logg.Error(ctx, "invalid product allocation", err)
		os.Exit(1)
	}
	discountRepo := discounts.NewRepository(dbClient.DB())
	offerSource := discounts.NewCachedSource(discountRepo, redisClient, cfg.Discounts.CacheTTL, logg)
	discountService, err := discounts.NewService(discountRepo, offerSource,
		discounts.NewResolver(offerSource, allocation, logg, nil), offerSource, publisher, logg)
	if err != nil {
		logg.Error(ctx, "failed to create discount service", err)
		os.Exit(1)
	}

	expiry, err := jobs.NewOfferExpiryJob(discountRepo, discountService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create offer expiry job", err)
		os.Exit(1)
	}
	lock, err := jobs.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, cfg.App.Env), cfg.Scheduler.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create scheduler lock", err)
		os.Exit(1)
	}
	scheduler, err := jobs.NewScheduler(jobs.SchedulerParams{
		Logger:   logg,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: cfg.Scheduler.Interval,
		Jobs:     []jobs.Job{expiry},
	})
	if err != nil {
		logg.Error(ctx, "failed to create scheduler", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()
	defer metricsServer.Close()

	logg.Info(ctx, "starting scheduler")
	if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "scheduler stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "scheduler shutting down")
}
