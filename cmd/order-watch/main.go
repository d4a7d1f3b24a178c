package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/angelmondragon/marketcart/internal/marketapi"
	"github.com/angelmondragon/marketcart/internal/realtime"
	"github.com/angelmondragon/marketcart/pkg/config"
	"github.com/angelmondragon/marketcart/pkg/enums"
	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/redis"
	"github.com/angelmondragon/marketcart/pkg/session"
)

// order-watch keeps a local view of one account's orders live over the push
// channel and prints every change with the statuses the account may move it to.
// Once the channel has given up the view is polled instead; SIGHUP forces a
// reconnect.
func main() {
	logg := logger.New(logger.Options{ServiceName: "order-watch"})
	_ = godotenv.Load()

	account := flag.String("account", "", "account or vendor id whose channel to follow")
	limit := flag.Int("limit", 50, "orders to load before following")
	roleFlag := flag.String("role", string(enums.ActorRoleBuyer), "role of the account: buyer or vendor")
	flag.Parse()

	accountID, err := uuid.Parse(*account)
	if err != nil {
		fmt.Fprintln(os.Stderr, "missing or invalid -account")
		os.Exit(2)
	}
	role := enums.ActorRole(*roleFlag)
	if role != enums.ActorRoleBuyer && role != enums.ActorRoleVendor {
		fmt.Fprintln(os.Stderr, "-role must be buyer or vendor")
		os.Exit(2)
	}

	cfg, err := config.LoadClient()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "order-watch",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithAccountID(ctx, accountID.String())

	httpClient := &http.Client{Timeout: cfg.Client.Timeout}
	state := session.NewState(session.Credentials{
		AccessToken:  cfg.Client.AccessToken,
		RefreshToken: cfg.Client.RefreshTok,
	})
	var refresher session.Refresher
	if cfg.Client.RefreshURL != "" {
		refresher = marketapi.NewTokenRefresher(cfg.Client.RefreshURL, httpClient)
	}
	api, err := marketapi.NewClient(cfg.Client.BaseURL, session.NewGuard(state, refresher, logg),
		marketapi.WithHTTPClient(httpClient),
		marketapi.WithLogger(logg),
	)
	requireResource(ctx, logg, "api client", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	view := realtime.NewOrderView(api, logg)
	initial, err := api.ListOrders(ctx, nil, *limit)
	requireResource(ctx, logg, "initial order list", err)
	view.Load(initial)
	w := &watcher{out: os.Stdout, role: role, view: view, logg: logg}
	for _, o := range view.Snapshot() {
		w.print(o)
	}

	handler := func(ctx context.Context, evt realtime.Event) {
		view.Handle(ctx, evt)
		if update, err := evt.OrderUpdate(); err == nil {
			if o, found := view.Get(update.OrderID); found {
				w.print(o)
			}
		}
	}

	dialer := realtime.NewRedisDialer(redisClient, cfg.Realtime.ChannelPrefix, accountID)
	notifier := realtime.NewNotifier(dialer, handler, realtime.Options{
		BaseDelay:   cfg.Realtime.BaseDelay,
		MaxAttempts: cfg.Realtime.MaxAttempts,
		Logger:      logg,
		OnStatus:    w.observe,
	})
	notifier.Start(ctx)
	defer notifier.Close()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ticker := time.NewTicker(cfg.Realtime.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-notifier.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		case <-hup:
			logg.Info(ctx, "manual reconnect requested")
			notifier.Reconnect()
		}
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
