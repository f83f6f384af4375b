package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/localbites/kiosk-backend/api/routes"
	"github.com/localbites/kiosk-backend/internal/alerts"
	"github.com/localbites/kiosk-backend/internal/orders"
	"github.com/localbites/kiosk-backend/internal/payments"
	"github.com/localbites/kiosk-backend/internal/terminals"
	"github.com/localbites/kiosk-backend/pkg/config"
	"github.com/localbites/kiosk-backend/pkg/db"
	"github.com/localbites/kiosk-backend/pkg/enums"
	"github.com/localbites/kiosk-backend/pkg/logger"
	"github.com/localbites/kiosk-backend/pkg/migrate"
	"github.com/localbites/kiosk-backend/pkg/outbox"
	"github.com/localbites/kiosk-backend/pkg/pubsub"
	"github.com/localbites/kiosk-backend/pkg/redis"
	"github.com/localbites/kiosk-backend/pkg/square"
)

const shutdownGrace = 15 * time.Second

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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	squareClient, err := square.NewClient(context.Background(), cfg.Square, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap square client", err)
		os.Exit(1)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	terminalsService, err := terminals.NewService(
		terminals.NewRepository(dbClient.DB()),
		dbClient,
		emitter,
		cfg.JWT,
		cfg.Sessions,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create terminals service", err)
		os.Exit(1)
	}

	pricer, err := orders.NewPricer(cfg.Pricing)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricer", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(
		ordersRepo,
		dbClient,
		emitter,
		terminalsService,
		pricer,
		enums.Currency(cfg.Pricing.Currency),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(ordersService, ordersRepo, squareClient, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	replayGuard, err := payments.NewReplayGuard(redisClient, cfg.Eventing.WebhookGuardTTL, "square")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook replay guard", err)
		os.Exit(1)
	}

	alertsService, err := alerts.NewService(alerts.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create alerts service", err)
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
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Redis:       redisClient,
			DB:          dbClient,
			PubSub:      pubsubClient,
			Terminals:   terminalsService,
			Orders:      ordersService,
			Payments:    paymentsService,
			Webhook:     paymentsService,
			Verifier:    squareClient,
			ReplayGuard: replayGuard,
			Alerts:      alertsService,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining connections")
		graceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
