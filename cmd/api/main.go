package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hirelocal/hirelocal-backend/api/routes"
	"github.com/hirelocal/hirelocal-backend/internal/accounts"
	"github.com/hirelocal/hirelocal-backend/internal/bookings"
	"github.com/hirelocal/hirelocal-backend/internal/checkout"
	"github.com/hirelocal/hirelocal-backend/internal/listings"
	"github.com/hirelocal/hirelocal-backend/internal/onboarding"
	stripewebhook "github.com/hirelocal/hirelocal-backend/internal/webhooks/stripe"
	"github.com/hirelocal/hirelocal-backend/pkg/config"
	"github.com/hirelocal/hirelocal-backend/pkg/db"
	"github.com/hirelocal/hirelocal-backend/pkg/featureflags"
	"github.com/hirelocal/hirelocal-backend/pkg/logger"
	"github.com/hirelocal/hirelocal-backend/pkg/metrics"
	"github.com/hirelocal/hirelocal-backend/pkg/migrate"
	"github.com/hirelocal/hirelocal-backend/pkg/outbox"
	"github.com/hirelocal/hirelocal-backend/pkg/redis"
	pkgstripe "github.com/hirelocal/hirelocal-backend/pkg/stripe"
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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	flagService := featureflags.NewService(redisClient, logg)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	accountsService, err := accounts.NewService(accounts.ServiceParams{
		Repo:   accounts.NewRepository(dbClient.DB()),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create accounts service", err)
		os.Exit(1)
	}

	onboardingService, err := onboarding.NewService(onboarding.ServiceParams{
		Accounts:          accountsService,
		Providers:         onboarding.NewProviderRepository(dbClient.DB()),
		Processor:         stripeClient,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Payments:          cfg.Payments,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create onboarding service", err)
		os.Exit(1)
	}

	transactionRepo := checkout.NewTransactionRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Transactions:      transactionRepo,
		Bookings:          bookings.NewRepository(dbClient.DB()),
		Accounts:          accountsService,
		Processor:         stripeClient,
		Flags:             flagService,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Payments:          cfg.Payments,
		Flag:              cfg.Flags,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	listingsService, err := listings.NewService(listings.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Payments.WebhookGuardTTL, "stripe")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}
	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Accounts:          accountsService,
		Transactions:      transactionRepo,
		Ledger:            stripewebhook.NewLedgerRepository(dbClient.DB()),
		Guard:             webhookGuard,
		TransactionRunner: dbClient,
		Outbox:            outboxService,
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:     cfg,
			Logger:     logg,
			Redis:      redisClient,
			Stripe:     stripeClient,
			Registry:   registry,
			Listings:   listingsService,
			Onboarding: onboardingService,
			Checkout:   checkoutService,
			WebhookSvc: webhookService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
