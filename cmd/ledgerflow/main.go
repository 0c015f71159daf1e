package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledgerflow/ledgerflow/internal/app"
	"github.com/ledgerflow/ledgerflow/internal/customers"
	"github.com/ledgerflow/ledgerflow/internal/integrations"
	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/notify"
	"github.com/ledgerflow/ledgerflow/internal/payments"
	"github.com/ledgerflow/ledgerflow/internal/platform/cache"
	"github.com/ledgerflow/ledgerflow/internal/platform/db"
	"github.com/ledgerflow/ledgerflow/internal/workspaces"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, webhook dedup disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	invoiceRepo := invoices.NewRepository(pool)
	customerRepo := customers.NewRepository(pool)
	workspaceRepo := workspaces.NewRepository(pool)
	paymentRepo := payments.NewRepository(pool)
	apiKeyRepo := integrations.NewRepository(pool)

	lifecycle := invoices.NewLifecycle(invoiceRepo)
	ledger := invoices.NewLedger(invoiceRepo)
	invoiceService := invoices.NewService(invoiceRepo)

	renderer := notify.NewRenderer(cfg.AppBaseURL)
	emailSender := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SendTimeout)
	smsSender := notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, cfg.SendTimeout)

	dispatcher := notify.NewDispatcher(notify.DispatcherConfig{
		Invoices:        invoiceRepo,
		Customers:       customerRepo,
		Workspaces:      workspaceRepo,
		Lifecycle:       lifecycle,
		Ledger:          ledger,
		Email:           emailSender,
		SMS:             smsSender,
		Renderer:        renderer,
		Logger:          logger,
		AlertRecipients: cfg.AlertRecipients(),
		SendTimeout:     cfg.SendTimeout,
	})

	var providers []payments.LinkProvider
	var verifiers []payments.Verifier
	if cfg.StripeSecretKey != "" {
		providers = append(providers, payments.NewStripeProvider(cfg.StripeSecretKey, cfg.AppBaseURL))
	}
	if cfg.StripeWebhookSecret != "" {
		verifiers = append(verifiers, payments.NewStripeVerifier(cfg.StripeWebhookSecret))
	}
	if cfg.SquareAccessToken != "" && cfg.SquareLocationID != "" {
		providers = append(providers, payments.NewSquareProvider(cfg.SquareAccessToken, cfg.SquareLocationID, cfg.SquareEnvironment))
	}
	if cfg.SquareWebhookSecret != "" {
		verifiers = append(verifiers, payments.NewSquareVerifier(cfg.SquareWebhookSecret, cfg.AppBaseURL+"/webhooks/square"))
	}

	paymentService := payments.NewService(providers, paymentRepo, invoiceRepo, logger, cfg.ProviderTimeout)
	reconciler := payments.NewReconciler(paymentRepo, lifecycle, dispatcher, logger)
	eventCache := cache.NewEventCache(redisClient, cfg.WebhookEventTTL)

	apiKeyService := integrations.NewService(apiKeyRepo)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		Invoices:     invoices.NewHandler(logger, invoiceService, lifecycle, paymentService),
		Notify:       notify.NewHandler(logger, dispatcher),
		Payments:     payments.NewHandler(logger, paymentService, reconciler, verifiers, eventCache),
		Integrations: integrations.NewHandler(logger, apiKeyService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
