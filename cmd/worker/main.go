package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ledgerflow/ledgerflow/internal/app"
	"github.com/ledgerflow/ledgerflow/internal/customers"
	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/notify"
	"github.com/ledgerflow/ledgerflow/internal/platform/db"
	"github.com/ledgerflow/ledgerflow/internal/workspaces"
	"github.com/ledgerflow/ledgerflow/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	invoiceRepo := invoices.NewRepository(pool)
	customerRepo := customers.NewRepository(pool)
	workspaceRepo := workspaces.NewRepository(pool)
	lifecycle := invoices.NewLifecycle(invoiceRepo)
	ledger := invoices.NewLedger(invoiceRepo)

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

	client := jobs.NewClient(redisOpts)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	overdueJob := jobs.NewOverdueScanJob(invoiceRepo, lifecycle, client, logger)
	reminderJob := jobs.NewReminderJob(dispatcher, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeOverdueScan, Handler: overdueJob.Handle},
			{Type: jobs.TaskTypeReminder, Handler: reminderJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 6 * * *", Task: jobs.NewOverdueScanTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
