package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// OverdueScanJob walks SENT invoices past their due date, transitions each to
// OVERDUE, and enqueues a reminder dispatch for it. A failure on one invoice
// never stops the sweep.
type OverdueScanJob struct {
	Repo      invoices.Repository
	Lifecycle *invoices.Lifecycle
	Enqueuer  ReminderEnqueuer
	Logger    *slog.Logger
	clock     func() time.Time
}

// ReminderEnqueuer submits reminder tasks; satisfied by *Client.
type ReminderEnqueuer interface {
	EnqueueReminder(ctx context.Context, payload ReminderPayload) error
}

// NewOverdueScanJob initialises the overdue scan handler.
func NewOverdueScanJob(repo invoices.Repository, lifecycle *invoices.Lifecycle, enqueuer ReminderEnqueuer, logger *slog.Logger) *OverdueScanJob {
	return &OverdueScanJob{
		Repo:      repo,
		Lifecycle: lifecycle,
		Enqueuer:  enqueuer,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one sweep.
func (j *OverdueScanJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Repo == nil {
		return errors.New("overdue scan: handler not configured")
	}
	start := j.clock()

	due, err := j.Repo.ListOverdue(ctx, start)
	if err != nil {
		j.Logger.Error("overdue scan query failed", slog.Any("error", err))
		return err
	}

	var flipped, failed int
	for _, inv := range due {
		if _, err := j.Lifecycle.Transition(ctx, inv.ID, invoices.StatusOverdue); err != nil {
			failed++
			j.Logger.Error("mark invoice overdue",
				slog.String("invoice_id", inv.ID), slog.Any("error", err))
			continue
		}
		flipped++
		if j.Enqueuer == nil {
			continue
		}
		if err := j.Enqueuer.EnqueueReminder(ctx, ReminderPayload{InvoiceID: inv.ID}); err != nil {
			j.Logger.Error("enqueue reminder",
				slog.String("invoice_id", inv.ID), slog.Any("error", err))
		}
	}

	j.Logger.Info("completed overdue scan",
		slog.Int("candidates", len(due)),
		slog.Int("flipped", flipped),
		slog.Int("failed", failed),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
