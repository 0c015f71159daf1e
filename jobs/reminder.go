package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/notify"
)

// ReminderJob re-dispatches an overdue invoice through the normal channels.
type ReminderJob struct {
	Dispatcher *notify.Dispatcher
	Logger     *slog.Logger
}

// NewReminderJob initialises the reminder handler.
func NewReminderJob(dispatcher *notify.Dispatcher, logger *slog.Logger) *ReminderJob {
	return &ReminderJob{Dispatcher: dispatcher, Logger: logger}
}

// Handle dispatches one reminder. A vanished invoice skips retry; channel
// failures are already recorded in the event ledger, so the task itself
// succeeds whenever dispatch ran.
func (j *ReminderJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dispatcher == nil {
		return errors.New("reminder: handler not configured")
	}
	var payload ReminderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.InvoiceID == "" {
		return asynq.SkipRetry
	}

	result, err := j.Dispatcher.DispatchInvoice(ctx, payload.InvoiceID)
	if err != nil {
		if errors.Is(err, invoices.ErrNotFound) {
			j.Logger.Warn("reminder for missing invoice", slog.String("invoice_id", payload.InvoiceID))
			return asynq.SkipRetry
		}
		return err
	}

	j.Logger.Info("reminder dispatched",
		slog.String("invoice_id", payload.InvoiceID),
		slog.Bool("delivered", result.AnySuccess()),
	)
	return nil
}
