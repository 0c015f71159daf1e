package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// PaidNotifier triggers the internal paid alert. Implemented by the notify
// dispatcher; the alert path carries its own idempotence guard, so calling it
// on every replayed event is safe.
type PaidNotifier interface {
	NotifyInvoicePaid(ctx context.Context, invoiceID string) error
}

// Reconciler applies verified webhook events to payment and invoice state.
// Every path is safe under redelivery: each step is individually idempotent,
// so a replayed event re-walks them all and completes whatever an earlier
// delivery left unfinished.
type Reconciler struct {
	payments  Repository
	lifecycle *invoices.Lifecycle
	notifier  PaidNotifier
	logger    *slog.Logger
}

// NewReconciler builds a Reconciler.
func NewReconciler(payments Repository, lifecycle *invoices.Lifecycle, notifier PaidNotifier, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{payments: payments, lifecycle: lifecycle, notifier: notifier, logger: logger}
}

// Process handles one verified event. A nil return means the provider should
// consider the event delivered, including for no-op outcomes.
func (r *Reconciler) Process(ctx context.Context, evt *WebhookEvent) error {
	switch evt.Kind {
	case KindPaymentSucceeded:
		return r.applySucceeded(ctx, evt)
	case KindPaymentFailed:
		count, err := r.payments.MarkFailedByRef(ctx, evt.Ref)
		if err != nil {
			return fmt.Errorf("mark payment failed: %w", err)
		}
		if count == 0 {
			r.logger.Info("failed event for unknown reference",
				slog.String("provider", string(evt.Provider)), slog.String("ref", evt.Ref))
		}
		return nil
	default:
		return nil
	}
}

func (r *Reconciler) applySucceeded(ctx context.Context, evt *WebhookEvent) error {
	payment, err := r.payments.GetByProviderRef(ctx, evt.Ref)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A reference we never minted: most likely a charge created
			// directly in the provider dashboard. Acknowledge and move on.
			r.logger.Info("success event for unknown reference",
				slog.String("provider", string(evt.Provider)), slog.String("ref", evt.Ref))
			return nil
		}
		return fmt.Errorf("load payment: %w", err)
	}

	if payment.Status != PaymentSucceeded {
		if err := r.payments.MarkSucceeded(ctx, payment.ID, evt.Raw, time.Now()); err != nil {
			return fmt.Errorf("mark payment succeeded: %w", err)
		}
	}

	// The transition and the alert run on replays too. A crash between marking
	// the payment and moving the invoice would otherwise strand it in SENT
	// forever; the redelivered event is the retry. PAID to PAID is a lifecycle
	// no-op and the notifier carries its own paidNotifiedAt guard.
	if _, err := r.lifecycle.Transition(ctx, payment.InvoiceID, invoices.StatusPaid); err != nil {
		if !errors.Is(err, invoices.ErrInvalidTransition) {
			return fmt.Errorf("transition invoice paid: %w", err)
		}
		// A paid draft or void invoice is a bookkeeping anomaly, not a
		// reason to bounce the webhook into the provider's retry queue.
		r.logger.Warn("invoice not transitionable to paid",
			slog.String("invoice_id", payment.InvoiceID), slog.Any("error", err))
	}

	if err := r.notifier.NotifyInvoicePaid(ctx, payment.InvoiceID); err != nil {
		r.logger.Error("notify invoice paid",
			slog.String("invoice_id", payment.InvoiceID), slog.Any("error", err))
	}
	return nil
}
