package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

func newTestReconciler() (*Reconciler, *mockPaymentRepo, *mockInvoiceRepo, *stubNotifier) {
	payRepo := newMockPaymentRepo()
	invRepo := newMockInvoiceRepo()
	notifier := &stubNotifier{}
	rec := NewReconciler(payRepo, invoices.NewLifecycle(invRepo), notifier, slog.Default())
	return rec, payRepo, invRepo, notifier
}

func seedPending(payRepo *mockPaymentRepo, invoiceID, ref string) string {
	id, _ := payRepo.Create(context.Background(), Payment{
		InvoiceID:   invoiceID,
		Provider:    ProviderStripe,
		ProviderRef: ref,
		Amount:      decimal.NewFromInt(1840),
		Currency:    "USD",
	})
	return id
}

func succeededEvent(ref string) *WebhookEvent {
	return &WebhookEvent{
		Provider: ProviderStripe,
		EventID:  "evt_1",
		Type:     "checkout.session.completed",
		Kind:     KindPaymentSucceeded,
		Ref:      ref,
		Raw:      json.RawMessage(`{"id":"evt_1"}`),
	}
}

func TestReconcilerSucceeded(t *testing.T) {
	rec, payRepo, invRepo, notifier := newTestReconciler()
	invRepo.seed("inv-1", invoices.StatusSent)
	id := seedPending(payRepo, "inv-1", "cs_1")

	require.NoError(t, rec.Process(context.Background(), succeededEvent("cs_1")))

	p := payRepo.payments[id]
	assert.Equal(t, PaymentSucceeded, p.Status)
	assert.JSONEq(t, `{"id":"evt_1"}`, string(p.RawPayload))
	require.NotNil(t, p.ProcessedAt)

	inv, _ := invRepo.Get(context.Background(), "inv-1")
	assert.Equal(t, invoices.StatusPaid, inv.Status)
	assert.Equal(t, []string{"inv-1"}, notifier.notified)
}

func TestReconcilerOverdueInvoiceStillPayable(t *testing.T) {
	rec, payRepo, invRepo, _ := newTestReconciler()
	invRepo.seed("inv-1", invoices.StatusOverdue)
	seedPending(payRepo, "inv-1", "cs_1")

	require.NoError(t, rec.Process(context.Background(), succeededEvent("cs_1")))

	inv, _ := invRepo.Get(context.Background(), "inv-1")
	assert.Equal(t, invoices.StatusPaid, inv.Status)
}

func TestReconcilerReplayKeepsFirstPayload(t *testing.T) {
	rec, payRepo, invRepo, notifier := newTestReconciler()
	invRepo.seed("inv-1", invoices.StatusSent)
	id := seedPending(payRepo, "inv-1", "cs_1")

	require.NoError(t, rec.Process(context.Background(), succeededEvent("cs_1")))
	first := *payRepo.payments[id].ProcessedAt

	replay := succeededEvent("cs_1")
	replay.Raw = json.RawMessage(`{"id":"evt_1","redelivery":true}`)
	require.NoError(t, rec.Process(context.Background(), replay))

	p := payRepo.payments[id]
	assert.JSONEq(t, `{"id":"evt_1"}`, string(p.RawPayload), "replay must not overwrite the payload")
	assert.Equal(t, first, *p.ProcessedAt)

	inv, _ := invRepo.Get(context.Background(), "inv-1")
	assert.Equal(t, invoices.StatusPaid, inv.Status)
	assert.Equal(t, []string{"inv-1", "inv-1"}, notifier.notified,
		"the notifier runs per delivery; its own guard dedupes the alert")
}

func TestReconcilerReplayFinishesInterruptedDelivery(t *testing.T) {
	rec, payRepo, invRepo, notifier := newTestReconciler()
	invRepo.seed("inv-1", invoices.StatusSent)

	// A crash after MarkSucceeded leaves the payment done but the invoice
	// untouched. The provider's redelivery must pick up where it left off.
	id := seedPending(payRepo, "inv-1", "cs_1")
	payRepo.payments[id].Status = PaymentSucceeded

	require.NoError(t, rec.Process(context.Background(), succeededEvent("cs_1")))

	inv, _ := invRepo.Get(context.Background(), "inv-1")
	assert.Equal(t, invoices.StatusPaid, inv.Status)
	assert.Equal(t, []string{"inv-1"}, notifier.notified)
}

func TestReconcilerUnknownRefIsNoop(t *testing.T) {
	rec, _, _, notifier := newTestReconciler()

	require.NoError(t, rec.Process(context.Background(), succeededEvent("cs_unknown")),
		"unknown references are acknowledged, not retried")
	assert.Empty(t, notifier.notified)
}

func TestReconcilerFailedMarksPayment(t *testing.T) {
	rec, payRepo, invRepo, notifier := newTestReconciler()
	invRepo.seed("inv-1", invoices.StatusSent)
	id := seedPending(payRepo, "inv-1", "cs_1")

	evt := succeededEvent("cs_1")
	evt.Kind = KindPaymentFailed
	require.NoError(t, rec.Process(context.Background(), evt))

	assert.Equal(t, PaymentFailed, payRepo.payments[id].Status)
	inv, _ := invRepo.Get(context.Background(), "inv-1")
	assert.Equal(t, invoices.StatusSent, inv.Status, "failed payments never move the invoice")
	assert.Empty(t, notifier.notified)
}

func TestReconcilerIgnoredKind(t *testing.T) {
	rec, payRepo, _, notifier := newTestReconciler()
	seedPending(payRepo, "inv-1", "cs_1")

	evt := succeededEvent("cs_1")
	evt.Kind = KindIgnored
	require.NoError(t, rec.Process(context.Background(), evt))

	assert.Equal(t, PaymentPending, payRepo.payments["pay-1"].Status)
	assert.Empty(t, notifier.notified)
}

func TestReconcilerDraftInvoiceAnomalyStillAcks(t *testing.T) {
	rec, payRepo, invRepo, notifier := newTestReconciler()
	invRepo.seed("inv-1", invoices.StatusDraft)
	id := seedPending(payRepo, "inv-1", "cs_1")

	require.NoError(t, rec.Process(context.Background(), succeededEvent("cs_1")),
		"an invalid lifecycle edge must not bounce the webhook")

	assert.Equal(t, PaymentSucceeded, payRepo.payments[id].Status)
	assert.Equal(t, []string{"inv-1"}, notifier.notified)
}
