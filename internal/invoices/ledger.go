package invoices

import (
	"context"
	"fmt"
)

// Ledger appends audit entries for an invoice. Entries are append-only: one
// writer per event, no updates. Idempotence checks for "did we already notify"
// live on denormalized invoice timestamps (paidNotifiedAt, firstOpenedAt),
// not ledger scans; the ledger remains the audit trail of record.
type Ledger struct {
	repo Repository
}

// NewLedger builds a Ledger over the given repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Record appends one entry. It fails only when the invoice does not exist.
func (l *Ledger) Record(ctx context.Context, invoiceID string, typ EventType, status EventStatus, channel EventChannel, detail map[string]any) error {
	if err := l.repo.InsertEvent(ctx, InvoiceEvent{
		InvoiceID: invoiceID,
		Type:      typ,
		Status:    status,
		Channel:   channel,
		Detail:    detail,
	}); err != nil {
		return fmt.Errorf("ledger record %s: %w", typ, err)
	}
	return nil
}
