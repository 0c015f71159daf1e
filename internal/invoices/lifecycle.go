package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTransition indicates a lifecycle edge that is not allowed.
// It is a precondition violation, not a retryable fault.
var ErrInvalidTransition = errors.New("invalid invoice status transition")

// allowedEdges is the full lifecycle graph. PAID and VOID are terminal;
// OVERDUE is still payable and voidable.
var allowedEdges = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft:   {StatusSent, StatusVoid},
	StatusSent:    {StatusPaid, StatusOverdue, StatusVoid},
	StatusOverdue: {StatusPaid, StatusVoid},
}

// CanTransition reports whether from -> to is an allowed lifecycle edge.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range allowedEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle owns invoice status transitions. It validates edges, persists
// status and timestamps, and appends ledger entries. It never calls the
// network.
type Lifecycle struct {
	repo Repository
}

// NewLifecycle builds a Lifecycle over the given repository.
func NewLifecycle(repo Repository) *Lifecycle {
	return &Lifecycle{repo: repo}
}

// Transition moves an invoice to the target status.
//
// Requesting the current status is a no-op, which makes concurrent
// DRAFT->SENT requests safe: the second call finds the row already SENT and
// returns it unchanged. Entering SENT sets sentAt exactly once.
func (l *Lifecycle) Transition(ctx context.Context, invoiceID string, target InvoiceStatus) (*Invoice, error) {
	inv, err := l.repo.Get(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	if inv.Status == target {
		return inv, nil
	}

	if !CanTransition(inv.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, inv.Status, target)
	}

	from := inv.Status
	now := time.Now()

	if err := l.repo.SetStatus(ctx, invoiceID, target); err != nil {
		return nil, fmt.Errorf("persist status: %w", err)
	}
	if target == StatusSent {
		if err := l.repo.MarkSent(ctx, invoiceID, now); err != nil {
			return nil, fmt.Errorf("mark sent: %w", err)
		}
	}

	if err := l.repo.InsertEvent(ctx, InvoiceEvent{
		InvoiceID: invoiceID,
		Type:      EventStatusChange,
		Status:    EventSuccess,
		Channel:   ChannelSystem,
		Detail:    map[string]any{"from": string(from), "to": string(target)},
	}); err != nil {
		return nil, fmt.Errorf("record transition: %w", err)
	}

	return l.repo.Get(ctx, invoiceID)
}
