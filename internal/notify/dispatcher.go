package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerflow/ledgerflow/internal/customers"
	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/workspaces"
)

// Outcome is one channel's dispatch result.
type Outcome struct {
	Success bool   `json:"success"`
	Err     string `json:"error,omitempty"`
}

// DispatchResult reports per-channel outcomes. A nil field means the channel
// was not attempted (no email on file, phone failed validation).
type DispatchResult struct {
	Email *Outcome `json:"email,omitempty"`
	SMS   *Outcome `json:"sms,omitempty"`
}

// AnySuccess reports whether at least one channel delivered.
func (r DispatchResult) AnySuccess() bool {
	return (r.Email != nil && r.Email.Success) || (r.SMS != nil && r.SMS.Success)
}

// OpenDetail captures requester context for an invoice-open event.
type OpenDetail struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Dispatcher orchestrates outbound invoice notifications: it renders content,
// fans out to the channel adapters, records every outcome in the event
// ledger, and advances lifecycle state on success.
type Dispatcher struct {
	invoices   invoices.Repository
	customers  customers.Repository
	workspaces workspaces.Repository
	lifecycle  *invoices.Lifecycle
	ledger     *invoices.Ledger
	email      EmailSender
	sms        SMSSender
	renderer   *Renderer
	logger     *slog.Logger

	// alertRecipients overrides workspace staff for internal alerts.
	alertRecipients []string
	sendTimeout     time.Duration
}

// DispatcherConfig collects Dispatcher dependencies.
type DispatcherConfig struct {
	Invoices        invoices.Repository
	Customers       customers.Repository
	Workspaces      workspaces.Repository
	Lifecycle       *invoices.Lifecycle
	Ledger          *invoices.Ledger
	Email           EmailSender
	SMS             SMSSender
	Renderer        *Renderer
	Logger          *slog.Logger
	AlertRecipients []string
	SendTimeout     time.Duration
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.SendTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		invoices:        cfg.Invoices,
		customers:       cfg.Customers,
		workspaces:      cfg.Workspaces,
		lifecycle:       cfg.Lifecycle,
		ledger:          cfg.Ledger,
		email:           cfg.Email,
		sms:             cfg.SMS,
		renderer:        cfg.Renderer,
		logger:          logger,
		alertRecipients: cfg.AlertRecipients,
		sendTimeout:     timeout,
	}
}

// DispatchInvoice sends the invoice to its customer over every deliverable
// channel. The two sends run concurrently and settle independently: one
// channel failing never blocks or fails the other, and partial failure is
// reported through the result, not an error. The only error is a missing
// invoice (or a failed relation load).
func (d *Dispatcher) DispatchInvoice(ctx context.Context, invoiceID string) (DispatchResult, error) {
	var result DispatchResult

	inv, err := d.invoices.Get(ctx, invoiceID)
	if err != nil {
		return result, err
	}
	cust, err := d.customers.Get(ctx, inv.CustomerID)
	if err != nil {
		return result, fmt.Errorf("load customer: %w", err)
	}
	ws, err := d.workspaces.Get(ctx, inv.WorkspaceID)
	if err != nil {
		return result, fmt.Errorf("load workspace: %w", err)
	}

	g := new(errgroup.Group)

	if cust.Email != nil && *cust.Email != "" {
		to := *cust.Email
		g.Go(func() error {
			result.Email = d.sendInvoiceEmail(ctx, inv, cust, ws.Name, to)
			return nil
		})
	}

	if phone := sanitizePhone(cust.Phone); phone != "" {
		g.Go(func() error {
			result.SMS = d.sendInvoiceSMS(ctx, inv, phone)
			return nil
		})
	}

	_ = g.Wait()

	if result.AnySuccess() && inv.Status == invoices.StatusDraft {
		if _, err := d.lifecycle.Transition(ctx, inv.ID, invoices.StatusSent); err != nil {
			// Concurrent dispatches race to the same edge; the loser finds
			// the row already SENT and Transition treats that as a no-op.
			d.logger.Warn("mark invoice sent", slog.String("invoice_id", inv.ID), slog.Any("error", err))
		}
	}

	return result, nil
}

func (d *Dispatcher) sendInvoiceEmail(ctx context.Context, inv *invoices.Invoice, cust *customers.Customer, workspaceName, to string) *Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	html, err := d.renderer.EmailHTML(inv, cust, workspaceName)
	if err != nil {
		d.record(ctx, inv.ID, invoices.EventSentEmail, invoices.EventFailed, invoices.ChannelEmail, map[string]any{"error": err.Error()})
		return &Outcome{Err: err.Error()}
	}

	res := d.email.SendEmail(sendCtx, EmailMessage{
		To:      []string{to},
		Subject: d.renderer.Subject(inv, workspaceName),
		HTML:    html,
		Text:    d.renderer.EmailText(inv),
	})
	if res.Success {
		d.record(ctx, inv.ID, invoices.EventSentEmail, invoices.EventSuccess, invoices.ChannelEmail, map[string]any{"provider_id": res.ID})
		return &Outcome{Success: true}
	}
	d.record(ctx, inv.ID, invoices.EventSentEmail, invoices.EventFailed, invoices.ChannelEmail, map[string]any{"error": res.Err})
	return &Outcome{Err: res.Err}
}

func (d *Dispatcher) sendInvoiceSMS(ctx context.Context, inv *invoices.Invoice, phone string) *Outcome {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	res := d.sms.SendSMS(sendCtx, SMSMessage{To: phone, Body: d.renderer.SMS(inv)})
	if res.Success {
		d.record(ctx, inv.ID, invoices.EventSentSMS, invoices.EventSuccess, invoices.ChannelSMS, map[string]any{"provider_id": res.SID})
		return &Outcome{Success: true}
	}
	d.record(ctx, inv.ID, invoices.EventSentSMS, invoices.EventFailed, invoices.ChannelSMS, map[string]any{"error": res.Err})
	return &Outcome{Err: res.Err}
}

// NotifyInvoicePaid sends the internal paid alert exactly once per invoice,
// guarded by paidNotifiedAt. The alert is sent before the guard is written,
// so a crash before the send leaves the operation retryable; a crash between
// send and guard write risks one duplicate alert. That narrow race is
// accepted: a missed paid alert costs more here than a rare duplicate.
func (d *Dispatcher) NotifyInvoicePaid(ctx context.Context, invoiceID string) error {
	inv, err := d.invoices.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.PaidNotifiedAt != nil {
		return nil
	}

	cust, err := d.customers.Get(ctx, inv.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer: %w", err)
	}

	d.sendStaffAlert(ctx, inv, cust, AlertPaid, OpenDetail{})

	if err := d.invoices.SetPaidNotified(ctx, inv.ID, time.Now()); err != nil {
		return fmt.Errorf("set paid-notified guard: %w", err)
	}
	d.record(ctx, inv.ID, invoices.EventPaidAlert, invoices.EventSuccess, invoices.ChannelSystem, nil)
	return nil
}

// RecordInvoiceOpen appends an OPENED ledger entry and maintains the open
// timestamps. The staff "opened" alert fires only on the transition into
// "has been opened", i.e. when firstOpenedAt was previously unset.
func (d *Dispatcher) RecordInvoiceOpen(ctx context.Context, invoiceID string, detail OpenDetail) error {
	inv, err := d.invoices.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	firstOpen := inv.FirstOpenedAt == nil

	if err := d.invoices.MarkOpened(ctx, inv.ID, time.Now()); err != nil {
		return fmt.Errorf("mark opened: %w", err)
	}

	eventDetail := map[string]any{}
	if detail.IP != "" {
		eventDetail["ip"] = detail.IP
	}
	if detail.UserAgent != "" {
		eventDetail["user_agent"] = detail.UserAgent
	}
	d.record(ctx, inv.ID, invoices.EventOpened, invoices.EventSuccess, invoices.ChannelSystem, eventDetail)

	if firstOpen {
		cust, err := d.customers.Get(ctx, inv.CustomerID)
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		d.sendStaffAlert(ctx, inv, cust, AlertOpened, detail)
	}
	return nil
}

// resolveAlertRecipients prefers the environment override list and falls back
// to workspace staff (members whose role is not MEMBER).
func (d *Dispatcher) resolveAlertRecipients(ctx context.Context, workspaceID string) []string {
	if len(d.alertRecipients) > 0 {
		return d.alertRecipients
	}
	members, err := d.workspaces.ListMembers(ctx, workspaceID)
	if err != nil {
		d.logger.Warn("list workspace members", slog.String("workspace_id", workspaceID), slog.Any("error", err))
		return nil
	}
	var out []string
	for _, m := range members {
		if m.IsStaff() {
			out = append(out, m.Email)
		}
	}
	return out
}

// sendStaffAlert is best effort: the outcome lands in the ledger either way
// and never propagates as an error.
func (d *Dispatcher) sendStaffAlert(ctx context.Context, inv *invoices.Invoice, cust *customers.Customer, kind AlertKind, detail OpenDetail) {
	recipients := d.resolveAlertRecipients(ctx, inv.WorkspaceID)
	if len(recipients) == 0 {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	html, text := d.renderer.AlertBodies(kind, inv, cust, detail)
	res := d.email.SendEmail(sendCtx, EmailMessage{
		To:      recipients,
		Subject: d.renderer.AlertSubject(kind, inv, cust),
		HTML:    html,
		Text:    text,
	})

	status := invoices.EventSuccess
	eventDetail := map[string]any{"kind": string(kind)}
	if !res.Success {
		status = invoices.EventFailed
		eventDetail["error"] = res.Err
	}
	d.record(ctx, inv.ID, invoices.EventAlertEmail, status, invoices.ChannelEmail, eventDetail)
}

// record appends a ledger entry; ledger failures are logged, not raised, so
// an audit hiccup cannot abort a send that already happened.
func (d *Dispatcher) record(ctx context.Context, invoiceID string, typ invoices.EventType, status invoices.EventStatus, channel invoices.EventChannel, detail map[string]any) {
	if err := d.ledger.Record(ctx, invoiceID, typ, status, channel, detail); err != nil {
		d.logger.Error("record invoice event",
			slog.String("invoice_id", invoiceID),
			slog.String("type", string(typ)),
			slog.Any("error", err))
	}
}
