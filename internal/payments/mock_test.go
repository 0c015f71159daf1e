package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// mockPaymentRepo is an in-memory Repository with error injection.
type mockPaymentRepo struct {
	payments map[string]*Payment
	nextID   int

	createError error
	markError   error
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[string]*Payment), nextID: 1}
}

func (m *mockPaymentRepo) Create(ctx context.Context, p Payment) (string, error) {
	if m.createError != nil {
		return "", m.createError
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("pay-%d", m.nextID)
		m.nextID++
	}
	if p.Status == "" {
		p.Status = PaymentPending
	}
	p.CreatedAt = time.Now()
	m.payments[p.ID] = &p
	return p.ID, nil
}

func (m *mockPaymentRepo) GetByProviderRef(ctx context.Context, ref string) (*Payment, error) {
	for _, p := range m.payments {
		if p.ProviderRef == ref {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockPaymentRepo) MarkSucceeded(ctx context.Context, id string, raw json.RawMessage, processedAt time.Time) error {
	if m.markError != nil {
		return m.markError
	}
	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = PaymentSucceeded
	p.RawPayload = raw
	p.ProcessedAt = &processedAt
	return nil
}

func (m *mockPaymentRepo) MarkFailedByRef(ctx context.Context, ref string) (int64, error) {
	var n int64
	for _, p := range m.payments {
		if p.ProviderRef == ref {
			p.Status = PaymentFailed
			n++
		}
	}
	return n, nil
}

func (m *mockPaymentRepo) ListByInvoice(ctx context.Context, invoiceID string) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// mockInvoiceRepo covers the slice of invoices.Repository this package touches.
type mockInvoiceRepo struct {
	invoices map[string]*invoices.Invoice
	events   map[string][]invoices.InvoiceEvent
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[string]*invoices.Invoice),
		events:   make(map[string][]invoices.InvoiceEvent),
	}
}

func (m *mockInvoiceRepo) seed(id string, status invoices.InvoiceStatus) *invoices.Invoice {
	inv := invoices.Invoice{
		ID:          id,
		WorkspaceID: "ws-1",
		CustomerID:  "cust-1",
		Number:      "INV-2040",
		Currency:    "USD",
		Status:      status,
		IssueDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Subtotal:    decimal.NewFromInt(1840),
		Total:       decimal.NewFromInt(1840),
		Lines: []invoices.InvoiceLine{{
			ID:          "line-1",
			InvoiceID:   id,
			Description: "Design retainer",
			Quantity:    4,
			UnitPrice:   decimal.NewFromInt(460),
			Amount:      decimal.NewFromInt(1840),
			SortOrder:   1,
		}},
	}
	m.invoices[id] = &inv
	return &inv
}

func (m *mockInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, invoices.Repository) error) error {
	return fn(ctx, m)
}

func (m *mockInvoiceRepo) Get(ctx context.Context, id string) (*invoices.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, invoices.ErrNotFound
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, workspaceID, number string) (*invoices.Invoice, error) {
	return nil, invoices.ErrNotFound
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv invoices.Invoice) (string, error) {
	return "", nil
}

func (m *mockInvoiceRepo) UpdateHeader(ctx context.Context, inv invoices.Invoice) error { return nil }
func (m *mockInvoiceRepo) Delete(ctx context.Context, id string) error                  { return nil }

func (m *mockInvoiceRepo) InsertLine(ctx context.Context, line invoices.InvoiceLine) (string, error) {
	return "", nil
}

func (m *mockInvoiceRepo) DeleteLines(ctx context.Context, invoiceID string) error { return nil }

func (m *mockInvoiceRepo) SetStatus(ctx context.Context, id string, status invoices.InvoiceStatus) error {
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *mockInvoiceRepo) MarkSent(ctx context.Context, id string, at time.Time) error { return nil }

func (m *mockInvoiceRepo) SetPaymentLinkURL(ctx context.Context, id, url string) error {
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	inv.PaymentLinkURL = &url
	return nil
}

func (m *mockInvoiceRepo) MarkOpened(ctx context.Context, id string, at time.Time) error { return nil }

func (m *mockInvoiceRepo) SetPaidNotified(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (m *mockInvoiceRepo) InsertEvent(ctx context.Context, ev invoices.InvoiceEvent) error {
	m.events[ev.InvoiceID] = append(m.events[ev.InvoiceID], ev)
	return nil
}

func (m *mockInvoiceRepo) ListEvents(ctx context.Context, invoiceID string) ([]invoices.InvoiceEvent, error) {
	return m.events[invoiceID], nil
}

func (m *mockInvoiceRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]invoices.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceRepo) GenerateNumber(ctx context.Context, workspaceID string, date time.Time) (string, error) {
	return "INV-260001", nil
}

// stubProvider is a scripted LinkProvider.
type stubProvider struct {
	name  Provider
	link  *Link
	err   error
	calls int
	last  *invoices.Invoice
}

func (s *stubProvider) Name() Provider { return s.name }

func (s *stubProvider) CreateLink(ctx context.Context, inv *invoices.Invoice) (*Link, error) {
	s.calls++
	s.last = inv
	if s.err != nil {
		return nil, s.err
	}
	return s.link, nil
}

// stubNotifier records paid notifications.
type stubNotifier struct {
	notified []string
	err      error
}

func (s *stubNotifier) NotifyInvoicePaid(ctx context.Context, invoiceID string) error {
	s.notified = append(s.notified, invoiceID)
	return s.err
}
