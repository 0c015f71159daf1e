package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/customers"
	"github.com/ledgerflow/ledgerflow/internal/invoices"
	"github.com/ledgerflow/ledgerflow/internal/workspaces"
)

// mockInvoiceRepo is an in-memory invoices.Repository.
type mockInvoiceRepo struct {
	mu       sync.Mutex
	invoices map[string]*invoices.Invoice
	events   map[string][]invoices.InvoiceEvent
	nextID   int

	insertEventError error
	setPaidError     error
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[string]*invoices.Invoice),
		events:   make(map[string][]invoices.InvoiceEvent),
		nextID:   1,
	}
}

func (m *mockInvoiceRepo) seed(status invoices.InvoiceStatus) *invoices.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv := invoices.Invoice{
		ID:          fmt.Sprintf("inv-%d", m.nextID),
		WorkspaceID: "ws-1",
		CustomerID:  "cust-1",
		Number:      "INV-2040",
		Currency:    "USD",
		Status:      status,
		IssueDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Subtotal:    decimal.NewFromInt(1840),
		Total:       decimal.NewFromInt(1840),
	}
	m.nextID++
	m.invoices[inv.ID] = &inv
	return &inv
}

func (m *mockInvoiceRepo) WithTx(ctx context.Context, fn func(context.Context, invoices.Repository) error) error {
	return fn(ctx, m)
}

func (m *mockInvoiceRepo) Get(ctx context.Context, id string) (*invoices.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *mockInvoiceRepo) MarkSent(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	if inv.SentAt == nil {
		inv.SentAt = &at
	}
	return nil
}

func (m *mockInvoiceRepo) SetPaymentLinkURL(ctx context.Context, id, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	inv.PaymentLinkURL = &url
	return nil
}

func (m *mockInvoiceRepo) MarkOpened(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	if inv.FirstOpenedAt == nil {
		inv.FirstOpenedAt = &at
	}
	inv.LastOpenedAt = &at
	return nil
}

func (m *mockInvoiceRepo) SetPaidNotified(ctx context.Context, id string, at time.Time) error {
	if m.setPaidError != nil {
		return m.setPaidError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return invoices.ErrNotFound
	}
	if inv.PaidNotifiedAt == nil {
		inv.PaidNotifiedAt = &at
	}
	return nil
}

func (m *mockInvoiceRepo) InsertEvent(ctx context.Context, ev invoices.InvoiceEvent) error {
	if m.insertEventError != nil {
		return m.insertEventError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[ev.InvoiceID] = append(m.events[ev.InvoiceID], ev)
	return nil
}

func (m *mockInvoiceRepo) ListEvents(ctx context.Context, invoiceID string) ([]invoices.InvoiceEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]invoices.InvoiceEvent(nil), m.events[invoiceID]...), nil
}

func (m *mockInvoiceRepo) ListOverdue(ctx context.Context, asOf time.Time) ([]invoices.Invoice, error) {
	return nil, nil
}

func (m *mockInvoiceRepo) GenerateNumber(ctx context.Context, workspaceID string, date time.Time) (string, error) {
	return "INV-260001", nil
}

// eventsOfType filters recorded ledger entries.
func (m *mockInvoiceRepo) eventsOfType(invoiceID string, typ invoices.EventType) []invoices.InvoiceEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []invoices.InvoiceEvent
	for _, ev := range m.events[invoiceID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type mockCustomerRepo struct {
	customers map[string]*customers.Customer
}

func newMockCustomerRepo() *mockCustomerRepo {
	return &mockCustomerRepo{customers: make(map[string]*customers.Customer)}
}

func (m *mockCustomerRepo) seed(email, phone string) *customers.Customer {
	c := customers.Customer{ID: "cust-1", WorkspaceID: "ws-1", BusinessName: "Acme Studios"}
	if email != "" {
		c.Email = &email
	}
	if phone != "" {
		c.Phone = &phone
	}
	m.customers[c.ID] = &c
	return &c
}

func (m *mockCustomerRepo) Get(ctx context.Context, id string) (*customers.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) Create(ctx context.Context, c customers.Customer) (string, error) {
	return c.ID, nil
}

func (m *mockCustomerRepo) List(ctx context.Context, workspaceID string) ([]customers.Customer, error) {
	return nil, nil
}

type mockWorkspaceRepo struct {
	members []workspaces.Member
}

func (m *mockWorkspaceRepo) Get(ctx context.Context, id string) (*workspaces.Workspace, error) {
	return &workspaces.Workspace{ID: id, Name: "Ledgerflow Studio"}, nil
}

func (m *mockWorkspaceRepo) ListMembers(ctx context.Context, workspaceID string) ([]workspaces.Member, error) {
	return m.members, nil
}

// mockEmailSender records sends and returns a scripted result.
type mockEmailSender struct {
	mu     sync.Mutex
	sent   []EmailMessage
	result EmailResult
}

func newMockEmailSender() *mockEmailSender {
	return &mockEmailSender{result: EmailResult{Success: true, ID: "msg-1"}}
}

func (m *mockEmailSender) SendEmail(ctx context.Context, msg EmailMessage) EmailResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.result
}

func (m *mockEmailSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type mockSMSSender struct {
	mu     sync.Mutex
	sent   []SMSMessage
	result SMSResult
}

func newMockSMSSender() *mockSMSSender {
	return &mockSMSSender{result: SMSResult{Success: true, SID: "SM1"}}
}

func (m *mockSMSSender) SendSMS(ctx context.Context, msg SMSMessage) SMSResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.result
}

func (m *mockSMSSender) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
