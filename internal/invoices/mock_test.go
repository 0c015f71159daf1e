package invoices

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// mockRepository is an in-memory Repository with error injection.
type mockRepository struct {
	invoices map[string]*Invoice
	lines    map[string][]InvoiceLine
	events   map[string][]InvoiceEvent
	nextID   int

	// Error injection
	getError         error
	setStatusError   error
	insertEventError error
	txError          error
	insertLineError  error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		invoices: make(map[string]*Invoice),
		lines:    make(map[string][]InvoiceLine),
		events:   make(map[string][]InvoiceEvent),
		nextID:   1,
	}
}

func (m *mockRepository) id() string {
	id := fmt.Sprintf("id-%d", m.nextID)
	m.nextID++
	return id
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Get(ctx context.Context, id string) (*Invoice, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *inv
	cp.Lines = append([]InvoiceLine(nil), m.lines[id]...)
	return &cp, nil
}

func (m *mockRepository) GetByNumber(ctx context.Context, workspaceID, number string) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.WorkspaceID == workspaceID && inv.Number == number {
			return m.Get(ctx, inv.ID)
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) Create(ctx context.Context, inv Invoice) (string, error) {
	if inv.ID == "" {
		inv.ID = m.id()
	}
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *mockRepository) UpdateHeader(ctx context.Context, inv Invoice) error {
	existing, ok := m.invoices[inv.ID]
	if !ok {
		return ErrNotFound
	}
	inv.CreatedAt = existing.CreatedAt
	inv.UpdatedAt = time.Now()
	inv.Lines = nil
	m.invoices[inv.ID] = &inv
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(m.invoices, id)
	delete(m.lines, id)
	delete(m.events, id)
	return nil
}

func (m *mockRepository) InsertLine(ctx context.Context, line InvoiceLine) (string, error) {
	if m.insertLineError != nil {
		return "", m.insertLineError
	}
	if line.ID == "" {
		line.ID = m.id()
	}
	m.lines[line.InvoiceID] = append(m.lines[line.InvoiceID], line)
	return line.ID, nil
}

func (m *mockRepository) DeleteLines(ctx context.Context, invoiceID string) error {
	delete(m.lines, invoiceID)
	return nil
}

func (m *mockRepository) SetStatus(ctx context.Context, id string, status InvoiceStatus) error {
	if m.setStatusError != nil {
		return m.setStatusError
	}
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.Status = status
	return nil
}

func (m *mockRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.SentAt == nil {
		inv.SentAt = &at
	}
	return nil
}

func (m *mockRepository) SetPaymentLinkURL(ctx context.Context, id, url string) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	inv.PaymentLinkURL = &url
	return nil
}

func (m *mockRepository) MarkOpened(ctx context.Context, id string, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.FirstOpenedAt == nil {
		inv.FirstOpenedAt = &at
	}
	inv.LastOpenedAt = &at
	return nil
}

func (m *mockRepository) SetPaidNotified(ctx context.Context, id string, at time.Time) error {
	inv, ok := m.invoices[id]
	if !ok {
		return ErrNotFound
	}
	if inv.PaidNotifiedAt == nil {
		inv.PaidNotifiedAt = &at
	}
	return nil
}

func (m *mockRepository) InsertEvent(ctx context.Context, ev InvoiceEvent) error {
	if m.insertEventError != nil {
		return m.insertEventError
	}
	if _, ok := m.invoices[ev.InvoiceID]; !ok {
		return ErrNotFound
	}
	ev.ID = m.id()
	ev.CreatedAt = time.Now()
	m.events[ev.InvoiceID] = append(m.events[ev.InvoiceID], ev)
	return nil
}

func (m *mockRepository) ListEvents(ctx context.Context, invoiceID string) ([]InvoiceEvent, error) {
	return append([]InvoiceEvent(nil), m.events[invoiceID]...), nil
}

func (m *mockRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.Status == StatusSent && inv.DueDate.Before(asOf) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *mockRepository) GenerateNumber(ctx context.Context, workspaceID string, date time.Time) (string, error) {
	count := 0
	for _, inv := range m.invoices {
		if inv.WorkspaceID == workspaceID {
			count++
		}
	}
	return fmt.Sprintf("INV-%d%04d", date.Year()%100, count+1), nil
}

func (m *mockRepository) seedInvoice(status InvoiceStatus) *Invoice {
	inv := Invoice{
		ID:          m.id(),
		WorkspaceID: "ws-1",
		CustomerID:  "cust-1",
		Number:      "INV-260001",
		Currency:    "USD",
		Status:      status,
		IssueDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		DueDate:     time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		Subtotal:    decimal.NewFromInt(1840),
		Total:       decimal.NewFromInt(1840),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.invoices[inv.ID] = &inv
	m.lines[inv.ID] = []InvoiceLine{{
		ID:          m.id(),
		InvoiceID:   inv.ID,
		Description: "Design retainer",
		Quantity:    4,
		UnitPrice:   decimal.NewFromInt(460),
		Amount:      decimal.NewFromInt(1840),
		SortOrder:   1,
	}}
	return &inv
}
