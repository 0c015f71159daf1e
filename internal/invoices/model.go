package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft   InvoiceStatus = "DRAFT"
	StatusSent    InvoiceStatus = "SENT"
	StatusPaid    InvoiceStatus = "PAID"
	StatusOverdue InvoiceStatus = "OVERDUE"
	StatusVoid    InvoiceStatus = "VOID"
)

// DepositType distinguishes percentage deposits from fixed amounts.
type DepositType string

const (
	DepositPercent DepositType = "PERCENT"
	DepositFixed   DepositType = "FIXED"
)

// Invoice is a bill owned by a workspace and addressed to a customer.
// Monetary fields are fixed-point decimals; total = subtotal + tax - discount.
type Invoice struct {
	ID          string        `json:"id" db:"id"`
	WorkspaceID string        `json:"workspace_id" db:"workspace_id"`
	CustomerID  string        `json:"customer_id" db:"customer_id"`
	Number      string        `json:"number" db:"number"`
	Currency    string        `json:"currency" db:"currency"`
	Status      InvoiceStatus `json:"status" db:"status"`

	IssueDate time.Time `json:"issue_date" db:"issue_date"`
	DueDate   time.Time `json:"due_date" db:"due_date"`

	Subtotal      decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxTotal      decimal.Decimal `json:"tax_total" db:"tax_total"`
	DiscountTotal decimal.Decimal `json:"discount_total" db:"discount_total"`
	Total         decimal.Decimal `json:"total" db:"total"`

	RequiresDeposit bool             `json:"requires_deposit" db:"requires_deposit"`
	DepositType     *DepositType     `json:"deposit_type,omitempty" db:"deposit_type"`
	DepositAmount   *decimal.Decimal `json:"deposit_amount,omitempty" db:"deposit_amount"`
	DepositDueDate  *time.Time       `json:"deposit_due_date,omitempty" db:"deposit_due_date"`

	PaymentLinkURL *string `json:"payment_link_url,omitempty" db:"payment_link_url"`

	SentAt         *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	FirstOpenedAt  *time.Time `json:"first_opened_at,omitempty" db:"first_opened_at"`
	LastOpenedAt   *time.Time `json:"last_opened_at,omitempty" db:"last_opened_at"`
	PaidNotifiedAt *time.Time `json:"paid_notified_at,omitempty" db:"paid_notified_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	Lines []InvoiceLine `json:"lines,omitempty" db:"-"`
}

// DepositDue returns the amount a deposit payment link must carry, or zero
// when the invoice does not require a deposit.
func (inv *Invoice) DepositDue() decimal.Decimal {
	if inv == nil || !inv.RequiresDeposit || inv.DepositAmount == nil {
		return decimal.Zero
	}
	if inv.DepositType != nil && *inv.DepositType == DepositPercent {
		return inv.Total.Mul(*inv.DepositAmount).Div(decimal.NewFromInt(100)).Round(2)
	}
	return *inv.DepositAmount
}

// InvoiceLine is owned exclusively by one invoice; amount = quantity * unit price.
type InvoiceLine struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	Description string          `json:"description" db:"description"`
	Quantity    int64           `json:"quantity" db:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price" db:"unit_price"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	SortOrder   int             `json:"sort_order" db:"sort_order"`
}

// EventType enumerates ledger entry kinds.
type EventType string

const (
	EventSentEmail    EventType = "SENT_EMAIL"
	EventSentSMS      EventType = "SENT_SMS"
	EventOpened       EventType = "OPENED"
	EventPaidAlert    EventType = "PAID_ALERT"
	EventAlertEmail   EventType = "ALERT_EMAIL"
	EventStatusChange EventType = "STATUS_CHANGED"
)

// EventStatus marks a ledger entry as a success or failure record.
type EventStatus string

const (
	EventSuccess EventStatus = "SUCCESS"
	EventFailed  EventStatus = "FAILED"
)

// EventChannel identifies the channel an entry relates to.
type EventChannel string

const (
	ChannelEmail  EventChannel = "EMAIL"
	ChannelSMS    EventChannel = "SMS"
	ChannelSystem EventChannel = "SYSTEM"
)

// InvoiceEvent is an append-only audit entry. Entries are never mutated or
// deleted; the ledger is the source of truth for what already happened.
type InvoiceEvent struct {
	ID        string         `json:"id" db:"id"`
	InvoiceID string         `json:"invoice_id" db:"invoice_id"`
	Type      EventType      `json:"type" db:"type"`
	Status    EventStatus    `json:"status" db:"status"`
	Channel   EventChannel   `json:"channel,omitempty" db:"channel"`
	Detail    map[string]any `json:"detail,omitempty" db:"detail"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}
