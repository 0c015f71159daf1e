package invoices

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateInvoiceRequest carries the payload for invoice creation.
type CreateInvoiceRequest struct {
	CustomerID string    `json:"customer_id" validate:"required"`
	Number     string    `json:"number"`
	Currency   string    `json:"currency" validate:"required,len=3"`
	IssueDate  time.Time `json:"issue_date" validate:"required"`
	DueDate    time.Time `json:"due_date" validate:"required"`

	TaxTotal      decimal.Decimal `json:"tax_total"`
	DiscountTotal decimal.Decimal `json:"discount_total"`

	RequiresDeposit bool             `json:"requires_deposit"`
	DepositType     *DepositType     `json:"deposit_type,omitempty" validate:"omitempty,oneof=PERCENT FIXED"`
	DepositAmount   *decimal.Decimal `json:"deposit_amount,omitempty"`
	DepositDueDate  *time.Time       `json:"deposit_due_date,omitempty"`

	Lines []CreateInvoiceLineRequest `json:"lines" validate:"required,min=1,dive"`

	// EnablePaymentLink asks for a hosted checkout link at creation time.
	// Link failures degrade to an invoice without one, never a failed create.
	EnablePaymentLink bool `json:"enable_payment_link"`
}

// CreateInvoiceLineRequest is one purchasable line.
type CreateInvoiceLineRequest struct {
	Description string          `json:"description" validate:"required"`
	Quantity    int64           `json:"quantity" validate:"required,gte=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	SortOrder   int             `json:"sort_order" validate:"gte=0"`
}

// UpdateInvoiceRequest replaces the mutable invoice fields; lines, when
// present, are replaced atomically.
type UpdateInvoiceRequest struct {
	CustomerID *string    `json:"customer_id,omitempty"`
	Currency   *string    `json:"currency,omitempty" validate:"omitempty,len=3"`
	IssueDate  *time.Time `json:"issue_date,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`

	TaxTotal      *decimal.Decimal `json:"tax_total,omitempty"`
	DiscountTotal *decimal.Decimal `json:"discount_total,omitempty"`

	RequiresDeposit *bool            `json:"requires_deposit,omitempty"`
	DepositType     *DepositType     `json:"deposit_type,omitempty" validate:"omitempty,oneof=PERCENT FIXED"`
	DepositAmount   *decimal.Decimal `json:"deposit_amount,omitempty"`
	DepositDueDate  *time.Time       `json:"deposit_due_date,omitempty"`

	Lines *[]CreateInvoiceLineRequest `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

// TransitionRequest asks the lifecycle for a status change.
type TransitionRequest struct {
	Status InvoiceStatus `json:"status" validate:"required,oneof=DRAFT SENT PAID OVERDUE VOID"`
}
