package invoices

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Service handles invoice CRUD. Status changes go through Lifecycle, not here.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService builds a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// computeLines derives line amounts and aggregate totals from a line set.
// amount = quantity * unitPrice; subtotal = sum of amounts;
// total = subtotal + tax - discount.
func computeLines(reqs []CreateInvoiceLineRequest, tax, discount decimal.Decimal) ([]InvoiceLine, decimal.Decimal, decimal.Decimal) {
	lines := make([]InvoiceLine, 0, len(reqs))
	subtotal := decimal.Zero
	for i, lr := range reqs {
		amount := lr.UnitPrice.Mul(decimal.NewFromInt(lr.Quantity))
		order := lr.SortOrder
		if order == 0 {
			order = i + 1
		}
		lines = append(lines, InvoiceLine{
			Description: lr.Description,
			Quantity:    lr.Quantity,
			UnitPrice:   lr.UnitPrice,
			Amount:      amount,
			SortOrder:   order,
		})
		subtotal = subtotal.Add(amount)
	}
	total := subtotal.Add(tax).Sub(discount)
	return lines, subtotal, total
}

// Create persists a new DRAFT invoice with its lines in one transaction.
func (s *Service) Create(ctx context.Context, workspaceID string, req CreateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate invoice: %w", err)
	}

	number := req.Number
	if number == "" {
		var err error
		number, err = s.repo.GenerateNumber(ctx, workspaceID, req.IssueDate)
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
	}

	lines, subtotal, total := computeLines(req.Lines, req.TaxTotal, req.DiscountTotal)

	inv := Invoice{
		WorkspaceID:     workspaceID,
		CustomerID:      req.CustomerID,
		Number:          number,
		Currency:        req.Currency,
		Status:          StatusDraft,
		IssueDate:       req.IssueDate,
		DueDate:         req.DueDate,
		Subtotal:        subtotal,
		TaxTotal:        req.TaxTotal,
		DiscountTotal:   req.DiscountTotal,
		Total:           total,
		RequiresDeposit: req.RequiresDeposit,
		DepositType:     req.DepositType,
		DepositAmount:   req.DepositAmount,
		DepositDueDate:  req.DepositDueDate,
	}

	var invoiceID string
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, inv)
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		invoiceID = id
		for _, line := range lines {
			line.InvoiceID = id
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, invoiceID)
}

// Update edits a DRAFT invoice; lines, when given, are replaced atomically.
func (s *Service) Update(ctx context.Context, id string, req UpdateInvoiceRequest) (*Invoice, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("validate invoice: %w", err)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: only DRAFT invoices are editable", ErrInvalidTransition)
	}

	if req.CustomerID != nil {
		existing.CustomerID = *req.CustomerID
	}
	if req.Currency != nil {
		existing.Currency = *req.Currency
	}
	if req.IssueDate != nil {
		existing.IssueDate = *req.IssueDate
	}
	if req.DueDate != nil {
		existing.DueDate = *req.DueDate
	}
	if req.TaxTotal != nil {
		existing.TaxTotal = *req.TaxTotal
	}
	if req.DiscountTotal != nil {
		existing.DiscountTotal = *req.DiscountTotal
	}
	if req.RequiresDeposit != nil {
		existing.RequiresDeposit = *req.RequiresDeposit
	}
	if req.DepositType != nil {
		existing.DepositType = req.DepositType
	}
	if req.DepositAmount != nil {
		existing.DepositAmount = req.DepositAmount
	}
	if req.DepositDueDate != nil {
		existing.DepositDueDate = req.DepositDueDate
	}

	var newLines []InvoiceLine
	if req.Lines != nil {
		lines, subtotal, total := computeLines(*req.Lines, existing.TaxTotal, existing.DiscountTotal)
		existing.Subtotal = subtotal
		existing.Total = total
		newLines = lines
	} else {
		existing.Total = existing.Subtotal.Add(existing.TaxTotal).Sub(existing.DiscountTotal)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateHeader(ctx, *existing); err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if newLines == nil {
			return nil
		}
		if err := repo.DeleteLines(ctx, id); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}
		for _, line := range newLines {
			line.InvoiceID = id
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Get loads one invoice with lines.
func (s *Service) Get(ctx context.Context, id string) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// Events lists the append-only ledger for one invoice.
func (s *Service) Events(ctx context.Context, id string) ([]InvoiceEvent, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, id)
}

// Delete removes an invoice. Invoices referenced by payments are protected
// by the foreign key and surface ErrReferenced instead.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
