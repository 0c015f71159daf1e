package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// Provider identifies a payment provider.
type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderSquare Provider = "square"
)

// providerPriority is the selection order when no provider is requested.
var providerPriority = []Provider{ProviderStripe, ProviderSquare}

// Link is a hosted checkout URL plus the provider's reference for it. The
// reference is what later webhook events carry, so it keys the payments table.
type Link struct {
	URL string
	Ref string
}

// LinkProvider mints a hosted payment link for an invoice.
type LinkProvider interface {
	Name() Provider
	CreateLink(ctx context.Context, inv *invoices.Invoice) (*Link, error)
}

// PaymentLinkResult reports link creation to callers. Failure is data, not an
// error: sends proceed without a link and the invoice URL is used instead.
type PaymentLinkResult struct {
	Success  bool     `json:"success"`
	URL      string   `json:"url,omitempty"`
	Provider Provider `json:"provider,omitempty"`
	Err      string   `json:"error,omitempty"`
}

// Service creates payment links and records the pending attempt.
type Service struct {
	providers map[Provider]LinkProvider
	payments  Repository
	invoices  invoices.Repository
	logger    *slog.Logger
	timeout   time.Duration
}

// NewService builds a Service over the configured providers. Providers whose
// credentials are absent are simply not registered.
func NewService(providers []LinkProvider, payments Repository, invoicesRepo invoices.Repository, logger *slog.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[Provider]LinkProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Service{
		providers: byName,
		payments:  payments,
		invoices:  invoicesRepo,
		logger:    logger,
		timeout:   timeout,
	}
}

// selectProvider honors an explicit request, otherwise walks the priority
// order and returns the first configured provider.
func (s *Service) selectProvider(requested Provider) LinkProvider {
	if requested != "" {
		return s.providers[requested]
	}
	for _, name := range providerPriority {
		if p, ok := s.providers[name]; ok {
			return p
		}
	}
	return nil
}

// CreatePaymentLink mints a hosted checkout link for the invoice, stores the
// pending payment record, and saves the URL on the invoice. Provider failures
// come back as an unsuccessful result so dispatch flows degrade instead of
// aborting. A missing invoice or a persistence failure is a real error: a
// link that exists at the provider with no Payment row behind it would turn
// the eventual success webhook into a permanent unknown-reference no-op.
func (s *Service) CreatePaymentLink(ctx context.Context, invoiceID string, requested Provider) (PaymentLinkResult, error) {
	inv, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		return PaymentLinkResult{Err: err.Error()}, err
	}

	provider := s.selectProvider(requested)
	if provider == nil {
		return PaymentLinkResult{Err: "no payment provider configured"}, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	link, err := provider.CreateLink(callCtx, inv)
	if err != nil {
		s.logger.Error("create payment link",
			slog.String("invoice_id", inv.ID),
			slog.String("provider", string(provider.Name())),
			slog.Any("error", err))
		return PaymentLinkResult{Provider: provider.Name(), Err: err.Error()}, nil
	}

	amount := inv.Total
	if due := inv.DepositDue(); due.IsPositive() {
		amount = due
	}
	if _, err := s.payments.Create(ctx, Payment{
		InvoiceID:   inv.ID,
		Provider:    provider.Name(),
		ProviderRef: link.Ref,
		Amount:      amount,
		Currency:    inv.Currency,
		Status:      PaymentPending,
	}); err != nil {
		s.logger.Error("record pending payment", slog.String("invoice_id", inv.ID), slog.Any("error", err))
		return PaymentLinkResult{Provider: provider.Name(), Err: "payment could not be recorded"},
			fmt.Errorf("record pending payment: %w", err)
	}
	if err := s.invoices.SetPaymentLinkURL(ctx, inv.ID, link.URL); err != nil {
		s.logger.Error("save payment link url", slog.String("invoice_id", inv.ID), slog.Any("error", err))
		return PaymentLinkResult{Provider: provider.Name(), Err: "payment link could not be saved"},
			fmt.Errorf("save payment link url: %w", err)
	}

	return PaymentLinkResult{Success: true, URL: link.URL, Provider: provider.Name()}, nil
}

// MintPaymentLink creates a link with the default provider and reports just
// the URL. It backs the creation-time enable_payment_link flag without the
// invoices package depending on payment types.
func (s *Service) MintPaymentLink(ctx context.Context, invoiceID string) (string, bool) {
	result, err := s.CreatePaymentLink(ctx, invoiceID, "")
	if err != nil || !result.Success {
		return "", false
	}
	return result.URL, true
}

// ListForInvoice returns an invoice's payment attempts, newest last.
func (s *Service) ListForInvoice(ctx context.Context, invoiceID string) ([]Payment, error) {
	return s.payments.ListByInvoice(ctx, invoiceID)
}
