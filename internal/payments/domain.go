package payments

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus enumerates payment attempt states.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
)

// Payment is one attempt record per provider payment-intent/session id.
// Created when a link/session is minted or first observed via webhook;
// mutated only by the Reconciler.
type Payment struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	Provider    Provider        `json:"provider" db:"provider"`
	ProviderRef string          `json:"provider_ref" db:"provider_ref"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Currency    string          `json:"currency" db:"currency"`
	Status      PaymentStatus   `json:"status" db:"status"`
	// RawPayload is the provider's event body, stored opaquely for audit.
	RawPayload  json.RawMessage `json:"raw_payload,omitempty" db:"raw_payload"`
	ProcessedAt *time.Time      `json:"processed_at,omitempty" db:"processed_at"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
