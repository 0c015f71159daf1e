package payments

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// ChargeLine is a provider-neutral checkout line. Amounts are in the
// currency's minor unit because that is what both provider APIs take.
type ChargeLine struct {
	Name            string
	Quantity        int64
	UnitAmountMinor int64
}

// MinorUnits converts a decimal major-unit amount to minor units, rounding
// half away from zero. 18.4 dollars is 1840 cents, never 1839.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// buildChargeLines maps an invoice to checkout lines. When a deposit is due
// the charge collapses to a single deposit line so the customer is asked for
// the deposit amount, not the full total.
func buildChargeLines(inv *invoices.Invoice) []ChargeLine {
	if due := inv.DepositDue(); due.IsPositive() {
		return []ChargeLine{{
			Name:            fmt.Sprintf("Deposit for %s", inv.Number),
			Quantity:        1,
			UnitAmountMinor: MinorUnits(due),
		}}
	}

	lines := make([]ChargeLine, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, ChargeLine{
			Name:            l.Description,
			Quantity:        l.Quantity,
			UnitAmountMinor: MinorUnits(l.UnitPrice),
		})
	}
	return lines
}

// chargeMetadata is attached to provider objects so webhook payloads can be
// traced back to the invoice without a database join.
func chargeMetadata(inv *invoices.Invoice) map[string]string {
	md := map[string]string{
		"invoice_id":     inv.ID,
		"invoice_number": inv.Number,
	}
	if due := inv.DepositDue(); due.IsPositive() {
		md["deposit"] = "true"
		md["deposit_amount"] = due.StringFixed(2)
		if inv.DepositType != nil {
			md["deposit_type"] = string(*inv.DepositType)
		}
	}
	return md
}
