package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ledgerflow/ledgerflow/internal/customers"
	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// formatAmount renders a monetary amount with its currency symbol,
// e.g. "$1,840.00". This is the single source of truth for money formatting
// in outbound notifications.
func formatAmount(code string, amount decimal.Decimal) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %s", code, amount.StringFixed(2))
	}
	p := message.NewPrinter(language.English)
	return p.Sprintf("%v%v", currency.Symbol(unit), p.Sprintf("%.2f", amount.InexactFloat64()))
}

func formatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

var emailTemplate = template.Must(template.New("invoice_email").Parse(`
<div style="font-family: sans-serif; line-height: 1.6;">
  <h2 style="margin-bottom: 0.5rem;">Invoice {{.Number}}</h2>
  <p style="margin-top: 0;">Hi {{.Recipient}},</p>
  <p>{{.WorkspaceName}} just sent you an invoice for <strong>{{.Total}}</strong> due on {{.DueDate}}.</p>
  <table style="border-collapse: collapse; width: 100%; margin: 1rem 0;">
    <tr>
      <th style="text-align:left; border-bottom:1px solid #e5e7eb; padding:6px 8px;">Description</th>
      <th style="text-align:right; border-bottom:1px solid #e5e7eb; padding:6px 8px;">Qty</th>
      <th style="text-align:right; border-bottom:1px solid #e5e7eb; padding:6px 8px;">Amount</th>
    </tr>
    {{- range .Lines}}
    <tr>
      <td style="padding:6px 8px;">{{.Description}}</td>
      <td style="text-align:right; padding:6px 8px;">{{.Quantity}}</td>
      <td style="text-align:right; padding:6px 8px;">{{.Amount}}</td>
    </tr>
    {{- end}}
    <tr><td></td><td style="text-align:right; padding:6px 8px;">Subtotal</td><td style="text-align:right; padding:6px 8px;">{{.Subtotal}}</td></tr>
    <tr><td></td><td style="text-align:right; padding:6px 8px;">Tax</td><td style="text-align:right; padding:6px 8px;">{{.Tax}}</td></tr>
    <tr><td></td><td style="text-align:right; padding:6px 8px;"><strong>Total</strong></td><td style="text-align:right; padding:6px 8px;"><strong>{{.Total}}</strong></td></tr>
  </table>
  <p style="margin: 1.5rem 0;">
    <a href="{{.InvoiceURL}}" style="background:#111827;color:#fff;padding:10px 20px;border-radius:6px;text-decoration:none;font-weight:600;">View invoice</a>
  </p>
  <p>If you have any questions, reply to this email.</p>
  <img src="{{.TrackingURL}}" alt="" width="1" height="1" style="display:none;" />
</div>
`))

type emailLine struct {
	Description string
	Quantity    int64
	Amount      string
}

type emailData struct {
	Number        string
	Recipient     string
	WorkspaceName string
	DueDate       string
	Subtotal      string
	Tax           string
	Total         string
	Lines         []emailLine
	InvoiceURL    string
	TrackingURL   string
}

// Renderer builds the canonical invoice notification content. All channels
// and both alert kinds share it so formatting never diverges.
type Renderer struct {
	baseURL string
}

// NewRenderer builds a Renderer rooted at the public application URL.
func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/")}
}

// InvoiceURL prefers the payment link when one was minted.
func (r *Renderer) InvoiceURL(inv *invoices.Invoice) string {
	if inv.PaymentLinkURL != nil && *inv.PaymentLinkURL != "" {
		return *inv.PaymentLinkURL
	}
	return fmt.Sprintf("%s/invoices/%s", r.baseURL, inv.ID)
}

// TrackingPixelURL is the 1x1 image that reports invoice opens.
func (r *Renderer) TrackingPixelURL(inv *invoices.Invoice) string {
	return fmt.Sprintf("%s/invoices/%s/opened.gif", r.baseURL, inv.ID)
}

// Subject is the customer-facing email subject.
func (r *Renderer) Subject(inv *invoices.Invoice, workspaceName string) string {
	return fmt.Sprintf("Invoice %s from %s", inv.Number, workspaceName)
}

// EmailHTML renders the customer-facing HTML body.
func (r *Renderer) EmailHTML(inv *invoices.Invoice, cust *customers.Customer, workspaceName string) (string, error) {
	data := emailData{
		Number:        inv.Number,
		Recipient:     cust.DisplayName(),
		WorkspaceName: workspaceName,
		DueDate:       formatDate(inv.DueDate),
		Subtotal:      formatAmount(inv.Currency, inv.Subtotal),
		Tax:           formatAmount(inv.Currency, inv.TaxTotal),
		Total:         formatAmount(inv.Currency, inv.Total),
		InvoiceURL:    r.InvoiceURL(inv),
		TrackingURL:   r.TrackingPixelURL(inv),
	}
	for _, l := range inv.Lines {
		data.Lines = append(data.Lines, emailLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			Amount:      formatAmount(inv.Currency, l.Amount),
		})
	}
	var b strings.Builder
	if err := emailTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render invoice email: %w", err)
	}
	return b.String(), nil
}

// EmailText renders the plain-text alternative.
func (r *Renderer) EmailText(inv *invoices.Invoice) string {
	return fmt.Sprintf("Invoice %s for %s is due on %s. View the invoice here: %s",
		inv.Number, formatAmount(inv.Currency, inv.Total), formatDate(inv.DueDate), r.InvoiceURL(inv))
}

// SMS renders the SMS-sized message.
func (r *Renderer) SMS(inv *invoices.Invoice) string {
	return fmt.Sprintf("Invoice %s for %s is due on %s. Pay now: %s",
		inv.Number, formatAmount(inv.Currency, inv.Total), formatDate(inv.DueDate), r.InvoiceURL(inv))
}

// AlertKind distinguishes internal staff alerts.
type AlertKind string

const (
	AlertOpened AlertKind = "opened"
	AlertPaid   AlertKind = "paid"
)

// AlertSubject is the staff-facing alert subject.
func (r *Renderer) AlertSubject(kind AlertKind, inv *invoices.Invoice, cust *customers.Customer) string {
	if kind == AlertOpened {
		return fmt.Sprintf("Invoice %s was opened by %s", inv.Number, cust.BusinessName)
	}
	return fmt.Sprintf("Invoice %s was paid", inv.Number)
}

// AlertBodies renders HTML and text bodies for a staff alert.
func (r *Renderer) AlertBodies(kind AlertKind, inv *invoices.Invoice, cust *customers.Customer, detail OpenDetail) (html, text string) {
	subject := r.AlertSubject(kind, inv, cust)
	invoiceURL := fmt.Sprintf("%s/invoices/%s", r.baseURL, inv.ID)
	total := formatAmount(inv.Currency, inv.Total)

	lines := []string{
		fmt.Sprintf("<p><strong>Customer:</strong> %s</p>", template.HTMLEscapeString(cust.BusinessName)),
		fmt.Sprintf("<p><strong>Total:</strong> %s</p>", total),
		fmt.Sprintf("<p><strong>Due date:</strong> %s</p>", formatDate(inv.DueDate)),
		fmt.Sprintf("<p><strong>Invoice:</strong> <a href=%q>%s</a></p>", invoiceURL, invoiceURL),
	}
	if detail.IP != "" {
		lines = append(lines, fmt.Sprintf("<p><strong>IP:</strong> %s</p>", template.HTMLEscapeString(detail.IP)))
	}
	if detail.UserAgent != "" {
		lines = append(lines, fmt.Sprintf("<p><strong>User agent:</strong> %s</p>", template.HTMLEscapeString(detail.UserAgent)))
	}

	html = fmt.Sprintf(`<div style="font-family: sans-serif; line-height:1.6;"><h2>%s</h2>%s</div>`,
		template.HTMLEscapeString(subject), strings.Join(lines, "\n"))
	text = fmt.Sprintf("%s\nCustomer: %s\nTotal: %s\nInvoice: %s", subject, cust.BusinessName, total, invoiceURL)
	return html, text
}
