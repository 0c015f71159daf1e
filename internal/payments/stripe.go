package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/ledgerflow/ledgerflow/internal/invoices"
)

// StripeProvider mints hosted Checkout Sessions. The session URL is the
// payment link and the session id is the provider reference that
// checkout.session.completed events refer back to.
type StripeProvider struct {
	api     *client.API
	baseURL string
}

// NewStripeProvider builds a provider from a secret key.
func NewStripeProvider(secretKey, baseURL string) *StripeProvider {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeProvider{api: api, baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *StripeProvider) Name() Provider { return ProviderStripe }

func (p *StripeProvider) CreateLink(ctx context.Context, inv *invoices.Invoice) (*Link, error) {
	params := &stripe.CheckoutSessionParams{
		Params:     stripe.Params{Context: ctx},
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(fmt.Sprintf("%s/invoices/%s?paid=1", p.baseURL, inv.ID)),
		CancelURL:  stripe.String(fmt.Sprintf("%s/invoices/%s", p.baseURL, inv.ID)),
	}
	for _, line := range buildChargeLines(inv) {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(line.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(inv.Currency)),
				UnitAmount: stripe.Int64(line.UnitAmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
		})
	}
	for k, v := range chargeMetadata(inv) {
		params.AddMetadata(k, v)
	}

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout session: %w", err)
	}
	return &Link{URL: sess.URL, Ref: sess.ID}, nil
}
