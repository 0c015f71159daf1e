package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74/webhook"
)

// ErrSignatureInvalid rejects a webhook whose signature does not verify
// against the raw request body.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// EventKind is the provider-neutral meaning of a webhook event.
type EventKind string

const (
	KindPaymentSucceeded EventKind = "payment_succeeded"
	KindPaymentFailed    EventKind = "payment_failed"
	// KindIgnored covers event types the reconciler has no interest in.
	// They are still acknowledged so the provider stops redelivering.
	KindIgnored EventKind = "ignored"
)

// WebhookEvent is a verified, normalized provider event.
type WebhookEvent struct {
	Provider Provider
	EventID  string
	Type     string
	Kind     EventKind
	// Ref is the provider reference the payment record was created with.
	Ref string
	Raw json.RawMessage
}

// Verifier authenticates a raw webhook body and normalizes it. Verification
// runs against the exact bytes received; any re-serialization would break the
// signature.
type Verifier interface {
	Provider() Provider
	SignatureHeader() string
	Verify(payload []byte, signature string) (*WebhookEvent, error)
}

// StripeVerifier checks Stripe-Signature headers against the endpoint secret.
type StripeVerifier struct {
	secret string
}

func NewStripeVerifier(secret string) *StripeVerifier {
	return &StripeVerifier{secret: secret}
}

func (v *StripeVerifier) Provider() Provider      { return ProviderStripe }
func (v *StripeVerifier) SignatureHeader() string { return "Stripe-Signature" }

func (v *StripeVerifier) Verify(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, v.secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSignatureInvalid, err)
	}

	evt := &WebhookEvent{
		Provider: ProviderStripe,
		EventID:  event.ID,
		Type:     string(event.Type),
		Kind:     KindIgnored,
		Raw:      json.RawMessage(payload),
	}

	switch event.Type {
	case "checkout.session.completed":
		evt.Kind = KindPaymentSucceeded
	case "checkout.session.async_payment_failed", "checkout.session.expired":
		evt.Kind = KindPaymentFailed
	default:
		return evt, nil
	}

	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil || object.ID == "" {
		return nil, fmt.Errorf("stripe event %s: missing object id", event.ID)
	}
	evt.Ref = object.ID
	return evt, nil
}

// SquareVerifier checks X-Square-HmacSha256-Signature headers. Square signs
// the notification URL concatenated with the raw body using HMAC-SHA256 and
// the subscription's signature key, base64 encoded.
type SquareVerifier struct {
	signatureKey    string
	notificationURL string
}

func NewSquareVerifier(signatureKey, notificationURL string) *SquareVerifier {
	return &SquareVerifier{signatureKey: signatureKey, notificationURL: notificationURL}
}

func (v *SquareVerifier) Provider() Provider      { return ProviderSquare }
func (v *SquareVerifier) SignatureHeader() string { return "X-Square-HmacSha256-Signature" }

func (v *SquareVerifier) Verify(payload []byte, signature string) (*WebhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(v.signatureKey))
	mac.Write([]byte(v.notificationURL))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrSignatureInvalid
	}

	var body struct {
		EventID string `json:"event_id"`
		Type    string `json:"type"`
		Data    struct {
			Object struct {
				Payment struct {
					Status  string `json:"status"`
					OrderID string `json:"order_id"`
				} `json:"payment"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("square event: decode body: %w", err)
	}

	evt := &WebhookEvent{
		Provider: ProviderSquare,
		EventID:  body.EventID,
		Type:     body.Type,
		Kind:     KindIgnored,
		Raw:      json.RawMessage(payload),
	}
	if body.Type != "payment.updated" && body.Type != "payment.created" {
		return evt, nil
	}

	evt.Ref = body.Data.Object.Payment.OrderID
	switch strings.ToUpper(body.Data.Object.Payment.Status) {
	case "COMPLETED":
		evt.Kind = KindPaymentSucceeded
	case "FAILED", "CANCELED":
		evt.Kind = KindPaymentFailed
	}
	return evt, nil
}
