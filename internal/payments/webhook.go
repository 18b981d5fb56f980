package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// ErrWebhookSignature indicates the payload signature did not verify.
var ErrWebhookSignature = errors.New("payments: webhook signature verification failed")

// ErrWebhookPayload indicates the payload could not be decoded.
var ErrWebhookPayload = errors.New("payments: webhook payload invalid")

// EventTypeCheckoutCompleted is the only event type the webhook acts on.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// WebhookEvent is the normalised result of a verified gateway callback.
// Handled is false for event types the backend acknowledges but ignores.
type WebhookEvent struct {
	ID              string
	Type            string
	Handled         bool
	OrderID         string
	SessionID       string
	PaymentIntentID string
}

// WebhookVerifier turns a raw callback body plus signature header into a
// normalised event.
type WebhookVerifier interface {
	VerifyEvent(payload []byte, signature string) (WebhookEvent, error)
}

// StripeWebhookVerifier verifies Stripe callbacks with the endpoint secret.
type StripeWebhookVerifier struct {
	secret string
}

var _ WebhookVerifier = (*StripeWebhookVerifier)(nil)

// NewStripeWebhookVerifier constructs a verifier for the given endpoint secret.
func NewStripeWebhookVerifier(secret string) (*StripeWebhookVerifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("stripe: webhook secret is required")
	}
	return &StripeWebhookVerifier{secret: trimmed}, nil
}

// VerifyEvent checks the signature over the exact raw body and extracts the
// order routing data from checkout.session.completed events.
func (v *StripeWebhookVerifier) VerifyEvent(payload []byte, signature string) (WebhookEvent, error) {
	if v == nil {
		return WebhookEvent{}, errors.New("stripe: verifier is nil")
	}

	event, err := webhook.ConstructEvent(payload, signature, v.secret)
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrWebhookSignature, err)
	}

	result := WebhookEvent{
		ID:   event.ID,
		Type: string(event.Type),
	}
	if result.Type != EventTypeCheckoutCompleted {
		return result, nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrWebhookPayload, err)
	}

	orderID := strings.TrimSpace(session.Metadata["orderId"])
	if orderID == "" {
		return WebhookEvent{}, fmt.Errorf("%w: checkout session %s carries no orderId metadata", ErrWebhookPayload, session.ID)
	}

	result.Handled = true
	result.OrderID = orderID
	result.SessionID = session.ID
	if session.PaymentIntent != nil {
		result.PaymentIntentID = session.PaymentIntent.ID
	}
	return result, nil
}
