package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/soukly/api/internal/payments"
	"github.com/soukly/api/internal/platform/httpx"
	"github.com/soukly/api/internal/services"
)

const maxWebhookBodySize = 256 * 1024

// WebhookHandlers receives payment provider callbacks. The signature covers
// the raw request bytes, so the body is passed to the verifier untouched.
type WebhookHandlers struct {
	verifier payments.WebhookVerifier
	orders   services.OrderService
}

// NewWebhookHandlers constructs handlers for the /webhooks group.
func NewWebhookHandlers(verifier payments.WebhookVerifier, orders services.OrderService) *WebhookHandlers {
	return &WebhookHandlers{
		verifier: verifier,
		orders:   orders,
	}
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/stripe", h.handleStripe)
}

func (h *WebhookHandlers) handleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.verifier == nil || h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_unavailable", "webhook processing is unavailable", http.StatusServiceUnavailable))
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize+1))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "failed to read request body", http.StatusBadRequest))
		return
	}
	if len(payload) > maxWebhookBodySize {
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	}

	signature := strings.TrimSpace(r.Header.Get("Stripe-Signature"))
	if signature == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "Stripe-Signature header is required", http.StatusBadRequest))
		return
	}

	event, err := h.verifier.VerifyEvent(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrWebhookSignature):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
		case errors.Is(err, payments.ErrWebhookPayload):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "webhook payload could not be decoded", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("webhook_error", "failed to process webhook", http.StatusInternalServerError))
		}
		return
	}

	// Event types this service does not consume are acknowledged so the
	// provider stops retrying them.
	if !event.Handled {
		writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
		return
	}

	err = h.orders.ConfirmPaymentEvent(ctx, services.PaymentEventCommand{
		EventID:         event.ID,
		EventType:       event.Type,
		OrderID:         event.OrderID,
		PaymentIntentID: event.PaymentIntentID,
		SessionID:       event.SessionID,
	})
	if err != nil {
		// The provider retries every non-2xx response. An event that can
		// never apply, such as one referencing an unknown order, is
		// acknowledged so it does not redeliver forever; transient failures
		// keep their error status and get retried.
		if errors.Is(err, services.ErrOrderNotFound) || errors.Is(err, services.ErrOrderInvalidInput) {
			writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
			return
		}
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, webhookAckResponse{Received: true})
}

type webhookAckResponse struct {
	Received bool `json:"received"`
}
