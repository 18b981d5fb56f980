package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/soukly/api/internal/services"
)

// MinorUnits converts a decimal money amount to integer minor units,
// rounding half away from zero. Decimals live everywhere else in the
// system; the gateway boundary is the only place this conversion happens.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// GatewayConfig carries the redirect targets for hosted checkout.
type GatewayConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// Gateway adapts the provider manager to the order service contract.
type Gateway struct {
	manager  *Manager
	currency string
	success  string
	cancel   string
}

var _ services.PaymentGateway = (*Gateway)(nil)

// NewGateway constructs the order-facing payment gateway.
func NewGateway(manager *Manager, cfg GatewayConfig) (*Gateway, error) {
	if manager == nil {
		return nil, errors.New("payments: manager is required")
	}
	success := strings.TrimSpace(cfg.SuccessURL)
	cancel := strings.TrimSpace(cfg.CancelURL)
	if success == "" || cancel == "" {
		return nil, errors.New("payments: success and cancel URLs are required")
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Gateway{
		manager:  manager,
		currency: currency,
		success:  success,
		cancel:   cancel,
	}, nil
}

// CreateCheckoutSession opens a hosted checkout for the order, embedding the
// order id in the session metadata so the webhook can route the result back.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, order services.Order) (services.CheckoutSession, error) {
	if g == nil || g.manager == nil {
		return services.CheckoutSession{}, errors.New("payments: gateway is not configured")
	}

	total := MinorUnits(order.TotalPrice)
	items := make([]CheckoutLineItem, 0, len(order.Lines))
	var itemSum int64
	for _, line := range order.Lines {
		amount := MinorUnits(line.UnitPrice)
		itemSum += amount * line.Quantity
		items = append(items, CheckoutLineItem{
			Name:     line.ProductName,
			Quantity: line.Quantity,
			Amount:   amount,
		})
	}
	// A coupon discounts the order total below the line sum. Hosted checkout
	// charges the line items, so collapse to a single discounted line then.
	if itemSum != total {
		items = []CheckoutLineItem{{
			Name:     fmt.Sprintf("Order %s", order.OrderNumber),
			Quantity: 1,
			Amount:   total,
		}}
	}

	session, err := g.manager.CreateCheckoutSession(ctx, "", CheckoutSessionRequest{
		Amount:   total,
		Currency: g.currency,
		Metadata: map[string]string{
			"orderId":     order.ID,
			"orderNumber": order.OrderNumber,
			"userId":      order.UserID,
		},
		IdempotencyKey: fmt.Sprintf("checkout-%s", order.ID),
		SuccessURL:     g.success,
		CancelURL:      g.cancel,
		Items:          items,
	})
	if err != nil {
		return services.CheckoutSession{}, err
	}

	return services.CheckoutSession{
		SessionID:   session.ID,
		CheckoutURL: session.RedirectURL,
	}, nil
}

// Refund returns the captured funds for a cancelled, already paid order.
func (g *Gateway) Refund(ctx context.Context, paymentIntentID string) error {
	if g == nil || g.manager == nil {
		return errors.New("payments: gateway is not configured")
	}
	return g.manager.Refund(ctx, "", RefundRequest{
		IntentID:       paymentIntentID,
		Reason:         "requested_by_customer",
		IdempotencyKey: fmt.Sprintf("refund-%s", paymentIntentID),
	})
}
