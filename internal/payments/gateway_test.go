package payments

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/soukly/api/internal/services"
)

func TestMinorUnits(t *testing.T) {
	cases := map[string]int64{
		"20.00":  2000,
		"18.00":  1800,
		"0.01":   1,
		"9.995":  1000,
		"10.994": 1099,
	}
	for amount, want := range cases {
		if got := MinorUnits(decimal.RequireFromString(amount)); got != want {
			t.Fatalf("MinorUnits(%s) = %d, want %d", amount, got, want)
		}
	}
}

func TestGatewayEmbedsOrderMetadata(t *testing.T) {
	provider := &fakeProvider{session: CheckoutSession{ID: "cs_1", RedirectURL: "https://checkout.example/cs_1"}}
	mgr, err := NewManager(map[string]Provider{"stripe": provider})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	gateway, err := NewGateway(mgr, GatewayConfig{
		Currency:   "USD",
		SuccessURL: "https://store.example/success",
		CancelURL:  "https://store.example/cancel",
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	order := services.Order{
		ID:          "ord_1",
		OrderNumber: "SK-2026-000001",
		UserID:      "user-1",
		Lines: []services.OrderLine{
			{ProductID: "prd_1", ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
		TotalPrice: decimal.RequireFromString("20.00"),
	}

	session, err := gateway.CreateCheckoutSession(context.Background(), order)
	if err != nil {
		t.Fatalf("create checkout session: %v", err)
	}
	if session.SessionID != "cs_1" {
		t.Fatalf("unexpected session id %q", session.SessionID)
	}

	req := provider.lastReq
	if req.Metadata["orderId"] != "ord_1" {
		t.Fatalf("expected orderId metadata, got %+v", req.Metadata)
	}
	if req.Amount != 2000 {
		t.Fatalf("expected amount 2000, got %d", req.Amount)
	}
	if len(req.Items) != 1 || req.Items[0].Amount != 1000 || req.Items[0].Quantity != 2 {
		t.Fatalf("expected one 1000-cent line of quantity 2, got %+v", req.Items)
	}
}

func TestGatewayCollapsesDiscountedTotals(t *testing.T) {
	provider := &fakeProvider{session: CheckoutSession{ID: "cs_1"}}
	mgr, err := NewManager(map[string]Provider{"stripe": provider})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	gateway, err := NewGateway(mgr, GatewayConfig{
		Currency:   "USD",
		SuccessURL: "https://store.example/success",
		CancelURL:  "https://store.example/cancel",
	})
	if err != nil {
		t.Fatalf("new gateway: %v", err)
	}

	// 10% coupon applied: lines sum to 2000 but the order charges 1800.
	order := services.Order{
		ID:          "ord_1",
		OrderNumber: "SK-2026-000002",
		Lines: []services.OrderLine{
			{ProductName: "Mug", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
		},
		TotalPrice: decimal.RequireFromString("18.00"),
	}

	if _, err := gateway.CreateCheckoutSession(context.Background(), order); err != nil {
		t.Fatalf("create checkout session: %v", err)
	}

	req := provider.lastReq
	if len(req.Items) != 1 {
		t.Fatalf("expected single collapsed line, got %+v", req.Items)
	}
	if req.Items[0].Amount != 1800 || req.Items[0].Quantity != 1 {
		t.Fatalf("expected one 1800-cent line, got %+v", req.Items[0])
	}
}
