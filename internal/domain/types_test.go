package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCartComputeSubTotal(t *testing.T) {
	cart := Cart{
		Lines: []CartLine{
			{ProductID: "prd_1", Quantity: 2, FinalPrice: decimal.RequireFromString("7.50")},
			{ProductID: "prd_2", Quantity: 1, FinalPrice: decimal.RequireFromString("5.00")},
		},
	}

	got := cart.ComputeSubTotal()
	if !got.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("expected subtotal 20.00, got %s", got)
	}
}

func TestCouponApply(t *testing.T) {
	coupon := Coupon{Amount: 10}
	total := coupon.Apply(decimal.RequireFromString("20.00"))
	if !total.Equal(decimal.RequireFromString("18.00")) {
		t.Fatalf("expected 18.00 after 10%% discount, got %s", total)
	}
}

func TestCouponApplyRoundsToCents(t *testing.T) {
	coupon := Coupon{Amount: 10}
	total := coupon.Apply(decimal.RequireFromString("19.99"))
	if !total.Equal(decimal.RequireFromString("17.99")) {
		t.Fatalf("expected 17.99 after 10%% discount on 19.99, got %s", total)
	}
	if total.Exponent() < -2 {
		t.Fatalf("expected at most two decimal places, got %s", total)
	}
}

func TestCouponActiveAt(t *testing.T) {
	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	coupon := Coupon{FromDate: from, ToDate: to}

	if !coupon.ActiveAt(time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)) {
		t.Fatal("expected coupon active inside window")
	}
	if coupon.ActiveAt(from.Add(-time.Second)) {
		t.Fatal("expected coupon inactive before window")
	}
	if coupon.ActiveAt(to.Add(time.Second)) {
		t.Fatal("expected coupon inactive after window")
	}
}

func TestProductStock(t *testing.T) {
	product := Product{Quantity: 12, Sold: 5}
	if got := product.Stock(); got != 7 {
		t.Fatalf("expected stock 7, got %d", got)
	}
}
