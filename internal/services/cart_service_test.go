package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/soukly/api/internal/domain"
)

func testProduct(id string, price string, quantity, sold int64) domain.Product {
	return domain.Product{
		ID:       id,
		Name:     "Product " + id,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		Sold:     sold,
	}
}

func TestCartServiceGetCartReturnsExisting(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			if userID != "user-123" {
				t.Fatalf("unexpected user id %q", userID)
			}
			return domain.Cart{
				ID:     "crt_1",
				UserID: "user-123",
				Lines: []domain.CartLine{
					{ProductID: "prd_1", Quantity: 2, FinalPrice: decimal.RequireFromString("5.00")},
				},
				SubTotal:  decimal.RequireFromString("10.00"),
				UpdatedAt: now.Add(-time.Hour),
			}, nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: &stubProductRepository{},
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, err := service.GetCart(context.Background(), " user-123 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.ID != "crt_1" {
		t.Fatalf("expected cart id crt_1, got %q", cart.ID)
	}
	if !cart.SubTotal.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("expected subtotal 10.00, got %s", cart.SubTotal)
	}
}

func TestCartServiceGetCartLazyCreates(t *testing.T) {
	now := time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)
	var upserted domain.Cart

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{}, &repositoryErrorStub{notFound: true}
		},
		upsertFunc: func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
			if expected != nil {
				t.Fatalf("expected no precondition for a new cart")
			}
			upserted = cart
			return cart, nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:       carts,
		Products:    &stubProductRepository{},
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "crt_new" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, err := service.GetCart(context.Background(), "guest-5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upserted.ID != "crt_new" {
		t.Fatalf("expected upserted cart id crt_new, got %q", upserted.ID)
	}
	if cart.UserID != "guest-5" {
		t.Fatalf("expected user id guest-5, got %q", cart.UserID)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty lines")
	}
	if !cart.SubTotal.IsZero() {
		t.Fatalf("expected zero subtotal, got %s", cart.SubTotal)
	}
}

func TestCartServiceGetCartInvalidUser(t *testing.T) {
	service, err := NewCartService(CartServiceDeps{
		Carts:    &stubCartRepository{},
		Products: &stubProductRepository{},
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	_, err = service.GetCart(context.Background(), "  ")
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceAddItemLocksPrice(t *testing.T) {
	now := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)
	var saved domain.Cart

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{ID: "crt_1", UserID: userID, UpdatedAt: now.Add(-time.Minute)}, nil
		},
		upsertFunc: func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
			if expected == nil {
				t.Fatalf("expected a precondition for an existing cart")
			}
			saved = cart
			return cart, nil
		},
	}
	products := &stubProductRepository{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			p := testProduct("prd_1", "10.00", 5, 0)
			p.Discount = 20
			return p, nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: products,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "prd_1",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(saved.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(saved.Lines))
	}
	if !saved.Lines[0].FinalPrice.Equal(decimal.RequireFromString("8.00")) {
		t.Fatalf("expected discounted price 8.00, got %s", saved.Lines[0].FinalPrice)
	}
	if !cart.SubTotal.Equal(decimal.RequireFromString("16.00")) {
		t.Fatalf("expected subtotal 16.00, got %s", cart.SubTotal)
	}
}

func TestCartServiceAddItemAlreadyInCart(t *testing.T) {
	now := time.Date(2026, 3, 12, 8, 0, 0, 0, time.UTC)

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				ID:     "crt_1",
				UserID: userID,
				Lines: []domain.CartLine{
					{ProductID: "prd_1", Quantity: 1, FinalPrice: decimal.RequireFromString("10.00")},
				},
			}, nil
		},
	}
	products := &stubProductRepository{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return testProduct("prd_1", "10.00", 5, 0), nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: products,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	_, err = service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "prd_1",
		Quantity:  1,
	})
	if !errors.Is(err, ErrCartItemExists) {
		t.Fatalf("expected ErrCartItemExists, got %v", err)
	}
}

func TestCartServiceAddItemInsufficientStock(t *testing.T) {
	products := &stubProductRepository{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return testProduct("prd_1", "10.00", 5, 4), nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    &stubCartRepository{},
		Products: products,
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	_, err = service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "prd_1",
		Quantity:  2,
	})
	if !errors.Is(err, ErrCartInsufficientStock) {
		t.Fatalf("expected ErrCartInsufficientStock, got %v", err)
	}
}

func TestCartServiceUpdateQuantityKeepsLockedPrice(t *testing.T) {
	now := time.Date(2026, 3, 13, 15, 0, 0, 0, time.UTC)
	lockedPrice := decimal.RequireFromString("7.50")
	var saved domain.Cart

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				ID:     "crt_1",
				UserID: userID,
				Lines: []domain.CartLine{
					{ProductID: "prd_1", Quantity: 1, FinalPrice: lockedPrice},
				},
				UpdatedAt: now.Add(-time.Hour),
			}, nil
		},
		upsertFunc: func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
			saved = cart
			return cart, nil
		},
	}
	products := &stubProductRepository{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			// Catalog price moved since the line was added.
			return testProduct("prd_1", "9.99", 10, 0), nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: products,
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, err := service.UpdateQuantity(context.Background(), UpdateCartQuantityCommand{
		UserID:    "user-1",
		ProductID: "prd_1",
		Quantity:  4,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if saved.Lines[0].Quantity != 4 {
		t.Fatalf("expected quantity 4, got %d", saved.Lines[0].Quantity)
	}
	if !saved.Lines[0].FinalPrice.Equal(lockedPrice) {
		t.Fatalf("expected locked price %s, got %s", lockedPrice, saved.Lines[0].FinalPrice)
	}
	if !cart.SubTotal.Equal(decimal.RequireFromString("30.00")) {
		t.Fatalf("expected subtotal 30.00, got %s", cart.SubTotal)
	}
}

func TestCartServiceUpdateQuantityMissingLine(t *testing.T) {
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{ID: "crt_1", UserID: userID}, nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: &stubProductRepository{},
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	_, err = service.UpdateQuantity(context.Background(), UpdateCartQuantityCommand{
		UserID:    "user-1",
		ProductID: "prd_missing",
		Quantity:  1,
	})
	if !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartServiceRemoveItem(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	var saved domain.Cart

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				ID:     "crt_1",
				UserID: userID,
				Lines: []domain.CartLine{
					{ProductID: "prd_1", Quantity: 1, FinalPrice: decimal.RequireFromString("5.00")},
					{ProductID: "prd_2", Quantity: 3, FinalPrice: decimal.RequireFromString("2.00")},
				},
				UpdatedAt: now.Add(-time.Hour),
			}, nil
		},
		upsertFunc: func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
			saved = cart
			return cart, nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: &stubProductRepository{},
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, err := service.RemoveItem(context.Background(), "user-1", "prd_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved.Lines) != 1 || saved.Lines[0].ProductID != "prd_2" {
		t.Fatalf("expected only prd_2 to remain, got %+v", saved.Lines)
	}
	if !cart.SubTotal.Equal(decimal.RequireFromString("6.00")) {
		t.Fatalf("expected subtotal 6.00, got %s", cart.SubTotal)
	}
}

func TestCartServiceClearCart(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	cleared := false

	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				ID:     "crt_1",
				UserID: userID,
				Lines: []domain.CartLine{
					{ProductID: "prd_1", Quantity: 1, FinalPrice: decimal.RequireFromString("5.00")},
				},
			}, nil
		},
		clearFunc: func(ctx context.Context, cartID string, clearedAt time.Time) error {
			if cartID != "crt_1" {
				t.Fatalf("unexpected cart id %q", cartID)
			}
			cleared = true
			return nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: &stubProductRepository{},
		Clock:    func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	cart, err := service.ClearCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cleared {
		t.Fatalf("expected repository clear to run")
	}
	if len(cart.Lines) != 0 || !cart.SubTotal.IsZero() {
		t.Fatalf("expected empty cart, got %+v", cart)
	}
}

func TestCartServiceConflictSurfacesAsConflict(t *testing.T) {
	carts := &stubCartRepository{
		findByUserFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{ID: "crt_1", UserID: userID, UpdatedAt: time.Now()}, nil
		},
		upsertFunc: func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
			return domain.Cart{}, &repositoryErrorStub{conflict: true}
		},
	}
	products := &stubProductRepository{
		findByIDFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return testProduct("prd_1", "10.00", 5, 0), nil
		},
	}

	service, err := NewCartService(CartServiceDeps{
		Carts:    carts,
		Products: products,
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}

	_, err = service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "prd_1",
		Quantity:  1,
	})
	if !errors.Is(err, ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict, got %v", err)
	}
}
