package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/services"
)

func newProductTestRouter(service services.ProductService) chi.Router {
	handler := NewProductHandlers(service)
	router := chi.NewRouter()
	router.Route("/products", handler.Routes)
	return router
}

func TestProductHandlersListProducts(t *testing.T) {
	service := &stubProductService{
		listFunc: func(ctx context.Context, query services.ProductListQuery) (domain.CursorPage[domain.Product], error) {
			if query.Search != "mug" {
				t.Fatalf("expected search mug, got %q", query.Search)
			}
			if !query.InStockOnly {
				t.Fatalf("expected in stock only filter")
			}
			if query.PageSize != 5 {
				t.Fatalf("expected page size 5, got %d", query.PageSize)
			}
			return domain.CursorPage[domain.Product]{
				Items: []domain.Product{
					{
						ID:       "prd_1",
						Name:     "Stoneware Mug",
						Slug:     "stoneware-mug",
						Price:    decimal.RequireFromString("10.00"),
						Discount: 20,
						Quantity: 10,
						Sold:     3,
					},
				},
				NextCursor: "tok_next",
			}, nil
		},
	}

	router := newProductTestRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/products?search=mug&in_stock=true&pageSize=5", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp productListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(resp.Items))
	}
	if resp.NextPageToken != "tok_next" {
		t.Fatalf("expected next page token, got %q", resp.NextPageToken)
	}
	item := resp.Items[0]
	if !item.FinalPrice.Equal(decimal.RequireFromString("8.00")) {
		t.Fatalf("expected final price 8.00, got %s", item.FinalPrice)
	}
	if item.Stock != 7 {
		t.Fatalf("expected stock 7, got %d", item.Stock)
	}
}

func TestProductHandlersGetProductBySlug(t *testing.T) {
	created := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)
	service := &stubProductService{
		getBySlugFunc: func(ctx context.Context, slug string) (services.Product, error) {
			if slug != "stoneware-mug" {
				t.Fatalf("expected slug lookup, got %q", slug)
			}
			return services.Product{ID: "prd_1", Slug: "stoneware-mug", Name: "Stoneware Mug", CreatedAt: created}, nil
		},
		getByIDFunc: func(ctx context.Context, productID string) (services.Product, error) {
			t.Fatalf("expected slug lookup, got id lookup for %q", productID)
			return services.Product{}, nil
		},
	}

	router := newProductTestRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/products/stoneware-mug", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestProductHandlersGetProductByID(t *testing.T) {
	service := &stubProductService{
		getByIDFunc: func(ctx context.Context, productID string) (services.Product, error) {
			if productID != "prd_abc" {
				t.Fatalf("expected id lookup, got %q", productID)
			}
			return services.Product{ID: "prd_abc"}, nil
		},
		getBySlugFunc: func(ctx context.Context, slug string) (services.Product, error) {
			t.Fatalf("expected id lookup, got slug lookup for %q", slug)
			return services.Product{}, nil
		},
	}

	router := newProductTestRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/products/prd_abc", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestProductHandlersGetProductNotFound(t *testing.T) {
	service := &stubProductService{
		getBySlugFunc: func(ctx context.Context, slug string) (services.Product, error) {
			return services.Product{}, services.ErrProductNotFound
		},
	}

	router := newProductTestRouter(service)
	req := httptest.NewRequest(http.MethodGet, "/products/missing", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestProductHandlersListInvalidInStock(t *testing.T) {
	router := newProductTestRouter(&stubProductService{})
	req := httptest.NewRequest(http.MethodGet, "/products?in_stock=maybe", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}
