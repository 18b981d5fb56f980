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
	"github.com/soukly/api/internal/platform/auth"
	"github.com/soukly/api/internal/services"
)

type adminTestServices struct {
	products  *stubProductService
	coupons   *stubCouponService
	orders    *stubOrderService
	inventory *stubInventoryService
}

func newAdminTestRouter(svcs adminTestServices) chi.Router {
	if svcs.products == nil {
		svcs.products = &stubProductService{}
	}
	if svcs.coupons == nil {
		svcs.coupons = &stubCouponService{}
	}
	if svcs.orders == nil {
		svcs.orders = &stubOrderService{}
	}
	if svcs.inventory == nil {
		svcs.inventory = &stubInventoryService{}
	}
	handler := NewAdminHandlers(nil, svcs.products, svcs.coupons, svcs.orders, svcs.inventory)
	router := chi.NewRouter()
	router.Route("/admin", handler.Routes)
	return router
}

func adminRequest(method, target, body string) *http.Request {
	return authedRequest(method, target, body, "admin-1", auth.RoleAdmin)
}

func TestAdminHandlersCreateProduct(t *testing.T) {
	products := &stubProductService{
		createFunc: func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
			if cmd.Name != "Stoneware Mug" {
				t.Fatalf("unexpected name %q", cmd.Name)
			}
			if !cmd.Price.Equal(decimal.RequireFromString("12.50")) {
				t.Fatalf("unexpected price %s", cmd.Price)
			}
			if cmd.Quantity != 40 {
				t.Fatalf("unexpected quantity %d", cmd.Quantity)
			}
			if cmd.ActorID != "admin-1" {
				t.Fatalf("unexpected actor %q", cmd.ActorID)
			}
			return services.Product{ID: "prd_1", Name: cmd.Name, Slug: "stoneware-mug", Price: cmd.Price, Quantity: cmd.Quantity}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{products: products})
	body := `{"name":"Stoneware Mug","description":"Hand thrown.","price":"12.50","quantity":40}`
	req := adminRequest(http.MethodPost, "/admin/products", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	var resp productResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Product.Slug != "stoneware-mug" {
		t.Fatalf("expected slug, got %q", resp.Product.Slug)
	}
}

func TestAdminHandlersCreateProductBadPrice(t *testing.T) {
	router := newAdminTestRouter(adminTestServices{})
	req := adminRequest(http.MethodPost, "/admin/products", `{"name":"Mug","price":"twelve"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminHandlersNonAdminForbidden(t *testing.T) {
	router := newAdminTestRouter(adminTestServices{})
	req := authedRequest(http.MethodPost, "/admin/products", `{"name":"Mug","price":"1.00"}`, "user-7")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestAdminHandlersUpdateProductPartial(t *testing.T) {
	products := &stubProductService{
		updateFunc: func(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
			if cmd.ProductID != "prd_1" {
				t.Fatalf("unexpected product id %q", cmd.ProductID)
			}
			if cmd.Name != nil {
				t.Fatalf("expected name untouched, got %q", *cmd.Name)
			}
			if cmd.Quantity == nil || *cmd.Quantity != 55 {
				t.Fatalf("expected quantity 55, got %#v", cmd.Quantity)
			}
			if cmd.Price == nil || !cmd.Price.Equal(decimal.RequireFromString("9.99")) {
				t.Fatalf("expected price 9.99, got %#v", cmd.Price)
			}
			return services.Product{ID: "prd_1"}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{products: products})
	req := adminRequest(http.MethodPatch, "/admin/products/prd_1", `{"quantity":55,"price":"9.99"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestAdminHandlersDeleteProduct(t *testing.T) {
	deleted := false
	products := &stubProductService{
		softDeleteFunc: func(ctx context.Context, productID, actorID string) error {
			if productID != "prd_1" || actorID != "admin-1" {
				t.Fatalf("unexpected delete args %q %q", productID, actorID)
			}
			deleted = true
			return nil
		},
	}

	router := newAdminTestRouter(adminTestServices{products: products})
	req := adminRequest(http.MethodDelete, "/admin/products/prd_1", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if !deleted {
		t.Fatalf("expected soft delete to be invoked")
	}
}

func TestAdminHandlersProductImageUploadURL(t *testing.T) {
	expires := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	products := &stubProductService{
		uploadURLFunc: func(ctx context.Context, cmd services.ProductImageUploadCommand) (services.SignedUpload, error) {
			if cmd.ProductID != "prd_1" || cmd.FileName != "front.png" || !cmd.Gallery {
				t.Fatalf("unexpected command %#v", cmd)
			}
			return services.SignedUpload{
				UploadURL:  "https://storage.googleapis.com/store-assets/signed",
				ObjectPath: "assets/products/prd_1/gallery/upl/front.png",
				ExpiresAt:  expires,
			}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{products: products})
	req := adminRequest(http.MethodPost, "/admin/products/prd_1/image-upload-url", `{"file_name":"front.png","gallery":true}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}

	var resp signedUploadResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.UploadURL == "" || resp.ObjectPath == "" {
		t.Fatalf("unexpected upload payload %#v", resp)
	}
}

func TestAdminHandlersCreateCoupon(t *testing.T) {
	coupons := &stubCouponService{
		createFunc: func(ctx context.Context, cmd services.CreateCouponCommand) (services.Coupon, error) {
			if cmd.Code != "spring-10" || cmd.Amount != 10 {
				t.Fatalf("unexpected command %#v", cmd)
			}
			if !cmd.FromDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected from date %s", cmd.FromDate)
			}
			return services.Coupon{ID: "cpn_1", Code: "SPRING-10", Amount: 10}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{coupons: coupons})
	body := `{"code":"spring-10","amount":10,"from_date":"2026-03-01T00:00:00Z","to_date":"2026-04-01T00:00:00Z"}`
	req := adminRequest(http.MethodPost, "/admin/coupons", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
}

func TestAdminHandlersCreateCouponBadWindow(t *testing.T) {
	router := newAdminTestRouter(adminTestServices{})
	req := adminRequest(http.MethodPost, "/admin/coupons", `{"code":"X","amount":10,"from_date":"yesterday","to_date":"2026-04-01T00:00:00Z"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminHandlersUpdateOrderStatus(t *testing.T) {
	orders := &stubOrderService{
		updateStatusFunc: func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
			if cmd.OrderID != "ord_1" || cmd.Status != domain.OrderStatusProcessing {
				t.Fatalf("unexpected command %#v", cmd)
			}
			return services.Order{ID: "ord_1", StatusDetails: domain.StatusDetails{Status: domain.OrderStatusProcessing}}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{orders: orders})
	req := adminRequest(http.MethodPatch, "/admin/orders/ord_1/status", `{"status":"processing"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Order.Status != "PROCESSING" {
		t.Fatalf("expected PROCESSING, got %q", resp.Order.Status)
	}
}

func TestAdminHandlersUpdateOrderStatusInvalid(t *testing.T) {
	router := newAdminTestRouter(adminTestServices{})
	req := adminRequest(http.MethodPatch, "/admin/orders/ord_1/status", `{"status":"LOST"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminHandlersUpdateOrderStatusNonAdjacent(t *testing.T) {
	orders := &stubOrderService{
		updateStatusFunc: func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
			return services.Order{}, services.ErrOrderInvalidState
		},
	}

	router := newAdminTestRouter(adminTestServices{orders: orders})
	req := adminRequest(http.MethodPatch, "/admin/orders/ord_1/status", `{"status":"DELIVERED"}`)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminHandlersOrderStockEvents(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	inventory := &stubInventoryService{
		historyFunc: func(ctx context.Context, orderID string) ([]services.StockEvent, error) {
			if orderID != "ord_1" {
				t.Fatalf("unexpected order id %q", orderID)
			}
			return []services.StockEvent{
				{ID: "sev_1", ProductID: "prd_1", Delta: 2, Reason: "order placed", OrderID: "ord_1", CreatedAt: now},
				{ID: "sev_2", ProductID: "prd_1", Delta: -2, Reason: "order cancelled", OrderID: "ord_1", CreatedAt: now.Add(time.Hour)},
			}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{inventory: inventory})
	req := adminRequest(http.MethodGet, "/admin/orders/ord_1/stock-events", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp stockEventListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 events, got %d", len(resp.Items))
	}
	if resp.Items[0].Delta+resp.Items[1].Delta != 0 {
		t.Fatalf("expected deltas to cancel out, got %#v", resp.Items)
	}
}

func TestAdminHandlersListOrdersIncludeDeleted(t *testing.T) {
	orders := &stubOrderService{
		listFunc: func(ctx context.Context, query services.OrderListQuery, actor services.Actor) (domain.CursorPage[domain.Order], error) {
			if !actor.Admin {
				t.Fatalf("expected admin actor")
			}
			if !query.IncludeDeleted {
				t.Fatalf("expected include_deleted filter")
			}
			return domain.CursorPage[domain.Order]{}, nil
		},
	}

	router := newAdminTestRouter(adminTestServices{orders: orders})
	req := adminRequest(http.MethodGet, "/admin/orders?include_deleted=true", "")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
