package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/platform/auth"
	"github.com/soukly/api/internal/platform/httpx"
	"github.com/soukly/api/internal/platform/pagination"
	"github.com/soukly/api/internal/services"
)

const maxAdminBodySize = 64 * 1024

// AdminHandlers groups the privileged catalog, coupon, and order endpoints.
type AdminHandlers struct {
	authn     *auth.Authenticator
	products  services.ProductService
	coupons   services.CouponService
	orders    services.OrderService
	inventory services.InventoryService
}

// NewAdminHandlers constructs handlers gated on the admin role.
func NewAdminHandlers(
	authn *auth.Authenticator,
	products services.ProductService,
	coupons services.CouponService,
	orders services.OrderService,
	inventory services.InventoryService,
) *AdminHandlers {
	return &AdminHandlers{
		authn:     authn,
		products:  products,
		coupons:   coupons,
		orders:    orders,
		inventory: inventory,
	}
}

// Routes wires the /admin endpoints onto the provided router.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
	}

	r.Route("/products", func(pr chi.Router) {
		pr.Get("/", h.listProducts)
		pr.Post("/", h.createProduct)
		pr.Patch("/{productID}", h.updateProduct)
		pr.Delete("/{productID}", h.deleteProduct)
		pr.Post("/{productID}/restore", h.restoreProduct)
		pr.Post("/{productID}/image-upload-url", h.productImageUploadURL)
	})

	r.Route("/coupons", func(cr chi.Router) {
		cr.Get("/", h.listCoupons)
		cr.Post("/", h.createCoupon)
		cr.Get("/{couponID}", h.getCoupon)
		cr.Patch("/{couponID}", h.updateCoupon)
		cr.Delete("/{couponID}", h.deleteCoupon)
		cr.Post("/{couponID}/restore", h.restoreCoupon)
	})

	r.Route("/orders", func(or chi.Router) {
		or.Get("/", h.listOrders)
		or.Patch("/{orderID}/status", h.updateOrderStatus)
		or.Delete("/{orderID}", h.deleteOrder)
		or.Post("/{orderID}/restore", h.restoreOrder)
		or.Get("/{orderID}/stock-events", h.orderStockEvents)
	})
}

func (h *AdminHandlers) requireAdmin(ctx context.Context, w http.ResponseWriter) (services.Actor, bool) {
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return services.Actor{}, false
	}
	if !identity.HasRole(auth.RoleAdmin) {
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "admin role required", http.StatusForbidden))
		return services.Actor{}, false
	}
	return services.Actor{UserID: strings.TrimSpace(identity.UID), Admin: true}, true
}

type createProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity"`
	ImagePath   string `json:"image_path"`
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	Quantity    *int64  `json:"quantity"`
	ImagePath   *string `json:"image_path"`
}

type productImageUploadRequest struct {
	FileName string `json:"file_name"`
	Gallery  bool   `json:"gallery"`
}

func (h *AdminHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultProductPageSize,
		MaxPageSize:     maxProductPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.ProductListQuery{
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("include_deleted")); raw != "" {
		include, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_deleted must be a boolean", http.StatusBadRequest))
			return
		}
		query.IncludeDeleted = include
	}

	page, err := h.products.List(ctx, query)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, productListResponse{Items: items, NextPageToken: page.NextCursor})
}

func (h *AdminHandlers) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createProductRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price must be a decimal string", http.StatusBadRequest))
		return
	}

	product, err := h.products.Create(ctx, services.CreateProductCommand{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Quantity:    req.Quantity,
		ImagePath:   strings.TrimSpace(req.ImagePath),
		ActorID:     actor.UserID,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminHandlers) updateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateProductRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateProductCommand{
		ProductID:   productID,
		Name:        req.Name,
		Description: req.Description,
		Quantity:    req.Quantity,
		ImagePath:   req.ImagePath,
		ActorID:     actor.UserID,
	}
	if req.Price != nil {
		price, parseErr := decimal.NewFromString(strings.TrimSpace(*req.Price))
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "price must be a decimal string", http.StatusBadRequest))
			return
		}
		cmd.Price = &price
	}

	product, err := h.products.Update(ctx, cmd)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func (h *AdminHandlers) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.products.SoftDelete(ctx, productID, actor.UserID); err != nil {
		writeProductError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) restoreProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	if err := h.products.Restore(ctx, productID); err != nil {
		writeProductError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) productImageUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	productID := strings.TrimSpace(chi.URLParam(r, "productID"))
	if productID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req productImageUploadRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	upload, err := h.products.ImageUploadURL(ctx, services.ProductImageUploadCommand{
		ProductID: productID,
		FileName:  strings.TrimSpace(req.FileName),
		Gallery:   req.Gallery,
	})
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, signedUploadResponse{
		UploadURL:  upload.UploadURL,
		ObjectPath: upload.ObjectPath,
		ExpiresAt:  formatTime(upload.ExpiresAt),
	})
}

type signedUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	ObjectPath string `json:"object_path"`
	ExpiresAt  string `json:"expires_at"`
}

type createCouponRequest struct {
	Code     string `json:"code"`
	Amount   int    `json:"amount"`
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
}

type updateCouponRequest struct {
	Code     *string `json:"code"`
	Amount   *int    `json:"amount"`
	FromDate *string `json:"from_date"`
	ToDate   *string `json:"to_date"`
}

func (h *AdminHandlers) listCoupons(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultProductPageSize,
		MaxPageSize:     maxProductPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.CouponListQuery{
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}
	values := r.URL.Query()
	if raw := strings.TrimSpace(values.Get("include_deleted")); raw != "" {
		include, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_deleted must be a boolean", http.StatusBadRequest))
			return
		}
		query.IncludeDeleted = include
	}
	if raw := strings.TrimSpace(values.Get("active_after")); raw != "" {
		ts, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "active_after must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		query.From = &ts
	}
	if raw := strings.TrimSpace(values.Get("active_before")); raw != "" {
		ts, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "active_before must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		query.To = &ts
	}

	page, err := h.coupons.List(ctx, query)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	items := make([]couponPayload, 0, len(page.Items))
	for _, coupon := range page.Items {
		items = append(items, buildCouponPayload(coupon))
	}
	writeJSONResponse(w, http.StatusOK, couponListResponse{Items: items, NextPageToken: page.NextCursor})
}

func (h *AdminHandlers) createCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	fromDate, err := time.Parse(time.RFC3339, strings.TrimSpace(req.FromDate))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from_date must be a valid RFC3339 timestamp", http.StatusBadRequest))
		return
	}
	toDate, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ToDate))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to_date must be a valid RFC3339 timestamp", http.StatusBadRequest))
		return
	}

	coupon, err := h.coupons.Create(ctx, services.CreateCouponCommand{
		Code:     req.Code,
		Amount:   req.Amount,
		FromDate: fromDate,
		ToDate:   toDate,
		ActorID:  actor.UserID,
	})
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, couponResponse{Coupon: buildCouponPayload(coupon)})
}

func (h *AdminHandlers) getCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	coupon, err := h.coupons.GetByID(ctx, couponID)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, couponResponse{Coupon: buildCouponPayload(coupon)})
}

func (h *AdminHandlers) updateCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateCouponRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	cmd := services.UpdateCouponCommand{
		CouponID: couponID,
		Code:     req.Code,
		Amount:   req.Amount,
		ActorID:  actor.UserID,
	}
	if req.FromDate != nil {
		ts, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(*req.FromDate))
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from_date must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.FromDate = &ts
	}
	if req.ToDate != nil {
		ts, parseErr := time.Parse(time.RFC3339, strings.TrimSpace(*req.ToDate))
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to_date must be a valid RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.ToDate = &ts
	}

	coupon, err := h.coupons.Update(ctx, cmd)
	if err != nil {
		writeCouponError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, couponResponse{Coupon: buildCouponPayload(coupon)})
}

func (h *AdminHandlers) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	if err := h.coupons.SoftDelete(ctx, couponID, actor.UserID); err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) restoreCoupon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.coupons == nil {
		httpx.WriteError(ctx, w, httpx.NewError("coupon_service_unavailable", "coupon service is unavailable", http.StatusServiceUnavailable))
		return
	}

	couponID := strings.TrimSpace(chi.URLParam(r, "couponID"))
	if couponID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "coupon id is required", http.StatusBadRequest))
		return
	}

	if err := h.coupons.Restore(ctx, couponID); err != nil {
		writeCouponError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

func (h *AdminHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	query, err := parseOrderListQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("include_deleted")); raw != "" {
		include, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "include_deleted must be a boolean", http.StatusBadRequest))
			return
		}
		query.IncludeDeleted = include
	}

	page, err := h.orders.List(ctx, query, actor)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, orderListResponse{Items: items, NextPageToken: page.NextCursor})
}

func (h *AdminHandlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxAdminBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateOrderStatusRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if _, valid := validOrderStatuses[status]; !valid {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "status must be a valid order status", http.StatusBadRequest))
		return
	}

	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: orderID,
		Status:  status,
		ActorID: actor.UserID,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *AdminHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireAdmin(ctx, w)
	if !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.SoftDelete(ctx, orderID, actor); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) restoreOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	if err := h.orders.Restore(ctx, orderID); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandlers) orderStockEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireAdmin(ctx, w); !ok {
		return
	}
	if h.inventory == nil {
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	events, err := h.inventory.HistoryByOrder(ctx, orderID)
	if err != nil {
		writeInventoryError(ctx, w, err)
		return
	}

	items := make([]stockEventPayload, 0, len(events))
	for _, event := range events {
		items = append(items, stockEventPayload{
			ID:        event.ID,
			ProductID: event.ProductID,
			Delta:     event.Delta,
			Reason:    event.Reason,
			OrderID:   event.OrderID,
			CreatedAt: formatTime(event.CreatedAt),
		})
	}
	writeJSONResponse(w, http.StatusOK, stockEventListResponse{Items: items})
}

func writeInventoryError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "requested quantity exceeds available stock", http.StatusConflict))
	case errors.Is(err, services.ErrInventoryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("inventory_service_unavailable", "inventory service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("inventory_error", "failed to process inventory request", http.StatusInternalServerError))
	}
}

type stockEventListResponse struct {
	Items []stockEventPayload `json:"items"`
}

type stockEventPayload struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Delta     int64  `json:"delta"`
	Reason    string `json:"reason"`
	OrderID   string `json:"order_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}
