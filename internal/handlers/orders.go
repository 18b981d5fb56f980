package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
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

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
	maxOrderBodySize     = 16 * 1024
)

var validOrderStatuses = map[domain.OrderStatus]struct{}{
	domain.OrderStatusPending:    {},
	domain.OrderStatusPlaced:     {},
	domain.OrderStatusProcessing: {},
	domain.OrderStatusShipped:    {},
	domain.OrderStatusDelivered:  {},
	domain.OrderStatusCancelled:  {},
	domain.OrderStatusRefunded:   {},
}

// OrderHandlers exposes order placement and lifecycle endpoints for authenticated users.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Get("/{orderID}/invoice", h.invoiceDownload)
	r.Post("/{orderID}/checkout", h.createCheckoutSession)
	r.Post("/{orderID}/cancel", h.cancelOrder)
}

type createOrderRequest struct {
	PaymentMethod string `json:"payment_method"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	CouponCode    string `json:"coupon_code"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
		return
	}

	method := domain.PaymentMethod(strings.ToUpper(strings.TrimSpace(req.PaymentMethod)))
	if method != domain.PaymentMethodCash && method != domain.PaymentMethodCard {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "payment_method must be CASH or CARD", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Create(ctx, services.CreateOrderCommand{
		UserID:        actor.UserID,
		PaymentMethod: method,
		Address:       strings.TrimSpace(req.Address),
		Phone:         strings.TrimSpace(req.Phone),
		CouponCode:    strings.TrimSpace(req.CouponCode),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(ctx, w)
	if !ok {
		return
	}

	query, err := parseOrderListQuery(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
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

	writeJSONResponse(w, http.StatusOK, orderListResponse{
		Items:         items,
		NextPageToken: page.NextCursor,
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetByID(ctx, orderID, actor)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) invoiceDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	download, err := h.orders.InvoiceDownloadURL(ctx, orderID, actor)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, invoiceDownloadResponse{
		DownloadURL: download.URL,
		ExpiresAt:   formatTime(download.ExpiresAt),
	})
}

func (h *OrderHandlers) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	session, err := h.orders.CreateCheckoutSession(ctx, services.CheckoutCommand{
		OrderID: orderID,
		Actor:   actor,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, checkoutSessionResponse{
		SessionID:   session.SessionID,
		CheckoutURL: session.CheckoutURL,
	})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := h.requireActor(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	var req cancelOrderRequest
	body, err := readLimitedBody(r, maxOrderBodySize)
	if err != nil && !errors.Is(err, errEmptyBody) {
		writeBodyError(ctx, w, err)
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON body", http.StatusBadRequest))
			return
		}
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		OrderID: orderID,
		Actor:   actor,
		Reason:  strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) requireActor(ctx context.Context, w http.ResponseWriter) (services.Actor, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return services.Actor{}, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return services.Actor{}, false
	}
	return services.Actor{
		UserID: strings.TrimSpace(identity.UID),
		Admin:  identity.HasRole(auth.RoleAdmin),
	}, true
}

func parseOrderListQuery(r *http.Request) (services.OrderListQuery, error) {
	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultOrderPageSize,
		MaxPageSize:     maxOrderPageSize,
	})
	if err != nil {
		return services.OrderListQuery{}, err
	}

	values := r.URL.Query()
	query := services.OrderListQuery{
		UserID:    strings.TrimSpace(values.Get("user_id")),
		Search:    strings.TrimSpace(values.Get("search")),
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := domain.OrderStatus(strings.ToUpper(raw))
		if _, ok := validOrderStatuses[status]; !ok {
			return services.OrderListQuery{}, errors.New("status must be a valid order status")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(values.Get("payment_method")); raw != "" {
		method := domain.PaymentMethod(strings.ToUpper(raw))
		if method != domain.PaymentMethodCash && method != domain.PaymentMethodCard {
			return services.OrderListQuery{}, errors.New("payment_method must be CASH or CARD")
		}
		query.PaymentMethod = &method
	}
	if raw := strings.TrimSpace(values.Get("created_after")); raw != "" {
		ts, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			return services.OrderListQuery{}, errors.New("created_after must be a valid RFC3339 timestamp")
		}
		query.From = &ts
	}
	if raw := strings.TrimSpace(values.Get("created_before")); raw != "" {
		ts, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			return services.OrderListQuery{}, errors.New("created_before must be a valid RFC3339 timestamp")
		}
		query.To = &ts
	}

	return query, nil
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "not allowed to access this order", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "requested quantity exceeds available stock", http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", "order cannot change state this way", http.StatusConflict))
	case errors.Is(err, services.ErrOrderCoupon):
		httpx.WriteError(ctx, w, httpx.NewError("coupon_rejected", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderGateway):
		httpx.WriteError(ctx, w, httpx.NewError("payment_gateway_error", "payment gateway rejected the request", http.StatusBadGateway))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}

type orderListResponse struct {
	Items         []orderPayload `json:"items"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type checkoutSessionResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}

type invoiceDownloadResponse struct {
	DownloadURL string `json:"download_url"`
	ExpiresAt   string `json:"expires_at"`
}

type orderPayload struct {
	ID                    string                 `json:"id"`
	OrderNumber           string                 `json:"order_number"`
	UserID                string                 `json:"user_id"`
	Status                string                 `json:"status"`
	PaymentMethod         string                 `json:"payment_method"`
	Lines                 []orderLinePayload     `json:"lines"`
	TotalPrice            decimal.Decimal        `json:"total_price"`
	Address               string                 `json:"address,omitempty"`
	Phone                 string                 `json:"phone,omitempty"`
	CouponID              string                 `json:"coupon_id,omitempty"`
	EstimatedDeliveryDate string                 `json:"estimated_delivery_date,omitempty"`
	StockCommitted        bool                   `json:"stock_committed"`
	Payment               *orderPaymentPayload   `json:"payment,omitempty"`
	Cancellation          *orderCancelledPayload `json:"cancellation,omitempty"`
	Refund                *orderRefundPayload    `json:"refund,omitempty"`
	CreatedAt             string                 `json:"created_at,omitempty"`
	UpdatedAt             string                 `json:"updated_at,omitempty"`
	DeletedAt             string                 `json:"deleted_at,omitempty"`
}

type orderLinePayload struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type orderPaymentPayload struct {
	PaymentIntentID string `json:"payment_intent_id"`
	PaidAt          string `json:"paid_at,omitempty"`
	PaidBy          string `json:"paid_by,omitempty"`
}

type orderCancelledPayload struct {
	CancelledAt string `json:"cancelled_at,omitempty"`
	CancelledBy string `json:"cancelled_by,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

type orderRefundPayload struct {
	RefundedAt string `json:"refunded_at,omitempty"`
	RefundedBy string `json:"refunded_by,omitempty"`
}

func buildOrderPayload(order services.Order) orderPayload {
	lines := make([]orderLinePayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLinePayload{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	payload := orderPayload{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		UserID:                order.UserID,
		Status:                string(order.Status()),
		PaymentMethod:         string(order.PaymentMethod),
		Lines:                 lines,
		TotalPrice:            order.TotalPrice,
		Address:               order.Address,
		Phone:                 order.Phone,
		CouponID:              order.CouponID,
		EstimatedDeliveryDate: formatTime(order.EstimatedDeliveryDate),
		StockCommitted:        order.StockCommitted,
		CreatedAt:             formatTime(order.CreatedAt),
		UpdatedAt:             formatTime(order.UpdatedAt),
		DeletedAt:             formatTimePointer(order.DeletedAt),
	}

	if order.PaymentDetails != nil {
		payload.Payment = &orderPaymentPayload{
			PaymentIntentID: order.PaymentDetails.PaymentIntentID,
			PaidAt:          formatTime(order.PaymentDetails.PaidAt),
			PaidBy:          order.PaymentDetails.PaidBy,
		}
	}
	if order.StatusDetails.CancelledAt != nil {
		payload.Cancellation = &orderCancelledPayload{
			CancelledAt: formatTimePointer(order.StatusDetails.CancelledAt),
			CancelledBy: order.StatusDetails.CancelledBy,
			Reason:      order.StatusDetails.CancelReason,
		}
	}
	if order.StatusDetails.RefundedAt != nil {
		payload.Refund = &orderRefundPayload{
			RefundedAt: formatTimePointer(order.StatusDetails.RefundedAt),
			RefundedBy: order.StatusDetails.RefundedBy,
		}
	}

	return payload
}
