package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/platform/auth"
	pstorage "github.com/soukly/api/internal/platform/storage"
	"github.com/soukly/api/internal/repositories"
)

var (
	errOrderRegistryRequired = errors.New("order service: repository registry is required")
	errOrderClockRequired    = errors.New("order service: clock is required")
)

const (
	defaultDeliveryWindow    = 72 * time.Hour
	defaultOrderNumberPrefix = "SK"
	defaultCancelReason      = "User requested cancellation"

	stockReasonOrderPlaced    = "order placed"
	stockReasonPaymentOK      = "payment confirmed"
	stockReasonOrderCancelled = "order cancelled"

	invoiceDownloadExpiresIn = 10 * time.Minute
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderUnavailable indicates the order service cannot fulfil the request.
var ErrOrderUnavailable = errors.New("order service: unavailable")

// ErrOrderNotFound indicates the requested order does not exist.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrOrderConflict indicates a concurrent modification or duplicate event.
var ErrOrderConflict = errors.New("order service: conflict")

// ErrOrderForbidden indicates the caller does not own the order.
var ErrOrderForbidden = errors.New("order service: forbidden")

// ErrOrderInvalidState indicates the requested transition is not allowed
// from the order's current status.
var ErrOrderInvalidState = errors.New("order service: invalid state")

// ErrOrderEmptyCart indicates placement was attempted with no cart lines.
var ErrOrderEmptyCart = errors.New("order service: cart is empty")

// ErrOrderInsufficientStock indicates placement would oversell a product.
var ErrOrderInsufficientStock = errors.New("order service: insufficient stock")

// ErrOrderCoupon indicates the supplied coupon cannot be redeemed.
var ErrOrderCoupon = errors.New("order service: coupon rejected")

// ErrOrderGateway indicates the payment gateway rejected or failed the call.
var ErrOrderGateway = errors.New("order service: payment gateway failure")

// PaymentGateway is the slice of the payment provider the order service needs.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, order Order) (CheckoutSession, error)
	Refund(ctx context.Context, paymentIntentID string) error
}

// CouponRedeemer validates and burns coupon codes during placement.
// CheckUnused is the read half and MarkUsed the write half of an in-tx
// redemption; Firestore transactions demand every read before the first
// write, so the two must not be collapsed.
type CouponRedeemer interface {
	Validate(ctx context.Context, code, userID string) (Coupon, error)
	CheckUnused(ctx context.Context, couponID, userID string) error
	MarkUsed(ctx context.Context, couponID, userID string) error
}

// OrderServiceDeps wires the persistence, gateway and messaging dependencies.
type OrderServiceDeps struct {
	Registry       repositories.Registry
	Coupons        CouponRedeemer
	Gateway        PaymentGateway
	Publisher      OrderEventPublisher
	Storage        AssetURLSigner
	Bucket         string
	DeliveryWindow time.Duration
	NumberPrefix   string
	Clock          func() time.Time
	Logger         func(context.Context, string, map[string]any)
	IDGenerator    func() string
}

type orderService struct {
	registry       repositories.Registry
	coupons        CouponRedeemer
	gateway        PaymentGateway
	publisher      OrderEventPublisher
	storage        AssetURLSigner
	bucket         string
	deliveryWindow time.Duration
	numberPrefix   string
	newID          func() string
	now            func() time.Time
	logger         func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Registry == nil {
		return nil, errOrderRegistryRequired
	}
	if deps.Clock == nil {
		return nil, errOrderClockRequired
	}

	window := deps.DeliveryWindow
	if window <= 0 {
		window = defaultDeliveryWindow
	}
	prefix := strings.ToUpper(strings.TrimSpace(deps.NumberPrefix))
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "ord_" + ulid.Make().String() }
	}

	service := &orderService{
		registry:       deps.Registry,
		coupons:        deps.Coupons,
		gateway:        deps.Gateway,
		publisher:      deps.Publisher,
		storage:        deps.Storage,
		bucket:         strings.TrimSpace(deps.Bucket),
		deliveryWindow: window,
		numberPrefix:   prefix,
		newID:          idGen,
		now:            func() time.Time { return deps.Clock().UTC() },
		logger:         logger,
	}
	return service, nil
}

// Create places an order from the user's cart snapshot. CASH orders are born
// PLACED with stock committed immediately and the cart cleared. CARD orders
// are born PENDING and touch neither stock nor cart until the gateway
// confirms payment.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	if s == nil || s.registry == nil {
		return Order{}, ErrOrderUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	address := strings.TrimSpace(cmd.Address)
	phone := strings.TrimSpace(cmd.Phone)
	if uid == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if address == "" || phone == "" {
		return Order{}, fmt.Errorf("%w: address and phone are required", ErrOrderInvalidInput)
	}
	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(string(cmd.PaymentMethod))))
	if method != domain.PaymentMethodCash && method != domain.PaymentMethodCard {
		return Order{}, fmt.Errorf("%w: payment method must be CASH or CARD", ErrOrderInvalidInput)
	}

	cart, err := s.registry.Carts().FindByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderEmptyCart
		}
		return Order{}, s.translateRepoError(err)
	}
	if len(cart.Lines) == 0 {
		return Order{}, ErrOrderEmptyCart
	}

	lines, stockLines, err := s.buildOrderLines(ctx, cart)
	if err != nil {
		return Order{}, err
	}

	total := cart.ComputeSubTotal()
	var coupon *Coupon
	if code := strings.TrimSpace(cmd.CouponCode); code != "" {
		if s.coupons == nil {
			return Order{}, fmt.Errorf("%w: coupons are not configured", ErrOrderUnavailable)
		}
		validated, err := s.coupons.Validate(ctx, code, uid)
		if err != nil {
			return Order{}, fmt.Errorf("%w: %v", ErrOrderCoupon, err)
		}
		coupon = &validated
		total = validated.Apply(total)
	}

	now := s.now()
	number, err := s.nextOrderNumber(ctx, now)
	if err != nil {
		return Order{}, err
	}

	order := Order{
		ID:                    s.newID(),
		OrderNumber:           number,
		UserID:                uid,
		CartID:                cart.ID,
		Lines:                 lines,
		TotalPrice:            total,
		Address:               address,
		Phone:                 phone,
		PaymentMethod:         method,
		EstimatedDeliveryDate: now.Add(s.deliveryWindow),
		StatusDetails:         StatusDetails{Status: domain.OrderStatusPending},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if coupon != nil {
		order.CouponID = coupon.ID
	}
	if method == domain.PaymentMethodCash {
		order.StatusDetails.Status = domain.OrderStatusPlaced
		order.StockCommitted = true
	}

	err = s.registry.RunInTx(ctx, func(txCtx context.Context) error {
		// The coupon re-read leads: CommitStock buffers the first writes and
		// no read may follow them.
		if coupon != nil {
			if err := s.coupons.CheckUnused(txCtx, coupon.ID, uid); err != nil {
				return err
			}
		}
		if method == domain.PaymentMethodCash {
			if err := s.registry.Products().CommitStock(txCtx, stockLines, order.ID, stockReasonOrderPlaced); err != nil {
				return err
			}
		}
		if err := s.registry.Orders().Insert(txCtx, order); err != nil {
			return err
		}
		if coupon != nil {
			if err := s.coupons.MarkUsed(txCtx, coupon.ID, uid); err != nil {
				return err
			}
		}
		if method == domain.PaymentMethodCash {
			if err := s.registry.Carts().ClearCart(txCtx, cart.ID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, s.translateOrderError(err)
	}

	s.logger(ctx, "order.created", map[string]any{
		"orderID":       order.ID,
		"orderNumber":   order.OrderNumber,
		"userID":        uid,
		"paymentMethod": string(method),
		"status":        string(order.Status()),
	})
	s.publish(ctx, "order.created", order, "")

	return order, nil
}

// CreateCheckoutSession opens a gateway checkout for a pending CARD order.
func (s *orderService) CreateCheckoutSession(ctx context.Context, cmd CheckoutCommand) (CheckoutSession, error) {
	if s == nil || s.registry == nil {
		return CheckoutSession{}, ErrOrderUnavailable
	}
	if s.gateway == nil {
		return CheckoutSession{}, fmt.Errorf("%w: payment gateway is not configured", ErrOrderUnavailable)
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.registry.Orders().FindByID(ctx, orderID)
	if err != nil {
		return CheckoutSession{}, s.translateRepoError(err)
	}
	if !cmd.Actor.Admin && order.UserID != cmd.Actor.UserID {
		return CheckoutSession{}, ErrOrderForbidden
	}
	if order.PaymentMethod != domain.PaymentMethodCard {
		return CheckoutSession{}, fmt.Errorf("%w: order is not payable by card", ErrOrderInvalidState)
	}
	if order.Status() != domain.OrderStatusPending {
		return CheckoutSession{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status())
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, order)
	if err != nil {
		s.logger(ctx, "order.checkout_failed", map[string]any{
			"orderID": order.ID,
			"error":   err.Error(),
		})
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrOrderGateway, err)
	}

	s.logger(ctx, "order.checkout_session", map[string]any{
		"orderID":   order.ID,
		"sessionID": session.SessionID,
	})
	return session, nil
}

// ConfirmPaymentEvent applies a verified gateway confirmation. Idempotency is
// keyed on the order status: anything past PENDING acknowledges the event
// without effect. The event id is recorded in the same transaction as the
// transition, so a delivery whose side effects failed stays retryable.
func (s *orderService) ConfirmPaymentEvent(ctx context.Context, cmd PaymentEventCommand) error {
	if s == nil || s.registry == nil {
		return ErrOrderUnavailable
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	now := s.now()
	eventID := strings.TrimSpace(cmd.EventID)

	order, err := s.registry.Orders().FindByID(ctx, orderID)
	if err != nil {
		return s.translateRepoError(err)
	}
	if order.Status() != domain.OrderStatusPending {
		s.logger(ctx, "order.payment_event_ignored", map[string]any{
			"orderID": order.ID,
			"status":  string(order.Status()),
		})
		return nil
	}

	// Cart lookup happens before the transaction: the transaction body must
	// not read once stock writes are buffered.
	cart, cartErr := s.registry.Carts().FindByUser(ctx, order.UserID)
	if cartErr != nil && !isRepoNotFound(cartErr) {
		return s.translateRepoError(cartErr)
	}

	stockLines := stockLinesFromOrder(order)
	previous := order.Status()

	order.StatusDetails.Status = domain.OrderStatusPlaced
	order.PaymentDetails = &PaymentDetails{
		PaymentIntentID: strings.TrimSpace(cmd.PaymentIntentID),
		PaidAt:          now,
		PaidBy:          order.UserID,
	}
	order.StockCommitted = true
	order.UpdatedAt = now

	err = s.registry.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.registry.Products().CommitStock(txCtx, stockLines, order.ID, stockReasonPaymentOK); err != nil {
			return err
		}
		if err := s.registry.Orders().Update(txCtx, order); err != nil {
			return err
		}
		if eventID != "" {
			// Write-only create: two concurrent deliveries of the same event
			// id cannot both commit.
			if err := s.registry.WebhookEvents().MarkProcessed(txCtx, eventID, now); err != nil {
				return err
			}
		}
		if cartErr == nil {
			return s.registry.Carts().ClearCart(txCtx, cart.ID, now)
		}
		return nil
	})
	if err != nil {
		if eventID != "" && isRepoConflict(err) {
			s.logger(ctx, "order.payment_event_replayed", map[string]any{
				"eventID": eventID,
				"orderID": order.ID,
			})
			return nil
		}
		return s.translateOrderError(err)
	}

	s.logger(ctx, "order.payment_confirmed", map[string]any{
		"orderID":         order.ID,
		"paymentIntentID": order.PaymentDetails.PaymentIntentID,
	})
	s.publish(ctx, "order.placed", order, string(previous))
	return nil
}

// Cancel ends the order, reversing the stock commit when one happened.
// Unpaid orders land in CANCELLED; paid CARD orders land in REFUNDED with a
// refund attempt and the refund audit fields.
func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	if s == nil || s.registry == nil {
		return Order{}, ErrOrderUnavailable
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.registry.Orders().FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !cmd.Actor.Admin && order.UserID != cmd.Actor.UserID {
		return Order{}, ErrOrderForbidden
	}
	switch order.Status() {
	case domain.OrderStatusCancelled, domain.OrderStatusDelivered, domain.OrderStatusRefunded:
		return Order{}, fmt.Errorf("%w: order is %s", ErrOrderInvalidState, order.Status())
	}

	now := s.now()
	previous := order.Status()
	reason := strings.TrimSpace(cmd.Reason)
	if reason == "" {
		reason = defaultCancelReason
	}

	paid := order.PaymentMethod == domain.PaymentMethodCard && order.PaymentDetails != nil
	wasCommitted := order.StockCommitted

	order.StatusDetails.Status = domain.OrderStatusCancelled
	order.StatusDetails.CancelledAt = &now
	order.StatusDetails.CancelledBy = cmd.Actor.UserID
	order.StatusDetails.CancelReason = reason
	if paid {
		order.StatusDetails.Status = domain.OrderStatusRefunded
		order.StatusDetails.RefundedAt = &now
		order.StatusDetails.RefundedBy = cmd.Actor.UserID
	}
	order.StockCommitted = false
	order.UpdatedAt = now

	err = s.registry.RunInTx(ctx, func(txCtx context.Context) error {
		if wasCommitted {
			if err := s.registry.Products().ReverseStock(txCtx, stockLinesFromOrder(order), order.ID, stockReasonOrderCancelled); err != nil {
				return err
			}
		}
		return s.registry.Orders().Update(txCtx, order)
	})
	if err != nil {
		return Order{}, s.translateOrderError(err)
	}

	if paid && s.gateway != nil {
		if err := s.gateway.Refund(ctx, order.PaymentDetails.PaymentIntentID); err != nil {
			s.logger(ctx, "order.refund_failed", map[string]any{
				"orderID":         order.ID,
				"paymentIntentID": order.PaymentDetails.PaymentIntentID,
				"error":           err.Error(),
			})
		}
	}

	s.logger(ctx, "order.cancelled", map[string]any{
		"orderID":  order.ID,
		"previous": string(previous),
		"reason":   reason,
	})
	s.publish(ctx, "order.cancelled", order, string(previous))
	return order, nil
}

// orderTransitions is the forward path of the state machine. Cancellation is
// handled separately by Cancel.
var orderTransitions = map[OrderStatus]OrderStatus{
	domain.OrderStatusPending:    domain.OrderStatusPlaced,
	domain.OrderStatusPlaced:     domain.OrderStatusProcessing,
	domain.OrderStatusProcessing: domain.OrderStatusShipped,
	domain.OrderStatusShipped:    domain.OrderStatusDelivered,
}

// UpdateStatus advances the order one step along the fulfilment path.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	if s == nil || s.registry == nil {
		return Order{}, ErrOrderUnavailable
	}

	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target := OrderStatus(strings.ToUpper(strings.TrimSpace(string(cmd.Status))))
	if target == "" {
		return Order{}, fmt.Errorf("%w: status is required", ErrOrderInvalidInput)
	}

	order, err := s.registry.Orders().FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}

	current := order.Status()
	if target == current {
		return Order{}, fmt.Errorf("%w: order is already %s", ErrOrderInvalidState, current)
	}
	if next, ok := orderTransitions[current]; !ok || next != target {
		return Order{}, fmt.Errorf("%w: cannot move %s to %s", ErrOrderInvalidState, current, target)
	}

	order.StatusDetails.Status = target
	order.UpdatedAt = s.now()

	if err := s.registry.Orders().Update(ctx, order); err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order.status_updated", map[string]any{
		"orderID":  order.ID,
		"previous": string(current),
		"status":   string(target),
		"actorID":  cmd.ActorID,
	})
	s.publish(ctx, "order.status_updated", order, string(current))
	return order, nil
}

func (s *orderService) GetByID(ctx context.Context, orderID string, actor Actor) (Order, error) {
	if s == nil || s.registry == nil {
		return Order{}, ErrOrderUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.registry.Orders().FindByID(ctx, id)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return Order{}, ErrOrderForbidden
	}
	return order, nil
}

// InvoiceDownloadURL issues a short-lived signed link to the stored invoice
// document. PENDING orders have no invoice yet.
func (s *orderService) InvoiceDownloadURL(ctx context.Context, orderID string, actor Actor) (SignedDownload, error) {
	if s == nil || s.registry == nil {
		return SignedDownload{}, ErrOrderUnavailable
	}
	if s.storage == nil || s.bucket == "" {
		return SignedDownload{}, fmt.Errorf("%w: storage is not configured", ErrOrderUnavailable)
	}

	order, err := s.GetByID(ctx, orderID, actor)
	if err != nil {
		return SignedDownload{}, err
	}
	if order.Status() == domain.OrderStatusPending {
		return SignedDownload{}, fmt.Errorf("%w: invoice is not available before payment", ErrOrderInvalidState)
	}

	object, err := pstorage.BuildObjectPath(pstorage.PurposeOrderInvoice, pstorage.PathParams{
		OrderID:       order.ID,
		InvoiceNumber: order.OrderNumber,
	})
	if err != nil {
		return SignedDownload{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	identity := &auth.Identity{UID: actor.UserID}
	if actor.Admin {
		identity.Roles = []string{auth.RoleAdmin}
	}
	result, err := s.storage.SignedURL(ctx, s.bucket, object, pstorage.SignedURLOptions{
		Download: &pstorage.DownloadOptions{
			Method:      "GET",
			ExpiresIn:   invoiceDownloadExpiresIn,
			Disposition: fmt.Sprintf("attachment; filename=%q", order.OrderNumber+".pdf"),
			OwnerID:     order.UserID,
			Identity:    identity,
		},
	})
	if err != nil {
		return SignedDownload{}, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
	}

	return SignedDownload{URL: result.URL, ExpiresAt: result.ExpiresAt}, nil
}

func (s *orderService) List(ctx context.Context, query OrderListQuery, actor Actor) (domain.CursorPage[domain.Order], error) {
	if s == nil || s.registry == nil {
		return domain.CursorPage[domain.Order]{}, ErrOrderUnavailable
	}

	filter := repositories.OrderListFilter{
		UserID:    strings.TrimSpace(query.UserID),
		Search:    strings.TrimSpace(query.Search),
		From:      query.From,
		To:        query.To,
		PageSize:  query.PageSize,
		PageToken: query.PageToken,
	}
	if query.Status != nil {
		filter.Status = *query.Status
	}
	if query.PaymentMethod != nil {
		filter.PaymentMethod = *query.PaymentMethod
	}
	// Non-admin callers only ever see their own orders.
	if !actor.Admin {
		filter.UserID = actor.UserID
	}

	page, err := s.registry.Orders().List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *orderService) SoftDelete(ctx context.Context, orderID string, actor Actor) error {
	if s == nil || s.registry == nil {
		return ErrOrderUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.registry.Orders().FindByID(ctx, id)
	if err != nil {
		return s.translateRepoError(err)
	}
	if !actor.Admin && order.UserID != actor.UserID {
		return ErrOrderForbidden
	}
	if err := s.registry.Orders().SoftDelete(ctx, id, actor.UserID, s.now()); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *orderService) Restore(ctx context.Context, orderID string) error {
	if s == nil || s.registry == nil {
		return ErrOrderUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := s.registry.Orders().Restore(ctx, id); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *orderService) buildOrderLines(ctx context.Context, cart Cart) ([]OrderLine, []StockLine, error) {
	lines := make([]OrderLine, 0, len(cart.Lines))
	stockLines := make([]StockLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		product, err := s.registry.Products().FindByID(ctx, line.ProductID)
		if err != nil {
			return nil, nil, s.translateRepoError(err)
		}
		if product.Stock() < line.Quantity {
			return nil, nil, fmt.Errorf("%w: product %s has %d units available", ErrOrderInsufficientStock, product.ID, product.Stock())
		}
		lines = append(lines, OrderLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.FinalPrice,
		})
		stockLines = append(stockLines, StockLine{ProductID: product.ID, Quantity: line.Quantity})
	}
	return lines, stockLines, nil
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	scope := fmt.Sprintf("orders-%d", now.Year())
	seq, err := s.registry.Counters().Next(ctx, scope)
	if err != nil {
		return "", s.translateRepoError(err)
	}
	return fmt.Sprintf("%s-%d-%06d", s.numberPrefix, now.Year(), seq), nil
}

func (s *orderService) publish(ctx context.Context, eventType string, order Order, previous string) {
	if s.publisher == nil {
		return
	}
	message := OrderEventMessage{
		EventID:     "evt_" + ulid.Make().String(),
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      string(order.Status()),
		Previous:    previous,
		OccurredAt:  s.now(),
	}
	if _, err := s.publisher.PublishOrderEvent(ctx, message); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"orderID": order.ID,
			"type":    eventType,
			"error":   err.Error(),
		})
	}
}

func stockLinesFromOrder(order Order) []StockLine {
	lines := make([]StockLine, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, StockLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return lines
}

func (s *orderService) translateOrderError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOrderCoupon) || errors.Is(err, ErrCouponConflict) ||
		errors.Is(err, ErrCouponExpired) || errors.Is(err, ErrCouponNotFound) {
		return fmt.Errorf("%w: %v", ErrOrderCoupon, err)
	}
	if stockErr, ok := repositories.AsStockError(err); ok {
		switch stockErr.Code {
		case repositories.StockErrorInsufficient:
			return fmt.Errorf("%w: %s", ErrOrderInsufficientStock, stockErr.Message)
		case repositories.StockErrorProductNotFound:
			return ErrOrderNotFound
		case repositories.StockErrorInvalidLine:
			return fmt.Errorf("%w: %s", ErrOrderInvalidInput, stockErr.Message)
		}
		return ErrOrderUnavailable
	}
	return s.translateRepoError(err)
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return ErrOrderConflict
		case repoErr.IsUnavailable():
			return ErrOrderUnavailable
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}

func isRepoConflict(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}
