package handlers

import (
	"context"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/payments"
	"github.com/soukly/api/internal/services"
)

type stubCartService struct {
	getCartFunc        func(ctx context.Context, userID string) (services.Cart, error)
	addItemFunc        func(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error)
	updateQuantityFunc func(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.Cart, error)
	removeItemFunc     func(ctx context.Context, userID, productID string) (services.Cart, error)
	clearCartFunc      func(ctx context.Context, userID string) (services.Cart, error)
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.Cart, error) {
	if s.getCartFunc != nil {
		return s.getCartFunc(ctx, userID)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.Cart, error) {
	if s.addItemFunc != nil {
		return s.addItemFunc(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.Cart, error) {
	if s.updateQuantityFunc != nil {
		return s.updateQuantityFunc(ctx, cmd)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID string) (services.Cart, error) {
	if s.removeItemFunc != nil {
		return s.removeItemFunc(ctx, userID, productID)
	}
	return services.Cart{}, nil
}

func (s *stubCartService) ClearCart(ctx context.Context, userID string) (services.Cart, error) {
	if s.clearCartFunc != nil {
		return s.clearCartFunc(ctx, userID)
	}
	return services.Cart{}, nil
}

type stubProductService struct {
	createFunc     func(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error)
	updateFunc     func(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error)
	getByIDFunc    func(ctx context.Context, productID string) (services.Product, error)
	getBySlugFunc  func(ctx context.Context, slug string) (services.Product, error)
	listFunc       func(ctx context.Context, query services.ProductListQuery) (domain.CursorPage[domain.Product], error)
	softDeleteFunc func(ctx context.Context, productID, actorID string) error
	restoreFunc    func(ctx context.Context, productID string) error
	uploadURLFunc  func(ctx context.Context, cmd services.ProductImageUploadCommand) (services.SignedUpload, error)
}

func (s *stubProductService) Create(ctx context.Context, cmd services.CreateProductCommand) (services.Product, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.Product{}, nil
}

func (s *stubProductService) Update(ctx context.Context, cmd services.UpdateProductCommand) (services.Product, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return services.Product{}, nil
}

func (s *stubProductService) GetByID(ctx context.Context, productID string) (services.Product, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, productID)
	}
	return services.Product{}, nil
}

func (s *stubProductService) GetBySlug(ctx context.Context, slug string) (services.Product, error) {
	if s.getBySlugFunc != nil {
		return s.getBySlugFunc(ctx, slug)
	}
	return services.Product{}, nil
}

func (s *stubProductService) List(ctx context.Context, query services.ProductListQuery) (domain.CursorPage[domain.Product], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, query)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

func (s *stubProductService) SoftDelete(ctx context.Context, productID, actorID string) error {
	if s.softDeleteFunc != nil {
		return s.softDeleteFunc(ctx, productID, actorID)
	}
	return nil
}

func (s *stubProductService) Restore(ctx context.Context, productID string) error {
	if s.restoreFunc != nil {
		return s.restoreFunc(ctx, productID)
	}
	return nil
}

func (s *stubProductService) ImageUploadURL(ctx context.Context, cmd services.ProductImageUploadCommand) (services.SignedUpload, error) {
	if s.uploadURLFunc != nil {
		return s.uploadURLFunc(ctx, cmd)
	}
	return services.SignedUpload{}, nil
}

type stubCouponService struct {
	createFunc     func(ctx context.Context, cmd services.CreateCouponCommand) (services.Coupon, error)
	updateFunc     func(ctx context.Context, cmd services.UpdateCouponCommand) (services.Coupon, error)
	getByIDFunc    func(ctx context.Context, couponID string) (services.Coupon, error)
	listFunc       func(ctx context.Context, query services.CouponListQuery) (domain.CursorPage[domain.Coupon], error)
	softDeleteFunc func(ctx context.Context, couponID, actorID string) error
	restoreFunc    func(ctx context.Context, couponID string) error
	validateFunc   func(ctx context.Context, code, userID string) (services.Coupon, error)
	markUsedFunc   func(ctx context.Context, couponID, userID string) error
}

func (s *stubCouponService) Create(ctx context.Context, cmd services.CreateCouponCommand) (services.Coupon, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.Coupon{}, nil
}

func (s *stubCouponService) Update(ctx context.Context, cmd services.UpdateCouponCommand) (services.Coupon, error) {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, cmd)
	}
	return services.Coupon{}, nil
}

func (s *stubCouponService) GetByID(ctx context.Context, couponID string) (services.Coupon, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, couponID)
	}
	return services.Coupon{}, nil
}

func (s *stubCouponService) List(ctx context.Context, query services.CouponListQuery) (domain.CursorPage[domain.Coupon], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, query)
	}
	return domain.CursorPage[domain.Coupon]{}, nil
}

func (s *stubCouponService) SoftDelete(ctx context.Context, couponID, actorID string) error {
	if s.softDeleteFunc != nil {
		return s.softDeleteFunc(ctx, couponID, actorID)
	}
	return nil
}

func (s *stubCouponService) Restore(ctx context.Context, couponID string) error {
	if s.restoreFunc != nil {
		return s.restoreFunc(ctx, couponID)
	}
	return nil
}

func (s *stubCouponService) Validate(ctx context.Context, code, userID string) (services.Coupon, error) {
	if s.validateFunc != nil {
		return s.validateFunc(ctx, code, userID)
	}
	return services.Coupon{}, nil
}

func (s *stubCouponService) CheckUnused(ctx context.Context, couponID, userID string) error {
	return nil
}

func (s *stubCouponService) MarkUsed(ctx context.Context, couponID, userID string) error {
	if s.markUsedFunc != nil {
		return s.markUsedFunc(ctx, couponID, userID)
	}
	return nil
}

type stubOrderService struct {
	createFunc         func(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error)
	checkoutFunc       func(ctx context.Context, cmd services.CheckoutCommand) (services.CheckoutSession, error)
	confirmFunc        func(ctx context.Context, cmd services.PaymentEventCommand) error
	cancelFunc         func(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error)
	updateStatusFunc   func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error)
	invoiceFunc        func(ctx context.Context, orderID string, actor services.Actor) (services.SignedDownload, error)
	getByIDFunc        func(ctx context.Context, orderID string, actor services.Actor) (services.Order, error)
	listFunc           func(ctx context.Context, query services.OrderListQuery, actor services.Actor) (domain.CursorPage[domain.Order], error)
	softDeleteFunc     func(ctx context.Context, orderID string, actor services.Actor) error
	restoreFunc        func(ctx context.Context, orderID string) error
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) CreateCheckoutSession(ctx context.Context, cmd services.CheckoutCommand) (services.CheckoutSession, error) {
	if s.checkoutFunc != nil {
		return s.checkoutFunc(ctx, cmd)
	}
	return services.CheckoutSession{}, nil
}

func (s *stubOrderService) ConfirmPaymentEvent(ctx context.Context, cmd services.PaymentEventCommand) error {
	if s.confirmFunc != nil {
		return s.confirmFunc(ctx, cmd)
	}
	return nil
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFunc != nil {
		return s.cancelFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
	if s.updateStatusFunc != nil {
		return s.updateStatusFunc(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) InvoiceDownloadURL(ctx context.Context, orderID string, actor services.Actor) (services.SignedDownload, error) {
	if s.invoiceFunc != nil {
		return s.invoiceFunc(ctx, orderID, actor)
	}
	return services.SignedDownload{}, nil
}

func (s *stubOrderService) GetByID(ctx context.Context, orderID string, actor services.Actor) (services.Order, error) {
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, orderID, actor)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) List(ctx context.Context, query services.OrderListQuery, actor services.Actor) (domain.CursorPage[domain.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, query, actor)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderService) SoftDelete(ctx context.Context, orderID string, actor services.Actor) error {
	if s.softDeleteFunc != nil {
		return s.softDeleteFunc(ctx, orderID, actor)
	}
	return nil
}

func (s *stubOrderService) Restore(ctx context.Context, orderID string) error {
	if s.restoreFunc != nil {
		return s.restoreFunc(ctx, orderID)
	}
	return nil
}

type stubInventoryService struct {
	commitFunc  func(ctx context.Context, lines []services.StockLine, orderID, reason string) error
	reverseFunc func(ctx context.Context, lines []services.StockLine, orderID, reason string) error
	historyFunc func(ctx context.Context, orderID string) ([]services.StockEvent, error)
}

func (s *stubInventoryService) Commit(ctx context.Context, lines []services.StockLine, orderID, reason string) error {
	if s.commitFunc != nil {
		return s.commitFunc(ctx, lines, orderID, reason)
	}
	return nil
}

func (s *stubInventoryService) Reverse(ctx context.Context, lines []services.StockLine, orderID, reason string) error {
	if s.reverseFunc != nil {
		return s.reverseFunc(ctx, lines, orderID, reason)
	}
	return nil
}

func (s *stubInventoryService) HistoryByOrder(ctx context.Context, orderID string) ([]services.StockEvent, error) {
	if s.historyFunc != nil {
		return s.historyFunc(ctx, orderID)
	}
	return nil, nil
}

type stubWebhookVerifier struct {
	verifyFunc func(payload []byte, signature string) (payments.WebhookEvent, error)
}

func (s *stubWebhookVerifier) VerifyEvent(payload []byte, signature string) (payments.WebhookEvent, error) {
	if s.verifyFunc != nil {
		return s.verifyFunc(payload, signature)
	}
	return payments.WebhookEvent{}, nil
}
