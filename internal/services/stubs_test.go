package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/repositories"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string { return "repository error" }

func (e *repositoryErrorStub) IsNotFound() bool { return e.notFound }

func (e *repositoryErrorStub) IsConflict() bool { return e.conflict }

func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

type stubProductRepository struct {
	insertFunc     func(ctx context.Context, product domain.Product) error
	updateFunc     func(ctx context.Context, product domain.Product) error
	findByIDFunc   func(ctx context.Context, productID string) (domain.Product, error)
	findBySlugFunc func(ctx context.Context, slug string) (domain.Product, error)
	listFunc       func(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error)
	softDeleteFunc func(ctx context.Context, productID, deletedBy string, deletedAt time.Time) error
	restoreFunc    func(ctx context.Context, productID string) error
	commitFunc     func(ctx context.Context, lines []domain.StockLine, orderID, reason string) error
	reverseFunc    func(ctx context.Context, lines []domain.StockLine, orderID, reason string) error
}

func (s *stubProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, product)
	}
	return nil
}

func (s *stubProductRepository) Update(ctx context.Context, product domain.Product) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, product)
	}
	return nil
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, productID)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if s.findBySlugFunc != nil {
		return s.findBySlugFunc(ctx, slug)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Product]{}, nil
}

func (s *stubProductRepository) SoftDelete(ctx context.Context, productID, deletedBy string, deletedAt time.Time) error {
	if s.softDeleteFunc != nil {
		return s.softDeleteFunc(ctx, productID, deletedBy, deletedAt)
	}
	return nil
}

func (s *stubProductRepository) Restore(ctx context.Context, productID string) error {
	if s.restoreFunc != nil {
		return s.restoreFunc(ctx, productID)
	}
	return nil
}

func (s *stubProductRepository) CommitStock(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
	if s.commitFunc != nil {
		return s.commitFunc(ctx, lines, orderID, reason)
	}
	return nil
}

func (s *stubProductRepository) ReverseStock(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
	if s.reverseFunc != nil {
		return s.reverseFunc(ctx, lines, orderID, reason)
	}
	return nil
}

type stubCartRepository struct {
	upsertFunc     func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error)
	findByUserFunc func(ctx context.Context, userID string) (domain.Cart, error)
	clearFunc      func(ctx context.Context, cartID string, clearedAt time.Time) error
}

func (s *stubCartRepository) UpsertCart(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
	if s.upsertFunc != nil {
		return s.upsertFunc(ctx, cart, expected)
	}
	return cart, nil
}

func (s *stubCartRepository) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if s.findByUserFunc != nil {
		return s.findByUserFunc(ctx, userID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartRepository) ClearCart(ctx context.Context, cartID string, clearedAt time.Time) error {
	if s.clearFunc != nil {
		return s.clearFunc(ctx, cartID, clearedAt)
	}
	return nil
}

type stubCouponRepository struct {
	insertFunc      func(ctx context.Context, coupon domain.Coupon) error
	updateFunc      func(ctx context.Context, coupon domain.Coupon) error
	findByIDFunc    func(ctx context.Context, couponID string) (domain.Coupon, error)
	findByCodeFunc  func(ctx context.Context, code string) (domain.Coupon, error)
	listFunc        func(ctx context.Context, filter repositories.CouponListFilter) (domain.CursorPage[domain.Coupon], error)
	softDeleteFunc  func(ctx context.Context, couponID, deletedBy string, deletedAt time.Time) error
	restoreFunc     func(ctx context.Context, couponID string) error
	checkUnusedFunc func(ctx context.Context, couponID, userID string) error
	markUsedFunc    func(ctx context.Context, couponID, userID string) error
}

func (s *stubCouponRepository) Insert(ctx context.Context, coupon domain.Coupon) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, coupon)
	}
	return nil
}

func (s *stubCouponRepository) Update(ctx context.Context, coupon domain.Coupon) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, coupon)
	}
	return nil
}

func (s *stubCouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, couponID)
	}
	return domain.Coupon{}, errors.New("not implemented")
}

func (s *stubCouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if s.findByCodeFunc != nil {
		return s.findByCodeFunc(ctx, code)
	}
	return domain.Coupon{}, errors.New("not implemented")
}

func (s *stubCouponRepository) List(ctx context.Context, filter repositories.CouponListFilter) (domain.CursorPage[domain.Coupon], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Coupon]{}, nil
}

func (s *stubCouponRepository) SoftDelete(ctx context.Context, couponID, deletedBy string, deletedAt time.Time) error {
	if s.softDeleteFunc != nil {
		return s.softDeleteFunc(ctx, couponID, deletedBy, deletedAt)
	}
	return nil
}

func (s *stubCouponRepository) Restore(ctx context.Context, couponID string) error {
	if s.restoreFunc != nil {
		return s.restoreFunc(ctx, couponID)
	}
	return nil
}

func (s *stubCouponRepository) CheckUnused(ctx context.Context, couponID, userID string) error {
	if s.checkUnusedFunc != nil {
		return s.checkUnusedFunc(ctx, couponID, userID)
	}
	return nil
}

func (s *stubCouponRepository) MarkUsed(ctx context.Context, couponID, userID string) error {
	if s.markUsedFunc != nil {
		return s.markUsedFunc(ctx, couponID, userID)
	}
	return nil
}

type stubOrderRepository struct {
	insertFunc     func(ctx context.Context, order domain.Order) error
	updateFunc     func(ctx context.Context, order domain.Order) error
	findByIDFunc   func(ctx context.Context, orderID string) (domain.Order, error)
	listFunc       func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	softDeleteFunc func(ctx context.Context, orderID, deletedBy string, deletedAt time.Time) error
	restoreFunc    func(ctx context.Context, orderID string) error
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) Update(ctx context.Context, order domain.Order) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findByIDFunc != nil {
		return s.findByIDFunc(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepository) SoftDelete(ctx context.Context, orderID, deletedBy string, deletedAt time.Time) error {
	if s.softDeleteFunc != nil {
		return s.softDeleteFunc(ctx, orderID, deletedBy, deletedAt)
	}
	return nil
}

func (s *stubOrderRepository) Restore(ctx context.Context, orderID string) error {
	if s.restoreFunc != nil {
		return s.restoreFunc(ctx, orderID)
	}
	return nil
}

type stubStockEventRepository struct {
	appendFunc func(ctx context.Context, event domain.StockEvent) error
	listFunc   func(ctx context.Context, orderID string) ([]domain.StockEvent, error)
}

func (s *stubStockEventRepository) Append(ctx context.Context, event domain.StockEvent) error {
	if s.appendFunc != nil {
		return s.appendFunc(ctx, event)
	}
	return nil
}

func (s *stubStockEventRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.StockEvent, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, orderID)
	}
	return nil, nil
}

type stubCounterRepository struct {
	nextFunc func(ctx context.Context, scope string) (int64, error)
}

func (s *stubCounterRepository) Next(ctx context.Context, scope string) (int64, error) {
	if s.nextFunc != nil {
		return s.nextFunc(ctx, scope)
	}
	return 1, nil
}

type stubWebhookEventRepository struct {
	markFunc func(ctx context.Context, eventID string, processedAt time.Time) error
}

func (s *stubWebhookEventRepository) MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error {
	if s.markFunc != nil {
		return s.markFunc(ctx, eventID, processedAt)
	}
	return nil
}

// stubRegistry bundles the stub repositories behind repositories.Registry.
// RunInTx simply invokes the callback so service tests exercise the same
// code path as a joined transaction.
type stubRegistry struct {
	products      *stubProductRepository
	carts         *stubCartRepository
	coupons       *stubCouponRepository
	orders        *stubOrderRepository
	stockEvents   *stubStockEventRepository
	counters      *stubCounterRepository
	webhookEvents *stubWebhookEventRepository
	runInTxFunc   func(ctx context.Context, fn func(ctx context.Context) error) error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		products:      &stubProductRepository{},
		carts:         &stubCartRepository{},
		coupons:       &stubCouponRepository{},
		orders:        &stubOrderRepository{},
		stockEvents:   &stubStockEventRepository{},
		counters:      &stubCounterRepository{},
		webhookEvents: &stubWebhookEventRepository{},
	}
}

func (s *stubRegistry) Close(ctx context.Context) error { return nil }

func (s *stubRegistry) Products() repositories.ProductRepository { return s.products }

func (s *stubRegistry) Carts() repositories.CartRepository { return s.carts }

func (s *stubRegistry) Coupons() repositories.CouponRepository { return s.coupons }

func (s *stubRegistry) Orders() repositories.OrderRepository { return s.orders }

func (s *stubRegistry) StockEvents() repositories.StockEventRepository { return s.stockEvents }

func (s *stubRegistry) Counters() repositories.CounterRepository { return s.counters }

func (s *stubRegistry) WebhookEvents() repositories.WebhookEventRepository { return s.webhookEvents }

func (s *stubRegistry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.runInTxFunc != nil {
		return s.runInTxFunc(ctx, fn)
	}
	return fn(ctx)
}

type stubOrderEventPublisher struct {
	publishFunc func(ctx context.Context, message OrderEventMessage) (string, error)
	published   []OrderEventMessage
}

func (s *stubOrderEventPublisher) PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error) {
	s.published = append(s.published, message)
	if s.publishFunc != nil {
		return s.publishFunc(ctx, message)
	}
	return "msg-1", nil
}
