package repositories

import (
	"context"
	"time"

	domain "github.com/soukly/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Coupons() CouponRepository
	Orders() OrderRepository
	StockEvents() StockEventRepository
	Counters() CounterRepository
	WebhookEvents() WebhookEventRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductListFilter narrows product listings.
type ProductListFilter struct {
	Search    string
	InStock   bool
	PageSize  int
	PageToken string
}

// ProductRepository persists catalog entries and their stock ledger.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) (domain.CursorPage[domain.Product], error)
	SoftDelete(ctx context.Context, productID, deletedBy string, deletedAt time.Time) error
	Restore(ctx context.Context, productID string) error

	// CommitStock applies quantity -= qty, sold += qty for every line in a
	// single transaction. ReverseStock is the exact inverse. Both fail the
	// whole batch when any line would leave negative stock.
	CommitStock(ctx context.Context, lines []domain.StockLine, orderID, reason string) error
	ReverseStock(ctx context.Context, lines []domain.StockLine, orderID, reason string) error
}

// CartRepository persists per-user cart snapshots.
type CartRepository interface {
	UpsertCart(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error)
	FindByUser(ctx context.Context, userID string) (domain.Cart, error)
	ClearCart(ctx context.Context, cartID string, clearedAt time.Time) error
}

// CouponListFilter narrows coupon listings.
type CouponListFilter struct {
	Search    string
	From      *time.Time
	To        *time.Time
	PageSize  int
	PageToken string
}

// CouponRepository persists coupons and enforces single redemption per user.
type CouponRepository interface {
	Insert(ctx context.Context, coupon domain.Coupon) error
	Update(ctx context.Context, coupon domain.Coupon) error
	FindByID(ctx context.Context, couponID string) (domain.Coupon, error)
	FindByCode(ctx context.Context, code string) (domain.Coupon, error)
	List(ctx context.Context, filter CouponListFilter) (domain.CursorPage[domain.Coupon], error)
	SoftDelete(ctx context.Context, couponID, deletedBy string, deletedAt time.Time) error
	Restore(ctx context.Context, couponID string) error

	// CheckUnused reads the coupon and fails with a conflict when userID is
	// already in its redemption set. Inside a transaction this is a read, so
	// callers must invoke it before buffering any write.
	CheckUnused(ctx context.Context, couponID, userID string) error

	// MarkUsed appends userID to the coupon's usedBy set. Standalone it runs
	// its own transaction and enforces the once-per-user rule; inside a
	// joined transaction it only buffers the write and relies on CheckUnused
	// having run in the read phase.
	MarkUsed(ctx context.Context, couponID, userID string) error
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID        string
	Status        domain.OrderStatus
	PaymentMethod domain.PaymentMethod
	From          *time.Time
	To            *time.Time
	Search        string
	PageSize      int
	PageToken     string
}

// OrderRepository persists orders.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	SoftDelete(ctx context.Context, orderID, deletedBy string, deletedAt time.Time) error
	Restore(ctx context.Context, orderID string) error
}

// StockEventRepository appends the inventory audit trail.
type StockEventRepository interface {
	Append(ctx context.Context, event domain.StockEvent) error
	ListByOrder(ctx context.Context, orderID string) ([]domain.StockEvent, error)
}

// CounterRepository issues monotonic sequence numbers, one document per scope.
type CounterRepository interface {
	Next(ctx context.Context, scope string) (int64, error)
}

// WebhookEventRepository deduplicates processed gateway events.
type WebhookEventRepository interface {
	// MarkProcessed records the event id and returns a conflict when the id
	// was already recorded, letting callers short-circuit replays.
	MarkProcessed(ctx context.Context, eventID string, processedAt time.Time) error
}
