package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/soukly/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product        = domain.Product
	Cart           = domain.Cart
	CartLine       = domain.CartLine
	Coupon         = domain.Coupon
	Order          = domain.Order
	OrderLine      = domain.OrderLine
	OrderStatus    = domain.OrderStatus
	PaymentMethod  = domain.PaymentMethod
	PaymentDetails = domain.PaymentDetails
	StatusDetails  = domain.StatusDetails
	StockLine      = domain.StockLine
	StockEvent     = domain.StockEvent
)

// OrderEventMessage is the payload handed to the order event publisher.
type OrderEventMessage struct {
	EventID     string    `json:"eventId"`
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	OrderNumber string    `json:"orderNumber,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Status      string    `json:"status,omitempty"`
	Previous    string    `json:"previousStatus,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// OrderEventPublisher pushes order lifecycle events to the message bus.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, message OrderEventMessage) (string, error)
}

// CartService manages per-user cart snapshots.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, userID, productID string) (Cart, error)
	ClearCart(ctx context.Context, userID string) (Cart, error)
}

// CouponService owns coupon lifecycle and redemption rules.
type CouponService interface {
	Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error)
	Update(ctx context.Context, cmd UpdateCouponCommand) (Coupon, error)
	GetByID(ctx context.Context, couponID string) (Coupon, error)
	List(ctx context.Context, query CouponListQuery) (domain.CursorPage[domain.Coupon], error)
	SoftDelete(ctx context.Context, couponID, actorID string) error
	Restore(ctx context.Context, couponID string) error

	Validate(ctx context.Context, code, userID string) (Coupon, error)
	CheckUnused(ctx context.Context, couponID, userID string) error
	MarkUsed(ctx context.Context, couponID, userID string) error
}

// InventoryService fronts the stock ledger.
type InventoryService interface {
	Commit(ctx context.Context, lines []StockLine, orderID, reason string) error
	Reverse(ctx context.Context, lines []StockLine, orderID, reason string) error
	HistoryByOrder(ctx context.Context, orderID string) ([]StockEvent, error)
}

// ProductService owns the catalog.
type ProductService interface {
	Create(ctx context.Context, cmd CreateProductCommand) (Product, error)
	Update(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	GetByID(ctx context.Context, productID string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(ctx context.Context, query ProductListQuery) (domain.CursorPage[domain.Product], error)
	SoftDelete(ctx context.Context, productID, actorID string) error
	Restore(ctx context.Context, productID string) error
	ImageUploadURL(ctx context.Context, cmd ProductImageUploadCommand) (SignedUpload, error)
}

// OrderService drives the order state machine end to end.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	CreateCheckoutSession(ctx context.Context, cmd CheckoutCommand) (CheckoutSession, error)
	ConfirmPaymentEvent(ctx context.Context, cmd PaymentEventCommand) error
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	InvoiceDownloadURL(ctx context.Context, orderID string, actor Actor) (SignedDownload, error)
	GetByID(ctx context.Context, orderID string, actor Actor) (Order, error)
	List(ctx context.Context, query OrderListQuery, actor Actor) (domain.CursorPage[domain.Order], error)
	SoftDelete(ctx context.Context, orderID string, actor Actor) error
	Restore(ctx context.Context, orderID string) error
}

// Actor identifies the caller for authorisation checks inside services.
type Actor struct {
	UserID string
	Admin  bool
}

type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int64
}

type UpdateCartQuantityCommand struct {
	UserID    string
	ProductID string
	Quantity  int64
}

type CreateCouponCommand struct {
	Code     string
	Amount   int
	FromDate time.Time
	ToDate   time.Time
	ActorID  string
}

type UpdateCouponCommand struct {
	CouponID string
	Code     *string
	Amount   *int
	FromDate *time.Time
	ToDate   *time.Time
	ActorID  string
}

type CouponListQuery struct {
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
	PageSize       int
	PageToken      string
}

type CreateProductCommand struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Quantity    int64
	ImagePath   string
	ActorID     string
}

type UpdateProductCommand struct {
	ProductID   string
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int64
	ImagePath   *string
	ActorID     string
}

type ProductListQuery struct {
	Search         string
	InStockOnly    bool
	IncludeDeleted bool
	PageSize       int
	PageToken      string
}

type ProductImageUploadCommand struct {
	ProductID string
	FileName  string
	Gallery   bool
}

type SignedUpload struct {
	UploadURL  string
	ObjectPath string
	ExpiresAt  time.Time
}

type SignedDownload struct {
	URL       string
	ExpiresAt time.Time
}

type CreateOrderCommand struct {
	UserID        string
	PaymentMethod PaymentMethod
	Address       string
	Phone         string
	CouponCode    string
}

type CheckoutCommand struct {
	OrderID string
	Actor   Actor
}

type CheckoutSession struct {
	SessionID   string
	CheckoutURL string
}

type PaymentEventCommand struct {
	EventID         string
	EventType       string
	OrderID         string
	PaymentIntentID string
	SessionID       string
}

type CancelOrderCommand struct {
	OrderID string
	Actor   Actor
	Reason  string
}

type UpdateOrderStatusCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
}

type OrderListQuery struct {
	UserID         string
	Status         *OrderStatus
	PaymentMethod  *PaymentMethod
	Search         string
	From           *time.Time
	To             *time.Time
	IncludeDeleted bool
	PageSize       int
	PageToken      string
}
