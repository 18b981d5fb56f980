package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order is settled.
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "CASH"
	PaymentMethodCard PaymentMethod = "CARD"
)

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusPlaced     OrderStatus = "PLACED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

// Product is a catalog entry. Stock is derived, never stored: the quantity
// field is the replenished total and sold tracks committed units.
type Product struct {
	ID          string
	Name        string
	Slug        string
	Description string
	MainImage   string
	SubImages   []string
	Price       decimal.Decimal
	Discount    int
	Quantity    int64
	Sold        int64
	CreatedBy   string
	UpdatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
	DeletedBy   string
}

// Stock reports the number of units currently available for sale.
func (p Product) Stock() int64 {
	return p.Quantity - p.Sold
}

// FinalPrice returns the unit price after the product's own percentage
// discount. Carts lock this value in when a line is added.
func (p Product) FinalPrice() decimal.Decimal {
	if p.Discount <= 0 {
		return p.Price
	}
	factor := decimal.NewFromInt(int64(100 - p.Discount)).Div(decimal.NewFromInt(100))
	return p.Price.Mul(factor)
}

// CartLine is a snapshot of a product at the moment it entered the cart.
// FinalPrice is locked in then and does not follow later catalog price changes.
type CartLine struct {
	ProductID  string
	Quantity   int64
	FinalPrice decimal.Decimal
}

// LineTotal returns quantity times the locked-in unit price.
func (l CartLine) LineTotal() decimal.Decimal {
	return l.FinalPrice.Mul(decimal.NewFromInt(l.Quantity))
}

// Cart holds one user's pending lines. SubTotal is recomputed on every write
// and always equals the sum of the line totals.
type Cart struct {
	ID        string
	UserID    string
	Lines     []CartLine
	SubTotal  decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComputeSubTotal derives the cart subtotal from its lines.
func (c Cart) ComputeSubTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c.Lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// LineIndex returns the index of the line holding productID, or -1.
func (c Cart) LineIndex(productID string) int {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i
		}
	}
	return -1
}

// Coupon is a percentage discount redeemable once per user inside its window.
type Coupon struct {
	ID        string
	Code      string
	Amount    int
	FromDate  time.Time
	ToDate    time.Time
	UsedBy    []string
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
	DeletedBy string
}

// ActiveAt reports whether the coupon window covers the given instant.
func (c Coupon) ActiveAt(at time.Time) bool {
	return !at.Before(c.FromDate) && !at.After(c.ToDate)
}

// UsedByUser reports whether the user already redeemed this coupon.
func (c Coupon) UsedByUser(userID string) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Apply returns the total after the percentage discount, rounded to two
// decimal places. Orders persist this value, never the raw product.
func (c Coupon) Apply(subTotal decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - c.Amount)).Div(decimal.NewFromInt(100))
	return subTotal.Mul(factor).Round(2)
}

// OrderLine is the immutable copy of a cart line embedded in an order.
type OrderLine struct {
	ProductID   string
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
}

// PaymentDetails records the gateway settlement of a CARD order.
type PaymentDetails struct {
	PaymentIntentID string
	PaidAt          time.Time
	PaidBy          string
}

// StatusDetails carries the current order status and the audit trail of the
// terminal transitions.
type StatusDetails struct {
	Status       OrderStatus
	CancelledAt  *time.Time
	CancelledBy  string
	CancelReason string
	RefundedAt   *time.Time
	RefundedBy   string
}

// Order is a placed purchase. Lines are copied from the cart at placement so
// later cart edits cannot alter the order.
type Order struct {
	ID                    string
	OrderNumber           string
	UserID                string
	CartID                string
	CouponID              string
	Lines                 []OrderLine
	TotalPrice            decimal.Decimal
	Address               string
	Phone                 string
	PaymentMethod         PaymentMethod
	EstimatedDeliveryDate time.Time
	PaymentDetails        *PaymentDetails
	StatusDetails         StatusDetails
	StockCommitted        bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
	DeletedAt             *time.Time
	DeletedBy             string
}

// Status is a shorthand for the nested status field.
func (o Order) Status() OrderStatus {
	return o.StatusDetails.Status
}

// StockLine is a ledger mutation unit used by inventory commit and reverse.
type StockLine struct {
	ProductID string
	Quantity  int64
}

// StockEvent is the audit record written alongside each ledger mutation.
type StockEvent struct {
	ID        string
	ProductID string
	Delta     int64
	Reason    string
	OrderID   string
	CreatedAt time.Time
}

// CursorPage wraps a result window with the token for the next one.
type CursorPage[T any] struct {
	Items      []T
	NextCursor string
}
