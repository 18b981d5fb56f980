package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/soukly/api/internal/domain"
	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/repositories"
)

const (
	orderCollection = "orders"

	defaultOrderPageSize = 50
	maxOrderPageSize     = 100
)

type orderLineDocument struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	Quantity    int64  `firestore:"quantity"`
	UnitPrice   string `firestore:"unitPrice"`
}

type paymentDetailsDocument struct {
	PaymentIntentID string    `firestore:"paymentIntentId"`
	PaidAt          time.Time `firestore:"paidAt"`
	PaidBy          string    `firestore:"paidBy"`
}

type statusDetailsDocument struct {
	Status       string     `firestore:"status"`
	CancelledAt  *time.Time `firestore:"cancelledAt"`
	CancelledBy  string     `firestore:"cancelledBy,omitempty"`
	CancelReason string     `firestore:"cancelReason,omitempty"`
	RefundedAt   *time.Time `firestore:"refundedAt"`
	RefundedBy   string     `firestore:"refundedBy,omitempty"`
}

type orderDocument struct {
	OrderNumber           string                  `firestore:"orderNumber"`
	UserID                string                  `firestore:"userId"`
	CartID                string                  `firestore:"cartId"`
	CouponID              string                  `firestore:"couponId,omitempty"`
	Lines                 []orderLineDocument     `firestore:"lines"`
	TotalPrice            string                  `firestore:"totalPrice"`
	Address               string                  `firestore:"address"`
	Phone                 string                  `firestore:"phone"`
	PaymentMethod         string                  `firestore:"paymentMethod"`
	EstimatedDeliveryDate time.Time               `firestore:"estimatedDeliveryDate"`
	PaymentDetails        *paymentDetailsDocument `firestore:"paymentDetails"`
	StatusDetails         statusDetailsDocument   `firestore:"statusDetails"`
	StockCommitted        bool                    `firestore:"stockCommitted"`
	CreatedAt             time.Time               `firestore:"createdAt"`
	UpdatedAt             time.Time               `firestore:"updatedAt"`
	DeletedAt             *time.Time              `firestore:"deletedAt"`
	DeletedBy             string                  `firestore:"deletedBy,omitempty"`
}

// OrderRepository persists orders in Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil)
	return &OrderRepository{base: base, provider: provider}, nil
}

// Insert creates the order document, joining an in-flight transaction when present.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	doc, err := encodeOrder(order)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, order.ID)
	if err != nil {
		return err
	}
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("orders.insert", tx.Create(ref, doc))
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("orders.insert", err)
}

// Update replaces the order document, joining an in-flight transaction when present.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	doc, err := encodeOrder(order)
	if err != nil {
		return err
	}
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		ref, refErr := r.base.DocumentRef(ctx, order.ID)
		if refErr != nil {
			return refErr
		}
		return pfirestore.WrapError("orders.update", tx.Set(ref, doc))
	}
	_, err = r.base.Set(ctx, order.ID, doc)
	return err
}

// FindByID loads an order; soft-deleted documents read as missing.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return domain.Order{}, err
	}
	if doc.Data.DeletedAt != nil {
		return domain.Order{}, softDeletedError("orders.get")
	}
	return decodeOrder(doc.ID, doc.Data)
}

// List returns a page of live orders ordered by creation time descending.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}

	cursor, err := decodePageToken(filter.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, pfirestore.WrapError("orders.list", err)
	}
	pageSize := normalizePageSize(filter.PageSize, defaultOrderPageSize, maxOrderPageSize)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("deletedAt", "==", nil)
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if filter.Status != "" {
			q = q.Where("statusDetails.status", "==", string(filter.Status))
		}
		if filter.PaymentMethod != "" {
			q = q.Where("paymentMethod", "==", string(filter.PaymentMethod))
		}
		if filter.From != nil {
			q = q.Where("createdAt", ">=", filter.From.UTC())
		}
		if filter.To != nil {
			q = q.Where("createdAt", "<=", filter.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if cursor.DocID != "" {
			q = q.StartAfter(cursor.CreatedAt, cursor.DocID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for i, doc := range docs {
		if i == pageSize {
			page.NextCursor = encodePageToken(pageCursor{CreatedAt: doc.Data.CreatedAt, DocID: doc.ID})
			break
		}
		order, err := decodeOrder(doc.ID, doc.Data)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(order.Address), search) &&
			!strings.Contains(strings.ToLower(order.Phone), search) {
			continue
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

// SoftDelete marks the order deleted.
func (r *OrderRepository) SoftDelete(ctx context.Context, orderID, deletedBy string, deletedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(orderID), []firestore.Update{
		{Path: "deletedAt", Value: deletedAt.UTC()},
		{Path: "deletedBy", Value: strings.TrimSpace(deletedBy)},
		{Path: "updatedAt", Value: deletedAt.UTC()},
	})
	return err
}

// Restore clears the soft-delete markers.
func (r *OrderRepository) Restore(ctx context.Context, orderID string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(orderID), []firestore.Update{
		{Path: "deletedAt", Value: nil},
		{Path: "deletedBy", Value: ""},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

func encodeOrder(order domain.Order) (orderDocument, error) {
	if strings.TrimSpace(order.ID) == "" {
		return orderDocument{}, errors.New("order repository: order id is required")
	}
	now := time.Now().UTC()
	createdAt := order.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	lines := make([]orderLineDocument, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, orderLineDocument{
			ProductID:   strings.TrimSpace(line.ProductID),
			ProductName: strings.TrimSpace(line.ProductName),
			Quantity:    line.Quantity,
			UnitPrice:   encodeDecimal(line.UnitPrice),
		})
	}

	doc := orderDocument{
		OrderNumber:           strings.TrimSpace(order.OrderNumber),
		UserID:                strings.TrimSpace(order.UserID),
		CartID:                strings.TrimSpace(order.CartID),
		CouponID:              strings.TrimSpace(order.CouponID),
		Lines:                 lines,
		TotalPrice:            encodeDecimal(order.TotalPrice),
		Address:               strings.TrimSpace(order.Address),
		Phone:                 strings.TrimSpace(order.Phone),
		PaymentMethod:         string(order.PaymentMethod),
		EstimatedDeliveryDate: order.EstimatedDeliveryDate.UTC(),
		StatusDetails: statusDetailsDocument{
			Status:       string(order.StatusDetails.Status),
			CancelledAt:  order.StatusDetails.CancelledAt,
			CancelledBy:  strings.TrimSpace(order.StatusDetails.CancelledBy),
			CancelReason: strings.TrimSpace(order.StatusDetails.CancelReason),
			RefundedAt:   order.StatusDetails.RefundedAt,
			RefundedBy:   strings.TrimSpace(order.StatusDetails.RefundedBy),
		},
		StockCommitted: order.StockCommitted,
		CreatedAt:      createdAt,
		UpdatedAt:      now,
		DeletedAt:      order.DeletedAt,
		DeletedBy:      strings.TrimSpace(order.DeletedBy),
	}
	if order.PaymentDetails != nil {
		doc.PaymentDetails = &paymentDetailsDocument{
			PaymentIntentID: strings.TrimSpace(order.PaymentDetails.PaymentIntentID),
			PaidAt:          order.PaymentDetails.PaidAt.UTC(),
			PaidBy:          strings.TrimSpace(order.PaymentDetails.PaidBy),
		}
	}
	return doc, nil
}

func decodeOrder(id string, doc orderDocument) (domain.Order, error) {
	lines := make([]domain.OrderLine, 0, len(doc.Lines))
	for _, lineDoc := range doc.Lines {
		price, err := decodeDecimal(lineDoc.UnitPrice)
		if err != nil {
			return domain.Order{}, fmt.Errorf("order %s: %w", id, err)
		}
		lines = append(lines, domain.OrderLine{
			ProductID:   lineDoc.ProductID,
			ProductName: lineDoc.ProductName,
			Quantity:    lineDoc.Quantity,
			UnitPrice:   price,
		})
	}
	total, err := decodeDecimal(doc.TotalPrice)
	if err != nil {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, err)
	}

	order := domain.Order{
		ID:                    id,
		OrderNumber:           doc.OrderNumber,
		UserID:                doc.UserID,
		CartID:                doc.CartID,
		CouponID:              doc.CouponID,
		Lines:                 lines,
		TotalPrice:            total,
		Address:               doc.Address,
		Phone:                 doc.Phone,
		PaymentMethod:         domain.PaymentMethod(doc.PaymentMethod),
		EstimatedDeliveryDate: doc.EstimatedDeliveryDate,
		StatusDetails: domain.StatusDetails{
			Status:       domain.OrderStatus(doc.StatusDetails.Status),
			CancelledAt:  doc.StatusDetails.CancelledAt,
			CancelledBy:  doc.StatusDetails.CancelledBy,
			CancelReason: doc.StatusDetails.CancelReason,
			RefundedAt:   doc.StatusDetails.RefundedAt,
			RefundedBy:   doc.StatusDetails.RefundedBy,
		},
		StockCommitted: doc.StockCommitted,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		DeletedAt:      doc.DeletedAt,
		DeletedBy:      doc.DeletedBy,
	}
	if doc.PaymentDetails != nil {
		order.PaymentDetails = &domain.PaymentDetails{
			PaymentIntentID: doc.PaymentDetails.PaymentIntentID,
			PaidAt:          doc.PaymentDetails.PaidAt,
			PaidBy:          doc.PaymentDetails.PaidBy,
		}
	}
	return order, nil
}
