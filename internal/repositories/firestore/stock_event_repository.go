package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/soukly/api/internal/domain"
	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/repositories"
)

// StockEventRepository reads and appends the inventory audit trail. The ledger
// itself also writes events from inside its stock transactions.
type StockEventRepository struct {
	base     *pfirestore.BaseRepository[stockEventDocument]
	provider *pfirestore.Provider
}

var _ repositories.StockEventRepository = (*StockEventRepository)(nil)

// NewStockEventRepository constructs a Firestore-backed stock event repository.
func NewStockEventRepository(provider *pfirestore.Provider) (*StockEventRepository, error) {
	if provider == nil {
		return nil, errors.New("stock event repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[stockEventDocument](provider, stockEventCollection, nil, nil)
	return &StockEventRepository{base: base, provider: provider}, nil
}

// Append writes a single stock event.
func (r *StockEventRepository) Append(ctx context.Context, event domain.StockEvent) error {
	if r == nil || r.base == nil {
		return errors.New("stock event repository not initialised")
	}
	if strings.TrimSpace(event.ID) == "" {
		return errors.New("stock event repository: event id is required")
	}
	createdAt := event.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	ref, err := r.base.DocumentRef(ctx, event.ID)
	if err != nil {
		return err
	}
	_, err = ref.Create(ctx, stockEventDocument{
		ProductID: strings.TrimSpace(event.ProductID),
		Delta:     event.Delta,
		Reason:    strings.TrimSpace(event.Reason),
		OrderID:   strings.TrimSpace(event.OrderID),
		CreatedAt: createdAt,
	})
	return pfirestore.WrapError("stock_events.append", err)
}

// ListByOrder returns the events recorded for an order, oldest first.
func (r *StockEventRepository) ListByOrder(ctx context.Context, orderID string) ([]domain.StockEvent, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("stock event repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, errors.New("stock event repository: order id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID).OrderBy("createdAt", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	events := make([]domain.StockEvent, 0, len(docs))
	for _, doc := range docs {
		events = append(events, domain.StockEvent{
			ID:        doc.ID,
			ProductID: doc.Data.ProductID,
			Delta:     doc.Data.Delta,
			Reason:    doc.Data.Reason,
			OrderID:   doc.Data.OrderID,
			CreatedAt: doc.Data.CreatedAt,
		})
	}
	return events, nil
}
