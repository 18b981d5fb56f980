package firestore

import (
	"context"
	"errors"

	fs "cloud.google.com/go/firestore"

	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories behind the repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	products      *ProductRepository
	carts         *CartRepository
	coupons       *CouponRepository
	orders        *OrderRepository
	stockEvents   *StockEventRepository
	counters      *CounterRepository
	webhookEvents *WebhookEventRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs the repository registry on top of a shared provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	coupons, err := NewCouponRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	stockEvents, err := NewStockEventRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}
	webhookEvents, err := NewWebhookEventRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		products:      products,
		carts:         carts,
		coupons:       coupons,
		orders:        orders,
		stockEvents:   stockEvents,
		counters:      counters,
		webhookEvents: webhookEvents,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn inside a single Firestore transaction. Repository calls
// made with the derived context join the transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	if fn == nil {
		return errors.New("registry: transaction function is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	return pfirestore.RunWrite(ctx, client, func(txCtx context.Context, _ *fs.Transaction) error {
		return fn(txCtx)
	})
}

func (r *Registry) Products() repositories.ProductRepository           { return r.products }
func (r *Registry) Carts() repositories.CartRepository                 { return r.carts }
func (r *Registry) Coupons() repositories.CouponRepository             { return r.coupons }
func (r *Registry) Orders() repositories.OrderRepository               { return r.orders }
func (r *Registry) StockEvents() repositories.StockEventRepository     { return r.stockEvents }
func (r *Registry) Counters() repositories.CounterRepository           { return r.counters }
func (r *Registry) WebhookEvents() repositories.WebhookEventRepository { return r.webhookEvents }
