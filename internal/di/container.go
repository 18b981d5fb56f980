package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/soukly/api/internal/platform/config"
	"github.com/soukly/api/internal/repositories"
	"github.com/soukly/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Products  services.ProductService
	Carts     services.CartService
	Coupons   services.CouponService
	Inventory services.InventoryService
	Orders    services.OrderService
}

// Deps carries the infrastructure collaborators the service layer needs beyond
// the repository registry. Gateway and Publisher may be nil in trimmed-down
// deployments; the order service degrades accordingly.
type Deps struct {
	Gateway   services.PaymentGateway
	Publisher services.OrderEventPublisher
	Storage   services.AssetURLSigner
	Logger    *zap.Logger
}

// Container wires repositories, services, and infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, deps Deps) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, deps Deps) (Services, error) {
	var svc Services

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	productSvc, err := services.NewProductService(services.ProductServiceDeps{
		Products: reg.Products(),
		Storage:  deps.Storage,
		Bucket:   cfg.Storage.Bucket,
		Clock:    time.Now,
		Logger:   serviceLogger(logger.Named("products")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build product service: %w", err)
	}
	svc.Products = productSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Carts:    reg.Carts(),
		Products: reg.Products(),
		Clock:    time.Now,
		Logger:   serviceLogger(logger.Named("cart")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Carts = cartSvc

	couponSvc, err := services.NewCouponService(services.CouponServiceDeps{
		Coupons: reg.Coupons(),
		Clock:   time.Now,
		Logger:  serviceLogger(logger.Named("coupons")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build coupon service: %w", err)
	}
	svc.Coupons = couponSvc

	inventorySvc, err := services.NewInventoryService(services.InventoryServiceDeps{
		Products: reg.Products(),
		Events:   reg.StockEvents(),
		Clock:    time.Now,
		Logger:   serviceLogger(logger.Named("inventory")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build inventory service: %w", err)
	}
	svc.Inventory = inventorySvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Registry:       reg,
		Coupons:        couponSvc,
		Gateway:        deps.Gateway,
		Publisher:      deps.Publisher,
		Storage:        deps.Storage,
		Bucket:         cfg.Storage.Bucket,
		DeliveryWindow: cfg.Orders.DeliveryWindow,
		NumberPrefix:   cfg.Orders.NumberPrefix,
		Clock:          time.Now,
		Logger:         serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}

func serviceLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug(event, zFields...)
	}
}
