package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soukly/api/internal/repositories"
)

var (
	errInventoryProductsRequired = errors.New("inventory service: product repository is required")
	errInventoryEventsRequired   = errors.New("inventory service: stock event repository is required")
	errInventoryClockRequired    = errors.New("inventory service: clock is required")
)

// ErrInventoryInvalidInput indicates the caller supplied invalid input.
var ErrInventoryInvalidInput = errors.New("inventory service: invalid input")

// ErrInventoryUnavailable indicates the inventory service cannot fulfil the request.
var ErrInventoryUnavailable = errors.New("inventory service: unavailable")

// ErrInventoryProductNotFound indicates a referenced product does not exist.
var ErrInventoryProductNotFound = errors.New("inventory service: product not found")

// ErrInsufficientStock indicates a commit would leave negative stock. The
// whole batch is rejected when any line fails.
var ErrInsufficientStock = errors.New("inventory service: insufficient stock")

// InventoryServiceDeps wires the ledger dependencies.
type InventoryServiceDeps struct {
	Products repositories.ProductRepository
	Events   repositories.StockEventRepository
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type inventoryService struct {
	products repositories.ProductRepository
	events   repositories.StockEventRepository
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewInventoryService constructs an InventoryService enforcing dependency validation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Products == nil {
		return nil, errInventoryProductsRequired
	}
	if deps.Events == nil {
		return nil, errInventoryEventsRequired
	}
	if deps.Clock == nil {
		return nil, errInventoryClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	service := &inventoryService{
		products: deps.Products,
		events:   deps.Events,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}
	return service, nil
}

// Commit moves units from available to sold for every line, atomically.
func (s *inventoryService) Commit(ctx context.Context, lines []StockLine, orderID, reason string) error {
	if s == nil || s.products == nil {
		return ErrInventoryUnavailable
	}
	if err := validateStockLines(lines); err != nil {
		return err
	}

	if err := s.products.CommitStock(ctx, lines, strings.TrimSpace(orderID), reason); err != nil {
		return s.translateStockError(err)
	}

	s.logger(ctx, "inventory.committed", map[string]any{
		"orderID": orderID,
		"lines":   len(lines),
	})
	return nil
}

// Reverse is the exact inverse of Commit, returning sold units to stock.
func (s *inventoryService) Reverse(ctx context.Context, lines []StockLine, orderID, reason string) error {
	if s == nil || s.products == nil {
		return ErrInventoryUnavailable
	}
	if err := validateStockLines(lines); err != nil {
		return err
	}

	if err := s.products.ReverseStock(ctx, lines, strings.TrimSpace(orderID), reason); err != nil {
		return s.translateStockError(err)
	}

	s.logger(ctx, "inventory.reversed", map[string]any{
		"orderID": orderID,
		"lines":   len(lines),
	})
	return nil
}

// HistoryByOrder lists the ledger entries written for one order.
func (s *inventoryService) HistoryByOrder(ctx context.Context, orderID string) ([]StockEvent, error) {
	if s == nil || s.events == nil {
		return nil, ErrInventoryUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrInventoryInvalidInput)
	}
	events, err := s.events.ListByOrder(ctx, id)
	if err != nil {
		return nil, s.translateRepoError(err)
	}
	return events, nil
}

func validateStockLines(lines []StockLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInventoryInvalidInput)
	}
	for _, line := range lines {
		if strings.TrimSpace(line.ProductID) == "" {
			return fmt.Errorf("%w: product id is required", ErrInventoryInvalidInput)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", ErrInventoryInvalidInput)
		}
	}
	return nil
}

func (s *inventoryService) translateStockError(err error) error {
	if err == nil {
		return nil
	}
	if stockErr, ok := repositories.AsStockError(err); ok {
		switch stockErr.Code {
		case repositories.StockErrorInsufficient:
			return fmt.Errorf("%w: %s", ErrInsufficientStock, stockErr.Message)
		case repositories.StockErrorProductNotFound:
			return fmt.Errorf("%w: %s", ErrInventoryProductNotFound, stockErr.Message)
		case repositories.StockErrorInvalidLine:
			return fmt.Errorf("%w: %s", ErrInventoryInvalidInput, stockErr.Message)
		}
		return ErrInventoryUnavailable
	}
	return s.translateRepoError(err)
}

func (s *inventoryService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrInventoryProductNotFound
		case repoErr.IsUnavailable():
			return ErrInventoryUnavailable
		}
		return ErrInventoryUnavailable
	}
	return ErrInventoryUnavailable
}
