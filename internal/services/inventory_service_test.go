package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/repositories"
)

func TestInventoryServiceCommitPassesLines(t *testing.T) {
	var gotLines []domain.StockLine
	var gotOrderID, gotReason string

	products := &stubProductRepository{
		commitFunc: func(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
			gotLines = lines
			gotOrderID = orderID
			gotReason = reason
			return nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Products: products,
		Events:   &stubStockEventRepository{},
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	lines := []StockLine{{ProductID: "prd_1", Quantity: 2}, {ProductID: "prd_2", Quantity: 1}}
	if err := service.Commit(context.Background(), lines, "ord_1", "order placed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotLines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(gotLines))
	}
	if gotOrderID != "ord_1" || gotReason != "order placed" {
		t.Fatalf("unexpected commit args %q %q", gotOrderID, gotReason)
	}
}

func TestInventoryServiceCommitInsufficientStock(t *testing.T) {
	products := &stubProductRepository{
		commitFunc: func(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
			return repositories.NewStockError(repositories.StockErrorInsufficient, "product prd_1 has 1 unit available", nil)
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Products: products,
		Events:   &stubStockEventRepository{},
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	err = service.Commit(context.Background(), []StockLine{{ProductID: "prd_1", Quantity: 2}}, "ord_1", "order placed")
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestInventoryServiceRejectsInvalidLines(t *testing.T) {
	service, err := NewInventoryService(InventoryServiceDeps{
		Products: &stubProductRepository{},
		Events:   &stubStockEventRepository{},
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	cases := [][]StockLine{
		nil,
		{{ProductID: "", Quantity: 1}},
		{{ProductID: "prd_1", Quantity: 0}},
		{{ProductID: "prd_1", Quantity: -3}},
	}
	for i, lines := range cases {
		if err := service.Commit(context.Background(), lines, "ord_1", "test"); !errors.Is(err, ErrInventoryInvalidInput) {
			t.Fatalf("case %d: expected ErrInventoryInvalidInput, got %v", i, err)
		}
	}
}

func TestInventoryServiceReverseMirrorsCommit(t *testing.T) {
	var reversed []domain.StockLine

	products := &stubProductRepository{
		reverseFunc: func(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
			reversed = lines
			return nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Products: products,
		Events:   &stubStockEventRepository{},
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	lines := []StockLine{{ProductID: "prd_1", Quantity: 2}}
	if err := service.Reverse(context.Background(), lines, "ord_1", "order cancelled"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reversed) != 1 || reversed[0].Quantity != 2 {
		t.Fatalf("expected reverse with same quantities, got %+v", reversed)
	}
}

func TestInventoryServiceHistoryByOrder(t *testing.T) {
	events := &stubStockEventRepository{
		listFunc: func(ctx context.Context, orderID string) ([]domain.StockEvent, error) {
			if orderID != "ord_1" {
				t.Fatalf("unexpected order id %q", orderID)
			}
			return []domain.StockEvent{
				{ID: "sev_1", ProductID: "prd_1", Delta: 2, OrderID: "ord_1"},
				{ID: "sev_2", ProductID: "prd_1", Delta: -2, OrderID: "ord_1"},
			}, nil
		},
	}

	service, err := NewInventoryService(InventoryServiceDeps{
		Products: &stubProductRepository{},
		Events:   events,
		Clock:    time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing inventory service: %v", err)
	}

	history, err := service.HistoryByOrder(context.Background(), "ord_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 events, got %d", len(history))
	}
	if history[0].Delta+history[1].Delta != 0 {
		t.Fatalf("expected commit and reverse to cancel out, got %+v", history)
	}
}
