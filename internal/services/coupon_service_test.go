package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/soukly/api/internal/domain"
)

func TestCouponServiceCreateNormalisesCode(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	var inserted domain.Coupon

	coupons := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{}, &repositoryErrorStub{notFound: true}
		},
		insertFunc: func(ctx context.Context, coupon domain.Coupon) error {
			inserted = coupon
			return nil
		},
	}

	service, err := NewCouponService(CouponServiceDeps{
		Coupons:     coupons,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "cpn_1" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	coupon, err := service.Create(context.Background(), CreateCouponCommand{
		Code:     " spring-10 ",
		Amount:   10,
		FromDate: now,
		ToDate:   now.Add(30 * 24 * time.Hour),
		ActorID:  "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coupon.Code != "SPRING-10" {
		t.Fatalf("expected uppercased code SPRING-10, got %q", coupon.Code)
	}
	if inserted.ID != "cpn_1" {
		t.Fatalf("expected generated id cpn_1, got %q", inserted.ID)
	}
	if inserted.CreatedBy != "admin-1" {
		t.Fatalf("expected createdBy admin-1, got %q", inserted.CreatedBy)
	}
}

func TestCouponServiceCreateRejectsBadWindow(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	service, err := NewCouponService(CouponServiceDeps{
		Coupons: &stubCouponRepository{},
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	_, err = service.Create(context.Background(), CreateCouponCommand{
		Code:     "LATE",
		Amount:   10,
		FromDate: now.Add(-48 * time.Hour),
		ToDate:   now.Add(24 * time.Hour),
	})
	if !errors.Is(err, ErrCouponInvalidInput) {
		t.Fatalf("expected ErrCouponInvalidInput for past fromDate, got %v", err)
	}

	_, err = service.Create(context.Background(), CreateCouponCommand{
		Code:     "BACKWARDS",
		Amount:   10,
		FromDate: now.Add(48 * time.Hour),
		ToDate:   now.Add(24 * time.Hour),
	})
	if !errors.Is(err, ErrCouponInvalidInput) {
		t.Fatalf("expected ErrCouponInvalidInput for inverted window, got %v", err)
	}
}

func TestCouponServiceCreateRejectsAmountOutOfRange(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	service, err := NewCouponService(CouponServiceDeps{
		Coupons: &stubCouponRepository{},
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	for _, amount := range []int{0, -5, 101} {
		_, err := service.Create(context.Background(), CreateCouponCommand{
			Code:     "RANGE",
			Amount:   amount,
			FromDate: now,
			ToDate:   now.Add(time.Hour),
		})
		if !errors.Is(err, ErrCouponInvalidInput) {
			t.Fatalf("expected ErrCouponInvalidInput for amount %d, got %v", amount, err)
		}
	}
}

func TestCouponServiceCreateDuplicateCode(t *testing.T) {
	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	coupons := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{ID: "cpn_other", Code: code}, nil
		},
	}

	service, err := NewCouponService(CouponServiceDeps{
		Coupons: coupons,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	_, err = service.Create(context.Background(), CreateCouponCommand{
		Code:     "TAKEN",
		Amount:   15,
		FromDate: now,
		ToDate:   now.Add(time.Hour),
	})
	if !errors.Is(err, ErrCouponConflict) {
		t.Fatalf("expected ErrCouponConflict, got %v", err)
	}
}

func TestCouponServiceValidate(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	coupons := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			if code != "SAVE10" {
				t.Fatalf("expected uppercase lookup, got %q", code)
			}
			return domain.Coupon{
				ID:       "cpn_1",
				Code:     "SAVE10",
				Amount:   10,
				FromDate: now.Add(-time.Hour),
				ToDate:   now.Add(time.Hour),
				UsedBy:   []string{"user-used"},
			}, nil
		},
	}

	service, err := NewCouponService(CouponServiceDeps{
		Coupons: coupons,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	coupon, err := service.Validate(context.Background(), "save10", "user-fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if coupon.ID != "cpn_1" {
		t.Fatalf("expected coupon cpn_1, got %q", coupon.ID)
	}

	_, err = service.Validate(context.Background(), "save10", "user-used")
	if !errors.Is(err, ErrCouponConflict) {
		t.Fatalf("expected ErrCouponConflict for reused coupon, got %v", err)
	}
}

func TestCouponServiceValidateExpired(t *testing.T) {
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

	coupons := &stubCouponRepository{
		findByCodeFunc: func(ctx context.Context, code string) (domain.Coupon, error) {
			return domain.Coupon{
				ID:       "cpn_1",
				Code:     code,
				Amount:   10,
				FromDate: now.Add(-48 * time.Hour),
				ToDate:   now.Add(-24 * time.Hour),
			}, nil
		},
	}

	service, err := NewCouponService(CouponServiceDeps{
		Coupons: coupons,
		Clock:   func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	_, err = service.Validate(context.Background(), "OLD10", "user-1")
	if !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected ErrCouponExpired, got %v", err)
	}
}

func TestCouponServiceCheckUnusedConflict(t *testing.T) {
	coupons := &stubCouponRepository{
		checkUnusedFunc: func(ctx context.Context, couponID, userID string) error {
			return &repositoryErrorStub{conflict: true}
		},
	}

	service, err := NewCouponService(CouponServiceDeps{
		Coupons: coupons,
		Clock:   time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	err = service.CheckUnused(context.Background(), "cpn_1", "user-1")
	if !errors.Is(err, ErrCouponConflict) {
		t.Fatalf("expected ErrCouponConflict, got %v", err)
	}
}

func TestCouponServiceMarkUsedConflict(t *testing.T) {
	coupons := &stubCouponRepository{
		markUsedFunc: func(ctx context.Context, couponID, userID string) error {
			return &repositoryErrorStub{conflict: true}
		},
	}

	service, err := NewCouponService(CouponServiceDeps{
		Coupons: coupons,
		Clock:   time.Now,
	})
	if err != nil {
		t.Fatalf("unexpected error constructing coupon service: %v", err)
	}

	err = service.MarkUsed(context.Background(), "cpn_1", "user-1")
	if !errors.Is(err, ErrCouponConflict) {
		t.Fatalf("expected ErrCouponConflict, got %v", err)
	}
}
