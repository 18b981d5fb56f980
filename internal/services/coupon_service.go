package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/soukly/api/internal/domain"
	"github.com/soukly/api/internal/repositories"
)

var (
	errCouponRepositoryRequired = errors.New("coupon service: coupon repository is required")
	errCouponClockRequired      = errors.New("coupon service: clock is required")
)

// ErrCouponInvalidInput indicates the caller supplied invalid input.
var ErrCouponInvalidInput = errors.New("coupon service: invalid input")

// ErrCouponUnavailable indicates the coupon service cannot fulfil the request.
var ErrCouponUnavailable = errors.New("coupon service: unavailable")

// ErrCouponNotFound indicates the requested coupon does not exist.
var ErrCouponNotFound = errors.New("coupon service: not found")

// ErrCouponConflict indicates a duplicate code or a second redemption attempt.
var ErrCouponConflict = errors.New("coupon service: conflict")

// ErrCouponExpired indicates the coupon window does not cover the current time.
var ErrCouponExpired = errors.New("coupon service: coupon is not active")

// CouponServiceDeps wires the repository dependencies for coupon operations.
type CouponServiceDeps struct {
	Coupons     repositories.CouponRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type couponService struct {
	coupons repositories.CouponRepository
	newID   func() string
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCouponService constructs a CouponService enforcing dependency validation.
func NewCouponService(deps CouponServiceDeps) (CouponService, error) {
	if deps.Coupons == nil {
		return nil, errCouponRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCouponClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "cpn_" + ulid.Make().String() }
	}

	service := &couponService{
		coupons: deps.Coupons,
		newID:   idGen,
		now:     func() time.Time { return deps.Clock().UTC() },
		logger:  logger,
	}
	return service, nil
}

// Create stores a new coupon. Codes are uppercased and must be unique.
func (s *couponService) Create(ctx context.Context, cmd CreateCouponCommand) (Coupon, error) {
	if s == nil || s.coupons == nil {
		return Coupon{}, ErrCouponUnavailable
	}

	code, err := normaliseCouponCode(cmd.Code)
	if err != nil {
		return Coupon{}, err
	}
	if err := validateCouponAmount(cmd.Amount); err != nil {
		return Coupon{}, err
	}

	now := s.now()
	from := cmd.FromDate.UTC()
	to := cmd.ToDate.UTC()
	if from.Before(now.Truncate(24 * time.Hour)) {
		return Coupon{}, fmt.Errorf("%w: fromDate must not be in the past", ErrCouponInvalidInput)
	}
	if !to.After(from) {
		return Coupon{}, fmt.Errorf("%w: toDate must be after fromDate", ErrCouponInvalidInput)
	}

	if _, err := s.coupons.FindByCode(ctx, code); err == nil {
		return Coupon{}, fmt.Errorf("%w: code %s already exists", ErrCouponConflict, code)
	} else if !isRepoNotFound(err) {
		return Coupon{}, s.translateRepoError(err)
	}

	coupon := Coupon{
		ID:        s.newID(),
		Code:      code,
		Amount:    cmd.Amount,
		FromDate:  from,
		ToDate:    to,
		CreatedBy: cmd.ActorID,
		UpdatedBy: cmd.ActorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.coupons.Insert(ctx, coupon); err != nil {
		return Coupon{}, s.translateRepoError(err)
	}

	s.logger(ctx, "coupon.created", map[string]any{
		"couponID": coupon.ID,
		"code":     coupon.Code,
		"amount":   coupon.Amount,
	})
	return coupon, nil
}

// Update patches an existing coupon. Redemption history is never rewritten.
func (s *couponService) Update(ctx context.Context, cmd UpdateCouponCommand) (Coupon, error) {
	if s == nil || s.coupons == nil {
		return Coupon{}, ErrCouponUnavailable
	}

	couponID := strings.TrimSpace(cmd.CouponID)
	if couponID == "" {
		return Coupon{}, fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	if cmd.Code == nil && cmd.Amount == nil && cmd.FromDate == nil && cmd.ToDate == nil {
		return Coupon{}, fmt.Errorf("%w: nothing to update", ErrCouponInvalidInput)
	}

	coupon, err := s.coupons.FindByID(ctx, couponID)
	if err != nil {
		return Coupon{}, s.translateRepoError(err)
	}

	if cmd.Code != nil {
		code, err := normaliseCouponCode(*cmd.Code)
		if err != nil {
			return Coupon{}, err
		}
		if code != coupon.Code {
			if existing, err := s.coupons.FindByCode(ctx, code); err == nil && existing.ID != coupon.ID {
				return Coupon{}, fmt.Errorf("%w: code %s already exists", ErrCouponConflict, code)
			} else if err != nil && !isRepoNotFound(err) {
				return Coupon{}, s.translateRepoError(err)
			}
		}
		coupon.Code = code
	}
	if cmd.Amount != nil {
		if err := validateCouponAmount(*cmd.Amount); err != nil {
			return Coupon{}, err
		}
		coupon.Amount = *cmd.Amount
	}
	if cmd.FromDate != nil {
		coupon.FromDate = cmd.FromDate.UTC()
	}
	if cmd.ToDate != nil {
		coupon.ToDate = cmd.ToDate.UTC()
	}
	if !coupon.ToDate.After(coupon.FromDate) {
		return Coupon{}, fmt.Errorf("%w: toDate must be after fromDate", ErrCouponInvalidInput)
	}

	coupon.UpdatedBy = cmd.ActorID
	coupon.UpdatedAt = s.now()

	if err := s.coupons.Update(ctx, coupon); err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	return coupon, nil
}

func (s *couponService) GetByID(ctx context.Context, couponID string) (Coupon, error) {
	if s == nil || s.coupons == nil {
		return Coupon{}, ErrCouponUnavailable
	}
	id := strings.TrimSpace(couponID)
	if id == "" {
		return Coupon{}, fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	coupon, err := s.coupons.FindByID(ctx, id)
	if err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	return coupon, nil
}

func (s *couponService) List(ctx context.Context, query CouponListQuery) (domain.CursorPage[domain.Coupon], error) {
	if s == nil || s.coupons == nil {
		return domain.CursorPage[domain.Coupon]{}, ErrCouponUnavailable
	}
	page, err := s.coupons.List(ctx, repositories.CouponListFilter{
		From:      query.From,
		To:        query.To,
		PageSize:  query.PageSize,
		PageToken: query.PageToken,
	})
	if err != nil {
		return domain.CursorPage[domain.Coupon]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *couponService) SoftDelete(ctx context.Context, couponID, actorID string) error {
	if s == nil || s.coupons == nil {
		return ErrCouponUnavailable
	}
	id := strings.TrimSpace(couponID)
	if id == "" {
		return fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	if err := s.coupons.SoftDelete(ctx, id, actorID, s.now()); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *couponService) Restore(ctx context.Context, couponID string) error {
	if s == nil || s.coupons == nil {
		return ErrCouponUnavailable
	}
	id := strings.TrimSpace(couponID)
	if id == "" {
		return fmt.Errorf("%w: coupon id is required", ErrCouponInvalidInput)
	}
	if err := s.coupons.Restore(ctx, id); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

// Validate resolves a code to a coupon redeemable by the user right now.
// Expired windows and prior redemptions are rejected here so callers can
// surface the reason before any money moves.
func (s *couponService) Validate(ctx context.Context, code, userID string) (Coupon, error) {
	if s == nil || s.coupons == nil {
		return Coupon{}, ErrCouponUnavailable
	}

	normalised, err := normaliseCouponCode(code)
	if err != nil {
		return Coupon{}, err
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Coupon{}, fmt.Errorf("%w: user id is required", ErrCouponInvalidInput)
	}

	coupon, err := s.coupons.FindByCode(ctx, normalised)
	if err != nil {
		return Coupon{}, s.translateRepoError(err)
	}
	if !coupon.ActiveAt(s.now()) {
		return Coupon{}, fmt.Errorf("%w: code %s", ErrCouponExpired, normalised)
	}
	if coupon.UsedByUser(uid) {
		return Coupon{}, fmt.Errorf("%w: coupon already redeemed", ErrCouponConflict)
	}
	return coupon, nil
}

// CheckUnused re-reads the redemption set right before it is grown. Inside a
// placement transaction this is the read that makes a concurrent double
// spend abort at commit.
func (s *couponService) CheckUnused(ctx context.Context, couponID, userID string) error {
	if s == nil || s.coupons == nil {
		return ErrCouponUnavailable
	}
	id := strings.TrimSpace(couponID)
	uid := strings.TrimSpace(userID)
	if id == "" || uid == "" {
		return fmt.Errorf("%w: coupon id and user id are required", ErrCouponInvalidInput)
	}
	if err := s.coupons.CheckUnused(ctx, id, uid); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

// MarkUsed records the redemption. Standalone the repository enforces the
// once-per-user rule in its own transaction; joined to a caller's transaction
// it only writes, with CheckUnused covering the read phase.
func (s *couponService) MarkUsed(ctx context.Context, couponID, userID string) error {
	if s == nil || s.coupons == nil {
		return ErrCouponUnavailable
	}
	id := strings.TrimSpace(couponID)
	uid := strings.TrimSpace(userID)
	if id == "" || uid == "" {
		return fmt.Errorf("%w: coupon id and user id are required", ErrCouponInvalidInput)
	}
	if err := s.coupons.MarkUsed(ctx, id, uid); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func normaliseCouponCode(code string) (string, error) {
	normalised := strings.ToUpper(strings.TrimSpace(code))
	if normalised == "" {
		return "", fmt.Errorf("%w: code is required", ErrCouponInvalidInput)
	}
	for _, r := range normalised {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '-' && r != '_' {
			return "", fmt.Errorf("%w: code may only contain letters, digits, hyphens and underscores", ErrCouponInvalidInput)
		}
	}
	return normalised, nil
}

func validateCouponAmount(amount int) error {
	if amount < 1 || amount > 100 {
		return fmt.Errorf("%w: amount must be a percentage between 1 and 100", ErrCouponInvalidInput)
	}
	return nil
}

func (s *couponService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCouponNotFound
		case repoErr.IsConflict():
			return ErrCouponConflict
		case repoErr.IsUnavailable():
			return ErrCouponUnavailable
		}
		return ErrCouponUnavailable
	}
	return ErrCouponUnavailable
}
