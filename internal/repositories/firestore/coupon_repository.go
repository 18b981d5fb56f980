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
	couponCollection = "coupons"

	defaultCouponPageSize = 50
	maxCouponPageSize     = 100
)

type couponDocument struct {
	Code      string     `firestore:"code"`
	Amount    int        `firestore:"amount"`
	FromDate  time.Time  `firestore:"fromDate"`
	ToDate    time.Time  `firestore:"toDate"`
	UsedBy    []string   `firestore:"usedBy"`
	CreatedBy string     `firestore:"createdBy,omitempty"`
	UpdatedBy string     `firestore:"updatedBy,omitempty"`
	CreatedAt time.Time  `firestore:"createdAt"`
	UpdatedAt time.Time  `firestore:"updatedAt"`
	DeletedAt *time.Time `firestore:"deletedAt"`
	DeletedBy string     `firestore:"deletedBy,omitempty"`
}

// CouponRepository persists coupons and their redemption sets in Firestore.
type CouponRepository struct {
	base     *pfirestore.BaseRepository[couponDocument]
	provider *pfirestore.Provider
}

var _ repositories.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository constructs a Firestore-backed coupon repository.
func NewCouponRepository(provider *pfirestore.Provider) (*CouponRepository, error) {
	if provider == nil {
		return nil, errors.New("coupon repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[couponDocument](provider, couponCollection, nil, nil)
	return &CouponRepository{base: base, provider: provider}, nil
}

// Insert creates the coupon document, failing on a taken ID.
func (r *CouponRepository) Insert(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	doc, err := encodeCoupon(coupon)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, coupon.ID)
	if err != nil {
		return err
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("coupons.insert", err)
}

// Update replaces the coupon document.
func (r *CouponRepository) Update(ctx context.Context, coupon domain.Coupon) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	doc, err := encodeCoupon(coupon)
	if err != nil {
		return err
	}
	_, err = r.base.Set(ctx, coupon.ID, doc)
	return err
}

// FindByID loads a coupon; soft-deleted documents read as missing.
func (r *CouponRepository) FindByID(ctx context.Context, couponID string) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(couponID))
	if err != nil {
		return domain.Coupon{}, err
	}
	if doc.Data.DeletedAt != nil {
		return domain.Coupon{}, softDeletedError("coupons.get")
	}
	return decodeCoupon(doc.ID, doc.Data), nil
}

// FindByCode resolves a coupon by its unique uppercase code.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (domain.Coupon, error) {
	if r == nil || r.base == nil {
		return domain.Coupon{}, errors.New("coupon repository not initialised")
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Coupon{}, softDeletedError("coupons.code")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("code", "==", code).Limit(1)
	})
	if err != nil {
		return domain.Coupon{}, err
	}
	if len(docs) == 0 || docs[0].Data.DeletedAt != nil {
		return domain.Coupon{}, softDeletedError("coupons.code")
	}
	return decodeCoupon(docs[0].ID, docs[0].Data), nil
}

// List returns a page of live coupons ordered by creation time descending.
func (r *CouponRepository) List(ctx context.Context, filter repositories.CouponListFilter) (domain.CursorPage[domain.Coupon], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Coupon]{}, errors.New("coupon repository not initialised")
	}

	cursor, err := decodePageToken(filter.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Coupon]{}, pfirestore.WrapError("coupons.list", err)
	}
	pageSize := normalizePageSize(filter.PageSize, defaultCouponPageSize, maxCouponPageSize)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("deletedAt", "==", nil)
		if filter.From != nil {
			q = q.Where("fromDate", ">=", filter.From.UTC())
		}
		if filter.To != nil {
			q = q.Where("toDate", "<=", filter.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if cursor.DocID != "" {
			q = q.StartAfter(cursor.CreatedAt, cursor.DocID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Coupon]{}, err
	}

	page := domain.CursorPage[domain.Coupon]{}
	search := strings.ToUpper(strings.TrimSpace(filter.Search))
	for i, doc := range docs {
		if i == pageSize {
			page.NextCursor = encodePageToken(pageCursor{CreatedAt: doc.Data.CreatedAt, DocID: doc.ID})
			break
		}
		if search != "" && !strings.Contains(doc.Data.Code, search) {
			continue
		}
		page.Items = append(page.Items, decodeCoupon(doc.ID, doc.Data))
	}
	return page, nil
}

// SoftDelete marks the coupon deleted.
func (r *CouponRepository) SoftDelete(ctx context.Context, couponID, deletedBy string, deletedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(couponID), []firestore.Update{
		{Path: "deletedAt", Value: deletedAt.UTC()},
		{Path: "deletedBy", Value: strings.TrimSpace(deletedBy)},
		{Path: "updatedAt", Value: deletedAt.UTC()},
	})
	return err
}

// Restore clears the soft-delete markers.
func (r *CouponRepository) Restore(ctx context.Context, couponID string) error {
	if r == nil || r.base == nil {
		return errors.New("coupon repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(couponID), []firestore.Update{
		{Path: "deletedAt", Value: nil},
		{Path: "deletedBy", Value: ""},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

// CheckUnused loads the coupon and rejects a second redemption by the same
// user with a conflict. Read-only, so inside a transaction it belongs in the
// read phase, ahead of every buffered write.
func (r *CouponRepository) CheckUnused(ctx context.Context, couponID, userID string) error {
	if r == nil || r.provider == nil {
		return errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	userID = strings.TrimSpace(userID)
	if couponID == "" || userID == "" {
		return errors.New("coupon repository: coupon id and user id are required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	ref := client.Collection(couponCollection).Doc(couponID)
	var snap *firestore.DocumentSnapshot
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		snap, err = tx.Get(ref)
	} else {
		snap, err = ref.Get(ctx)
	}
	if err != nil {
		return pfirestore.WrapError("coupons.check_unused", err)
	}
	return couponUnusedBy(snap, userID)
}

// MarkUsed appends the user to the redemption set. Joined to a transaction it
// buffers only the ArrayUnion write; the uniqueness read must already have
// happened via CheckUnused, because Firestore forbids reads after writes.
func (r *CouponRepository) MarkUsed(ctx context.Context, couponID, userID string) error {
	if r == nil || r.provider == nil {
		return errors.New("coupon repository not initialised")
	}
	couponID = strings.TrimSpace(couponID)
	userID = strings.TrimSpace(userID)
	if couponID == "" || userID == "" {
		return errors.New("coupon repository: coupon id and user id are required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	ref := client.Collection(couponCollection).Doc(couponID)
	updates := []firestore.Update{
		{Path: "usedBy", Value: firestore.ArrayUnion(userID)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}

	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("coupons.mark_used", tx.Update(ref, updates))
	}

	return pfirestore.RunTransaction(ctx, client, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return pfirestore.WrapError("coupons.mark_used", err)
		}
		if err := couponUnusedBy(snap, userID); err != nil {
			return err
		}
		return pfirestore.WrapError("coupons.mark_used", tx.Update(ref, updates))
	})
}

func couponUnusedBy(snap *firestore.DocumentSnapshot, userID string) error {
	var doc couponDocument
	if err := snap.DataTo(&doc); err != nil {
		return err
	}
	if doc.DeletedAt != nil {
		return softDeletedError("coupons.mark_used")
	}
	for _, used := range doc.UsedBy {
		if used == userID {
			return pfirestore.ConflictError("coupons.mark_used",
				fmt.Errorf("coupon %s already redeemed by user %s", snap.Ref.ID, userID))
		}
	}
	return nil
}

func encodeCoupon(coupon domain.Coupon) (couponDocument, error) {
	if strings.TrimSpace(coupon.ID) == "" {
		return couponDocument{}, errors.New("coupon repository: coupon id is required")
	}
	now := time.Now().UTC()
	createdAt := coupon.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := coupon.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = now
	}
	usedBy := coupon.UsedBy
	if usedBy == nil {
		usedBy = []string{}
	}
	return couponDocument{
		Code:      strings.ToUpper(strings.TrimSpace(coupon.Code)),
		Amount:    coupon.Amount,
		FromDate:  coupon.FromDate.UTC(),
		ToDate:    coupon.ToDate.UTC(),
		UsedBy:    append([]string(nil), usedBy...),
		CreatedBy: strings.TrimSpace(coupon.CreatedBy),
		UpdatedBy: strings.TrimSpace(coupon.UpdatedBy),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		DeletedAt: coupon.DeletedAt,
		DeletedBy: strings.TrimSpace(coupon.DeletedBy),
	}, nil
}

func decodeCoupon(id string, doc couponDocument) domain.Coupon {
	return domain.Coupon{
		ID:        id,
		Code:      doc.Code,
		Amount:    doc.Amount,
		FromDate:  doc.FromDate,
		ToDate:    doc.ToDate,
		UsedBy:    append([]string(nil), doc.UsedBy...),
		CreatedBy: doc.CreatedBy,
		UpdatedBy: doc.UpdatedBy,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		DeletedAt: doc.DeletedAt,
		DeletedBy: doc.DeletedBy,
	}
}
