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

const cartCollection = "carts"

type cartLineDocument struct {
	ProductID  string `firestore:"productId"`
	Quantity   int64  `firestore:"quantity"`
	FinalPrice string `firestore:"finalPrice"`
}

type cartDocument struct {
	UserID    string             `firestore:"userId"`
	Lines     []cartLineDocument `firestore:"lines"`
	SubTotal  string             `firestore:"subTotal"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

// CartRepository persists per-user cart snapshots in Firestore.
type CartRepository struct {
	base     *pfirestore.BaseRepository[cartDocument]
	provider *pfirestore.Provider
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil)
	return &CartRepository{base: base, provider: provider}, nil
}

// UpsertCart writes the cart document. When expectedUpdate is provided the
// write carries a last-update-time precondition so concurrent edits surface
// as conflicts instead of lost updates.
func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart, expectedUpdate *time.Time) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	cartID := strings.TrimSpace(cart.ID)
	if cartID == "" {
		return domain.Cart{}, errors.New("cart repository: cart id is required")
	}
	if strings.TrimSpace(cart.UserID) == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	now := time.Now().UTC()
	createdAt := cart.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}

	cart.SubTotal = cart.ComputeSubTotal()
	doc := cartDocument{
		UserID:    strings.TrimSpace(cart.UserID),
		Lines:     encodeCartLines(cart.Lines),
		SubTotal:  encodeDecimal(cart.SubTotal),
		CreatedAt: createdAt,
		UpdatedAt: now,
	}

	// The precondition and the returned UpdatedAt both use the server-assigned
	// commit time, never the client-written updatedAt field. LastUpdateTime
	// compares against the former, so the two must not be mixed.
	var (
		result pfirestore.MutationResult
		err    error
	)
	if expectedUpdate != nil && !expectedUpdate.IsZero() {
		result, err = r.base.Update(ctx, cartID, []firestore.Update{
			{Path: "userId", Value: doc.UserID},
			{Path: "lines", Value: doc.Lines},
			{Path: "subTotal", Value: doc.SubTotal},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		}, firestore.LastUpdateTime(expectedUpdate.UTC()))
	} else {
		result, err = r.base.Set(ctx, cartID, doc)
	}
	if err != nil {
		return domain.Cart{}, err
	}

	cart.CreatedAt = createdAt
	cart.UpdatedAt = result.UpdateTime
	return cart, nil
}

// FindByUser loads the user's cart.
func (r *CartRepository) FindByUser(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, softDeletedError("carts.find_by_user")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("userId", "==", userID).Limit(1)
	})
	if err != nil {
		return domain.Cart{}, err
	}
	if len(docs) == 0 {
		return domain.Cart{}, softDeletedError("carts.find_by_user")
	}
	return decodeCart(docs[0].ID, docs[0].Data, docs[0].UpdateTime)
}

// ClearCart empties the cart lines, joining an in-flight transaction when present.
func (r *CartRepository) ClearCart(ctx context.Context, cartID string, clearedAt time.Time) error {
	if r == nil || r.provider == nil {
		return errors.New("cart repository not initialised")
	}
	cartID = strings.TrimSpace(cartID)
	if cartID == "" {
		return errors.New("cart repository: cart id is required")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}
	updates := []firestore.Update{
		{Path: "lines", Value: []cartLineDocument{}},
		{Path: "subTotal", Value: "0"},
		{Path: "updatedAt", Value: clearedAt.UTC()},
	}
	if tx, ok := pfirestore.TxFromContext(ctx); ok {
		return pfirestore.WrapError("carts.clear", tx.Update(client.Collection(cartCollection).Doc(cartID), updates))
	}
	_, err = r.base.Update(ctx, cartID, updates)
	return err
}

func encodeCartLines(lines []domain.CartLine) []cartLineDocument {
	docs := make([]cartLineDocument, 0, len(lines))
	for _, line := range lines {
		docs = append(docs, cartLineDocument{
			ProductID:  strings.TrimSpace(line.ProductID),
			Quantity:   line.Quantity,
			FinalPrice: encodeDecimal(line.FinalPrice),
		})
	}
	return docs
}

// decodeCart hydrates the cart. UpdatedAt comes from the snapshot's commit
// time so a later UpsertCart precondition matches what Firestore compares
// against; the stored updatedAt field is only a fallback.
func decodeCart(id string, doc cartDocument, updateTime time.Time) (domain.Cart, error) {
	lines := make([]domain.CartLine, 0, len(doc.Lines))
	for _, lineDoc := range doc.Lines {
		price, err := decodeDecimal(lineDoc.FinalPrice)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("cart %s: %w", id, err)
		}
		lines = append(lines, domain.CartLine{
			ProductID:  lineDoc.ProductID,
			Quantity:   lineDoc.Quantity,
			FinalPrice: price,
		})
	}
	subTotal, err := decodeDecimal(doc.SubTotal)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("cart %s: %w", id, err)
	}
	updatedAt := updateTime
	if updatedAt.IsZero() {
		updatedAt = doc.UpdatedAt
	}
	return domain.Cart{
		ID:        id,
		UserID:    doc.UserID,
		Lines:     lines,
		SubTotal:  subTotal,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: updatedAt,
	}, nil
}
