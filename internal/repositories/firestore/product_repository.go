package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/soukly/api/internal/domain"
	pfirestore "github.com/soukly/api/internal/platform/firestore"
	"github.com/soukly/api/internal/repositories"
)

const (
	productCollection    = "products"
	stockEventCollection = "stock_events"

	defaultProductPageSize = 50
	maxProductPageSize     = 100
)

type productDocument struct {
	Name        string     `firestore:"name"`
	Slug        string     `firestore:"slug"`
	Description string     `firestore:"description"`
	MainImage   string     `firestore:"mainImage"`
	SubImages   []string   `firestore:"subImages"`
	Price       string     `firestore:"price"`
	Discount    int        `firestore:"discount"`
	Quantity    int64      `firestore:"quantity"`
	Sold        int64      `firestore:"sold"`
	CreatedBy   string     `firestore:"createdBy,omitempty"`
	UpdatedBy   string     `firestore:"updatedBy,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt"`
	UpdatedAt   time.Time  `firestore:"updatedAt"`
	DeletedAt   *time.Time `firestore:"deletedAt"`
	DeletedBy   string     `firestore:"deletedBy,omitempty"`
}

type stockEventDocument struct {
	ProductID string    `firestore:"productId"`
	Delta     int64     `firestore:"delta"`
	Reason    string    `firestore:"reason"`
	OrderID   string    `firestore:"orderId,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

// ProductRepository persists catalog entries and their stock ledger in Firestore.
type ProductRepository struct {
	base     *pfirestore.BaseRepository[productDocument]
	provider *pfirestore.Provider
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil)
	return &ProductRepository{base: base, provider: provider}, nil
}

// Insert creates the product document, failing when the ID is already taken.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	doc, err := encodeProduct(product)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, product.ID)
	if err != nil {
		return err
	}
	_, err = ref.Create(ctx, doc)
	return pfirestore.WrapError("products.insert", err)
}

// Update replaces the product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	doc, err := encodeProduct(product)
	if err != nil {
		return err
	}
	_, err = r.base.Set(ctx, product.ID, doc)
	return err
}

// FindByID loads a product; soft-deleted documents read as missing.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.base.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	if doc.Data.DeletedAt != nil {
		return domain.Product{}, softDeletedError("products.get")
	}
	return decodeProduct(doc.ID, doc.Data)
}

// FindBySlug resolves a product by its unique slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Product{}, softDeletedError("products.slug")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 || docs[0].Data.DeletedAt != nil {
		return domain.Product{}, softDeletedError("products.slug")
	}
	return decodeProduct(docs[0].ID, docs[0].Data)
}

// List returns a page of live products ordered by creation time descending.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}

	cursor, err := decodePageToken(filter.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, pfirestore.WrapError("products.list", err)
	}
	pageSize := normalizePageSize(filter.PageSize, defaultProductPageSize, maxProductPageSize)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("deletedAt", "==", nil).
			OrderBy("createdAt", firestore.Desc).
			OrderBy(firestore.DocumentID, firestore.Desc)
		if cursor.DocID != "" {
			q = q.StartAfter(cursor.CreatedAt, cursor.DocID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	page := domain.CursorPage[domain.Product]{}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	for i, doc := range docs {
		if i == pageSize {
			page.NextCursor = encodePageToken(pageCursor{CreatedAt: doc.Data.CreatedAt, DocID: doc.ID})
			break
		}
		product, err := decodeProduct(doc.ID, doc.Data)
		if err != nil {
			return domain.CursorPage[domain.Product]{}, err
		}
		if search != "" && !strings.Contains(strings.ToLower(product.Name), search) {
			continue
		}
		if filter.InStock && product.Stock() <= 0 {
			continue
		}
		page.Items = append(page.Items, product)
	}
	return page, nil
}

// SoftDelete marks the product deleted without removing the ledger history.
func (r *ProductRepository) SoftDelete(ctx context.Context, productID, deletedBy string, deletedAt time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(productID), []firestore.Update{
		{Path: "deletedAt", Value: deletedAt.UTC()},
		{Path: "deletedBy", Value: strings.TrimSpace(deletedBy)},
		{Path: "updatedAt", Value: deletedAt.UTC()},
	})
	return err
}

// Restore clears the soft-delete markers.
func (r *ProductRepository) Restore(ctx context.Context, productID string) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	_, err := r.base.Update(ctx, strings.TrimSpace(productID), []firestore.Update{
		{Path: "deletedAt", Value: nil},
		{Path: "deletedBy", Value: ""},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	return err
}

// CommitStock moves units from available to sold for every line atomically.
func (r *ProductRepository) CommitStock(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
	return r.applyStockDelta(ctx, lines, orderID, reason, false)
}

// ReverseStock is the exact inverse of CommitStock.
func (r *ProductRepository) ReverseStock(ctx context.Context, lines []domain.StockLine, orderID, reason string) error {
	return r.applyStockDelta(ctx, lines, orderID, reason, true)
}

func (r *ProductRepository) applyStockDelta(ctx context.Context, lines []domain.StockLine, orderID, reason string, reverse bool) error {
	if r == nil || r.provider == nil {
		return errors.New("product repository not initialised")
	}
	normalized, err := normalizeStockLines(lines)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return nil
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return err
	}

	op := "products.commit_stock"
	if reverse {
		op = "products.reverse_stock"
	}

	err = pfirestore.RunWrite(ctx, client, func(txCtx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()

		// Transactions demand every read before the first write.
		docs := make([]productDocument, len(normalized))
		refs := make([]*firestore.DocumentRef, len(normalized))
		for i, line := range normalized {
			refs[i] = client.Collection(productCollection).Doc(line.ProductID)
			snap, err := tx.Get(refs[i])
			if err != nil {
				return repositories.NewStockError(repositories.StockErrorProductNotFound,
					fmt.Sprintf("product %s not found", line.ProductID), err)
			}
			if err := snap.DataTo(&docs[i]); err != nil {
				return err
			}
			if docs[i].DeletedAt != nil {
				return repositories.NewStockError(repositories.StockErrorProductNotFound,
					fmt.Sprintf("product %s not found", line.ProductID), nil)
			}
		}

		for i, line := range normalized {
			doc := docs[i]
			delta := line.Quantity
			if reverse {
				if doc.Sold < delta {
					return repositories.NewStockError(repositories.StockErrorInvalidLine,
						fmt.Sprintf("product %s: cannot reverse %d units, only %d sold", line.ProductID, delta, doc.Sold), nil)
				}
				doc.Quantity += delta
				doc.Sold -= delta
			} else {
				available := doc.Quantity - doc.Sold
				if available < delta {
					return repositories.NewStockError(repositories.StockErrorInsufficient,
						fmt.Sprintf("product %s: requested %d, available %d", line.ProductID, delta, available), nil)
				}
				doc.Quantity -= delta
				doc.Sold += delta
			}

			if err := tx.Update(refs[i], []firestore.Update{
				{Path: "quantity", Value: doc.Quantity},
				{Path: "sold", Value: doc.Sold},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}

			eventDelta := -delta
			if reverse {
				eventDelta = delta
			}
			eventRef := client.Collection(stockEventCollection).Doc("sev_" + ulid.Make().String())
			if err := tx.Create(eventRef, stockEventDocument{
				ProductID: line.ProductID,
				Delta:     eventDelta,
				Reason:    strings.TrimSpace(reason),
				OrderID:   strings.TrimSpace(orderID),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if stockErr, ok := repositories.AsStockError(err); ok {
			return stockErr
		}
		return pfirestore.WrapError(op, err)
	}
	return nil
}

func normalizeStockLines(lines []domain.StockLine) ([]domain.StockLine, error) {
	merged := make(map[string]int64, len(lines))
	order := make([]string, 0, len(lines))
	for _, line := range lines {
		id := strings.TrimSpace(line.ProductID)
		if id == "" || line.Quantity <= 0 {
			return nil, repositories.NewStockError(repositories.StockErrorInvalidLine,
				"stock lines require a product id and positive quantity", nil)
		}
		if _, seen := merged[id]; !seen {
			order = append(order, id)
		}
		merged[id] += line.Quantity
	}
	result := make([]domain.StockLine, 0, len(order))
	for _, id := range order {
		result = append(result, domain.StockLine{ProductID: id, Quantity: merged[id]})
	}
	return result, nil
}

func encodeProduct(product domain.Product) (productDocument, error) {
	if strings.TrimSpace(product.ID) == "" {
		return productDocument{}, errors.New("product repository: product id is required")
	}
	now := time.Now().UTC()
	createdAt := product.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := product.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = now
	}
	return productDocument{
		Name:        strings.TrimSpace(product.Name),
		Slug:        strings.TrimSpace(product.Slug),
		Description: product.Description,
		MainImage:   strings.TrimSpace(product.MainImage),
		SubImages:   append([]string(nil), product.SubImages...),
		Price:       encodeDecimal(product.Price),
		Discount:    product.Discount,
		Quantity:    product.Quantity,
		Sold:        product.Sold,
		CreatedBy:   strings.TrimSpace(product.CreatedBy),
		UpdatedBy:   strings.TrimSpace(product.UpdatedBy),
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		DeletedAt:   product.DeletedAt,
		DeletedBy:   strings.TrimSpace(product.DeletedBy),
	}, nil
}

func decodeProduct(id string, doc productDocument) (domain.Product, error) {
	price, err := decodeDecimal(doc.Price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, err)
	}
	return domain.Product{
		ID:          id,
		Name:        doc.Name,
		Slug:        doc.Slug,
		Description: doc.Description,
		MainImage:   doc.MainImage,
		SubImages:   append([]string(nil), doc.SubImages...),
		Price:       price,
		Discount:    doc.Discount,
		Quantity:    doc.Quantity,
		Sold:        doc.Sold,
		CreatedBy:   doc.CreatedBy,
		UpdatedBy:   doc.UpdatedBy,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		DeletedAt:   doc.DeletedAt,
		DeletedBy:   doc.DeletedBy,
	}, nil
}
