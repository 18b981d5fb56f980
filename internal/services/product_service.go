package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	domain "github.com/soukly/api/internal/domain"
	pstorage "github.com/soukly/api/internal/platform/storage"
	"github.com/soukly/api/internal/repositories"
)

var (
	errProductRepositoryRequired = errors.New("product service: product repository is required")
	errProductClockRequired      = errors.New("product service: clock is required")
)

const (
	maxProductImageSize    = int64(10 * 1024 * 1024) // 10 MiB
	productUploadExpiresIn = 15 * time.Minute
)

var productImageContentTypes = []string{"image/png", "image/jpeg", "image/webp"}

var slugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// ErrProductInvalidInput indicates the caller supplied invalid input.
var ErrProductInvalidInput = errors.New("product service: invalid input")

// ErrProductUnavailable indicates the product service cannot fulfil the request.
var ErrProductUnavailable = errors.New("product service: unavailable")

// ErrProductNotFound indicates the requested product does not exist.
var ErrProductNotFound = errors.New("product service: not found")

// ErrProductConflict indicates a duplicate slug or a concurrent modification.
var ErrProductConflict = errors.New("product service: conflict")

// AssetURLSigner issues signed upload and download URLs for stored assets.
type AssetURLSigner interface {
	SignedURL(ctx context.Context, bucket, object string, opts pstorage.SignedURLOptions) (pstorage.SignedURLResult, error)
}

// ProductServiceDeps wires the repository and storage dependencies.
type ProductServiceDeps struct {
	Products    repositories.ProductRepository
	Storage     AssetURLSigner
	Bucket      string
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type productService struct {
	products  repositories.ProductRepository
	storage   AssetURLSigner
	bucket    string
	sanitizer *bluemonday.Policy
	newID     func() string
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
}

// NewProductService constructs a ProductService enforcing dependency validation.
func NewProductService(deps ProductServiceDeps) (ProductService, error) {
	if deps.Products == nil {
		return nil, errProductRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errProductClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "prd_" + ulid.Make().String() }
	}

	service := &productService{
		products:  deps.Products,
		storage:   deps.Storage,
		bucket:    strings.TrimSpace(deps.Bucket),
		sanitizer: bluemonday.StrictPolicy(),
		newID:     idGen,
		now:       func() time.Time { return deps.Clock().UTC() },
		logger:    logger,
	}
	return service, nil
}

// Create stores a new catalog entry with a slug derived from the name.
func (s *productService) Create(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrProductUnavailable
	}

	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return Product{}, fmt.Errorf("%w: name is required", ErrProductInvalidInput)
	}
	if cmd.Price.IsNegative() || cmd.Price.IsZero() {
		return Product{}, fmt.Errorf("%w: price must be positive", ErrProductInvalidInput)
	}
	if cmd.Quantity < 0 {
		return Product{}, fmt.Errorf("%w: quantity must not be negative", ErrProductInvalidInput)
	}

	slug := slugify(name)
	if slug == "" {
		return Product{}, fmt.Errorf("%w: name yields an empty slug", ErrProductInvalidInput)
	}
	if _, err := s.products.FindBySlug(ctx, slug); err == nil {
		return Product{}, fmt.Errorf("%w: slug %s already exists", ErrProductConflict, slug)
	} else if !isRepoNotFound(err) {
		return Product{}, s.translateRepoError(err)
	}

	now := s.now()
	product := Product{
		ID:          s.newID(),
		Name:        name,
		Slug:        slug,
		Description: s.sanitizer.Sanitize(cmd.Description),
		MainImage:   strings.TrimSpace(cmd.ImagePath),
		Price:       cmd.Price,
		Quantity:    cmd.Quantity,
		CreatedBy:   cmd.ActorID,
		UpdatedBy:   cmd.ActorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Insert(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "product.created", map[string]any{
		"productID": product.ID,
		"slug":      product.Slug,
	})
	return product, nil
}

// Update patches an existing product. A renamed product gets a fresh slug.
func (s *productService) Update(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrProductUnavailable
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if cmd.Name == nil && cmd.Description == nil && cmd.Price == nil && cmd.Quantity == nil && cmd.ImagePath == nil {
		return Product{}, fmt.Errorf("%w: nothing to update", ErrProductInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	if cmd.Name != nil {
		name := strings.TrimSpace(*cmd.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name must not be empty", ErrProductInvalidInput)
		}
		slug := slugify(name)
		if slug != product.Slug {
			if existing, err := s.products.FindBySlug(ctx, slug); err == nil && existing.ID != product.ID {
				return Product{}, fmt.Errorf("%w: slug %s already exists", ErrProductConflict, slug)
			} else if err != nil && !isRepoNotFound(err) {
				return Product{}, s.translateRepoError(err)
			}
		}
		product.Name = name
		product.Slug = slug
	}
	if cmd.Description != nil {
		product.Description = s.sanitizer.Sanitize(*cmd.Description)
	}
	if cmd.Price != nil {
		if cmd.Price.IsNegative() || cmd.Price.IsZero() {
			return Product{}, fmt.Errorf("%w: price must be positive", ErrProductInvalidInput)
		}
		product.Price = *cmd.Price
	}
	if cmd.Quantity != nil {
		if *cmd.Quantity < product.Sold {
			return Product{}, fmt.Errorf("%w: quantity must not drop below units already sold", ErrProductInvalidInput)
		}
		product.Quantity = *cmd.Quantity
	}
	if cmd.ImagePath != nil {
		product.MainImage = strings.TrimSpace(*cmd.ImagePath)
	}

	product.UpdatedBy = cmd.ActorID
	product.UpdatedAt = s.now()

	if err := s.products.Update(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *productService) GetByID(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrProductUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *productService) GetBySlug(ctx context.Context, slug string) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrProductUnavailable
	}
	normalised := slugify(slug)
	if normalised == "" {
		return Product{}, fmt.Errorf("%w: slug is required", ErrProductInvalidInput)
	}
	product, err := s.products.FindBySlug(ctx, normalised)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *productService) List(ctx context.Context, query ProductListQuery) (domain.CursorPage[domain.Product], error) {
	if s == nil || s.products == nil {
		return domain.CursorPage[domain.Product]{}, ErrProductUnavailable
	}
	page, err := s.products.List(ctx, repositories.ProductListFilter{
		Search:    strings.TrimSpace(query.Search),
		InStock:   query.InStockOnly,
		PageSize:  query.PageSize,
		PageToken: query.PageToken,
	})
	if err != nil {
		return domain.CursorPage[domain.Product]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *productService) SoftDelete(ctx context.Context, productID, actorID string) error {
	if s == nil || s.products == nil {
		return ErrProductUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.products.SoftDelete(ctx, id, actorID, s.now()); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *productService) Restore(ctx context.Context, productID string) error {
	if s == nil || s.products == nil {
		return ErrProductUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if err := s.products.Restore(ctx, id); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

// ImageUploadURL issues a short-lived signed PUT URL for a product image.
func (s *productService) ImageUploadURL(ctx context.Context, cmd ProductImageUploadCommand) (SignedUpload, error) {
	if s == nil || s.products == nil {
		return SignedUpload{}, ErrProductUnavailable
	}
	if s.storage == nil || s.bucket == "" {
		return SignedUpload{}, fmt.Errorf("%w: storage is not configured", ErrProductUnavailable)
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return SignedUpload{}, fmt.Errorf("%w: product id is required", ErrProductInvalidInput)
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return SignedUpload{}, s.translateRepoError(err)
	}

	purpose := pstorage.PurposeProductImage
	if cmd.Gallery {
		purpose = pstorage.PurposeProductGallery
	}
	object, err := pstorage.BuildObjectPath(purpose, pstorage.PathParams{
		ProductID: productID,
		UploadID:  ulid.Make().String(),
		FileName:  cmd.FileName,
	})
	if err != nil {
		return SignedUpload{}, fmt.Errorf("%w: %v", ErrProductInvalidInput, err)
	}

	result, err := s.storage.SignedURL(ctx, s.bucket, object, pstorage.SignedURLOptions{
		Upload: &pstorage.UploadOptions{
			Method:              "PUT",
			ContentType:         contentTypeForFile(cmd.FileName),
			AllowedContentTypes: productImageContentTypes,
			MaxSize:             maxProductImageSize,
			ExpiresIn:           productUploadExpiresIn,
		},
	})
	if err != nil {
		return SignedUpload{}, fmt.Errorf("%w: %v", ErrProductUnavailable, err)
	}

	return SignedUpload{
		UploadURL:  result.URL,
		ObjectPath: object,
		ExpiresAt:  result.ExpiresAt,
	}, nil
}

// slugify lowercases, strips diacritics and collapses everything else to
// single hyphens.
func slugify(input string) string {
	folded, _, err := transform.String(transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	), input)
	if err != nil {
		folded = input
	}
	value := strings.ToLower(strings.TrimSpace(folded))
	value = slugSanitizer.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

func contentTypeForFile(fileName string) string {
	name := strings.ToLower(strings.TrimSpace(fileName))
	switch {
	case strings.HasSuffix(name, ".png"):
		return "image/png"
	case strings.HasSuffix(name, ".webp"):
		return "image/webp"
	case strings.HasSuffix(name, ".jpg"), strings.HasSuffix(name, ".jpeg"):
		return "image/jpeg"
	}
	return "application/octet-stream"
}

func (s *productService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	if stockErr, ok := repositories.AsStockError(err); ok {
		switch stockErr.Code {
		case repositories.StockErrorProductNotFound:
			return ErrProductNotFound
		case repositories.StockErrorInvalidLine:
			return ErrProductInvalidInput
		}
		return ErrProductUnavailable
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrProductNotFound
		case repoErr.IsConflict():
			return ErrProductConflict
		case repoErr.IsUnavailable():
			return ErrProductUnavailable
		}
		return ErrProductUnavailable
	}
	return ErrProductUnavailable
}
