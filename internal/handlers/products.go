package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/soukly/api/internal/platform/httpx"
	"github.com/soukly/api/internal/platform/pagination"
	"github.com/soukly/api/internal/services"
)

const (
	defaultProductPageSize = 20
	maxProductPageSize     = 100

	productIDPrefix = "prd_"
)

// ProductHandlers exposes the public, read-only catalog endpoints.
type ProductHandlers struct {
	products services.ProductService
}

// NewProductHandlers constructs handlers for the public catalog surface.
func NewProductHandlers(products services.ProductService) *ProductHandlers {
	return &ProductHandlers{products: products}
}

// Routes wires the /products endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listProducts)
	r.Get("/{productKey}", h.getProduct)
}

func (h *ProductHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultProductPageSize,
		MaxPageSize:     maxProductPageSize,
	})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.ProductListQuery{
		Search:    strings.TrimSpace(r.URL.Query().Get("search")),
		PageSize:  params.PageSize,
		PageToken: params.PageToken,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("in_stock")); raw != "" {
		inStock, parseErr := strconv.ParseBool(raw)
		if parseErr != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "in_stock must be a boolean", http.StatusBadRequest))
			return
		}
		query.InStockOnly = inStock
	}

	page, err := h.products.List(ctx, query)
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product))
	}

	writeJSONResponse(w, http.StatusOK, productListResponse{
		Items:         items,
		NextPageToken: page.NextCursor,
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.products == nil {
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
		return
	}

	key := strings.TrimSpace(chi.URLParam(r, "productKey"))
	if key == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "product id or slug is required", http.StatusBadRequest))
		return
	}

	var (
		product services.Product
		err     error
	)
	if strings.HasPrefix(key, productIDPrefix) {
		product, err = h.products.GetByID(ctx, key)
	} else {
		product, err = h.products.GetBySlug(ctx, key)
	}
	if err != nil {
		writeProductError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, productResponse{Product: buildProductPayload(product)})
}

func writeProductError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrProductInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductConflict):
		httpx.WriteError(ctx, w, httpx.NewError("product_conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrProductUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("product_service_unavailable", "product service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("product_error", "failed to process product request", http.StatusInternalServerError))
	}
}

type productListResponse struct {
	Items         []productPayload `json:"items"`
	NextPageToken string           `json:"next_page_token,omitempty"`
}

type productResponse struct {
	Product productPayload `json:"product"`
}

type productPayload struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description,omitempty"`
	MainImage   string          `json:"main_image,omitempty"`
	SubImages   []string        `json:"sub_images,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Discount    int             `json:"discount,omitempty"`
	FinalPrice  decimal.Decimal `json:"final_price"`
	Stock       int64           `json:"stock"`
	Sold        int64           `json:"sold"`
	CreatedAt   string          `json:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty"`
	DeletedAt   string          `json:"deleted_at,omitempty"`
}

func buildProductPayload(product services.Product) productPayload {
	return productPayload{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Description: product.Description,
		MainImage:   product.MainImage,
		SubImages:   product.SubImages,
		Price:       product.Price,
		Discount:    product.Discount,
		FinalPrice:  product.FinalPrice(),
		Stock:       product.Stock(),
		Sold:        product.Sold,
		CreatedAt:   formatTime(product.CreatedAt),
		UpdatedAt:   formatTime(product.UpdatedAt),
		DeletedAt:   formatTimePointer(product.DeletedAt),
	}
}
