package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/soukly/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: cart repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to missing dependencies or backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartNotFound indicates the requested cart or cart line does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartItemExists indicates the product is already in the cart.
var ErrCartItemExists = errors.New("cart service: product already in cart")

// ErrCartInsufficientStock indicates the requested quantity exceeds available stock.
var ErrCartInsufficientStock = errors.New("cart service: insufficient stock")

// CartServiceDeps wires the repositories for cart operations.
type CartServiceDeps struct {
	Carts       repositories.CartRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return "crt_" + ulid.Make().String() }
	}

	service := &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}
	return service, nil
}

// GetCart loads the cart for the user, creating an empty one when absent.
func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.FindByUser(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			saved, err := s.carts.UpsertCart(ctx, s.newCart(uid), nil)
			if err != nil {
				return Cart{}, s.translateRepoError(err)
			}
			return saved, nil
		}
		return Cart{}, s.translateRepoError(err)
	}
	return cart, nil
}

// AddItem appends a product line with the price locked at this moment.
// Adding a product that is already in the cart is a conflict.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	if product.Stock() < cmd.Quantity {
		return Cart{}, fmt.Errorf("%w: product %s has %d units available", ErrCartInsufficientStock, productID, product.Stock())
	}

	cart, exists, err := s.loadOrNewCart(ctx, uid)
	if err != nil {
		return Cart{}, err
	}
	if cart.LineIndex(productID) >= 0 {
		return Cart{}, fmt.Errorf("%w: product %s", ErrCartItemExists, productID)
	}

	cart.Lines = append(cart.Lines, CartLine{
		ProductID:  productID,
		Quantity:   cmd.Quantity,
		FinalPrice: product.FinalPrice(),
	})

	saved, err := s.saveCart(ctx, cart, exists)
	if err != nil {
		return Cart{}, err
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"userID":    uid,
		"productID": productID,
		"quantity":  cmd.Quantity,
	})
	return saved, nil
}

// UpdateQuantity replaces the quantity on an existing line. The locked-in
// price does not change.
func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}
	if cmd.Quantity <= 0 {
		return Cart{}, fmt.Errorf("%w: quantity must be positive", ErrCartInvalidInput)
	}

	cart, err := s.carts.FindByUser(ctx, uid)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	idx := cart.LineIndex(productID)
	if idx < 0 {
		return Cart{}, fmt.Errorf("%w: product %s is not in the cart", ErrCartNotFound, productID)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	if product.Stock() < cmd.Quantity {
		return Cart{}, fmt.Errorf("%w: product %s has %d units available", ErrCartInsufficientStock, productID, product.Stock())
	}

	cart.Lines[idx].Quantity = cmd.Quantity

	return s.saveCart(ctx, cart, true)
}

// RemoveItem drops one line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, userID, productID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return Cart{}, fmt.Errorf("%w: user id and product id are required", ErrCartInvalidInput)
	}

	cart, err := s.carts.FindByUser(ctx, uid)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	idx := cart.LineIndex(pid)
	if idx < 0 {
		return Cart{}, fmt.Errorf("%w: product %s is not in the cart", ErrCartNotFound, pid)
	}

	cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)

	return s.saveCart(ctx, cart, true)
}

// ClearCart empties the cart, leaving the snapshot document in place.
func (s *cartService) ClearCart(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.carts == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.FindByUser(ctx, uid)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	if err := s.carts.ClearCart(ctx, cart.ID, s.now()); err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	cart.Lines = nil
	cart.SubTotal = cart.ComputeSubTotal()
	cart.UpdatedAt = s.now()
	return cart, nil
}

func (s *cartService) newCart(userID string) Cart {
	now := s.now()
	return Cart{
		ID:        s.newID(),
		UserID:    userID,
		Lines:     nil,
		SubTotal:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *cartService) loadOrNewCart(ctx context.Context, userID string) (Cart, bool, error) {
	cart, err := s.carts.FindByUser(ctx, userID)
	if err != nil {
		if isRepoNotFound(err) {
			return s.newCart(userID), false, nil
		}
		return Cart{}, false, s.translateRepoError(err)
	}
	return cart, true, nil
}

func (s *cartService) saveCart(ctx context.Context, cart Cart, exists bool) (Cart, error) {
	var expected *time.Time
	if exists {
		previous := cart.UpdatedAt
		expected = &previous
	}
	cart.UpdatedAt = s.now()
	cart.SubTotal = cart.ComputeSubTotal()

	saved, err := s.carts.UpsertCart(ctx, cart, expected)
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return saved, nil
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
