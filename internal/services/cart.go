package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
)

// CartRepository defines persistence operations for cart rows.
type CartRepository interface {
	GetQuantity(ctx context.Context, userID, productID int) (int, error)
	Insert(ctx context.Context, userID, productID, quantity int) error
	UpdateQuantity(ctx context.Context, userID, productID, quantity int) error
	Delete(ctx context.Context, userID, productID int) error
	ListItems(ctx context.Context, userID int) ([]types.CartItem, error)
	Total(ctx context.Context, userID int) (float64, error)
	Clear(ctx context.Context, userID int) error
}

// ProductGetter is the slice of the product repository the cart needs
// for stock checks.
type ProductGetter interface {
	Get(ctx context.Context, id int) (types.Product, error)
}

// CartService encapsulates cart use-cases. Stock checks are a read
// followed by a separate write; concurrent writes to the same row can
// interleave, which the underlying design accepts.
type CartService struct {
	carts    CartRepository
	products ProductGetter
}

func NewCartService(carts CartRepository, products ProductGetter) *CartService {
	return &CartService{carts: carts, products: products}
}

// Add inserts a new cart row or increments an existing one. The
// requested quantity, cumulative with any existing row, must not
// exceed the product's current stock.
func (s *CartService) Add(ctx context.Context, userID, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrValidation)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > product.Stock {
		return ErrInsufficientStock
	}

	existing, err := s.carts.GetQuantity(ctx, userID, productID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return s.carts.Insert(ctx, userID, productID, quantity)
		}
		return err
	}

	if existing+quantity > product.Stock {
		return ErrInsufficientStock
	}
	return s.carts.UpdateQuantity(ctx, userID, productID, existing+quantity)
}

// Update overwrites the row's quantity after the same stock check.
// Fails with store.ErrNotFound when the row is absent.
func (s *CartService) Update(ctx context.Context, userID, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: quantity must be greater than 0", ErrValidation)
	}

	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return err
	}
	if quantity > product.Stock {
		return ErrInsufficientStock
	}

	return s.carts.UpdateQuantity(ctx, userID, productID, quantity)
}

func (s *CartService) Remove(ctx context.Context, userID, productID int) error {
	return s.carts.Delete(ctx, userID, productID)
}

func (s *CartService) Items(ctx context.Context, userID int) ([]types.CartItem, error) {
	return s.carts.ListItems(ctx, userID)
}

func (s *CartService) Total(ctx context.Context, userID int) (float64, error) {
	return s.carts.Total(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID int) error {
	return s.carts.Clear(ctx, userID)
}
