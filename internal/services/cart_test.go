package services

import (
	"context"
	"errors"
	"testing"

	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
)

type fakeProductGetter struct {
	products map[int]types.Product
}

func (f *fakeProductGetter) Get(_ context.Context, id int) (types.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return types.Product{}, store.ErrNotFound
	}
	return product, nil
}

type cartKey struct {
	userID    int
	productID int
}

type fakeCartRepository struct {
	rows     map[cartKey]int
	products map[int]types.Product
}

func newFakeCartRepository(products map[int]types.Product) *fakeCartRepository {
	return &fakeCartRepository{
		rows:     make(map[cartKey]int),
		products: products,
	}
}

func (f *fakeCartRepository) GetQuantity(_ context.Context, userID, productID int) (int, error) {
	qty, ok := f.rows[cartKey{userID, productID}]
	if !ok {
		return 0, store.ErrNotFound
	}
	return qty, nil
}

func (f *fakeCartRepository) Insert(_ context.Context, userID, productID, quantity int) error {
	f.rows[cartKey{userID, productID}] = quantity
	return nil
}

func (f *fakeCartRepository) UpdateQuantity(_ context.Context, userID, productID, quantity int) error {
	key := cartKey{userID, productID}
	if _, ok := f.rows[key]; !ok {
		return store.ErrNotFound
	}
	f.rows[key] = quantity
	return nil
}

func (f *fakeCartRepository) Delete(_ context.Context, userID, productID int) error {
	key := cartKey{userID, productID}
	if _, ok := f.rows[key]; !ok {
		return store.ErrNotFound
	}
	delete(f.rows, key)
	return nil
}

func (f *fakeCartRepository) ListItems(_ context.Context, userID int) ([]types.CartItem, error) {
	var items []types.CartItem
	for key, qty := range f.rows {
		if key.userID != userID {
			continue
		}
		product := f.products[key.productID]
		items = append(items, types.CartItem{
			ProductID:    key.productID,
			ProductName:  product.Name,
			ProductPrice: product.Price,
			Quantity:     qty,
			Subtotal:     product.Price * float64(qty),
		})
	}
	return items, nil
}

func (f *fakeCartRepository) Total(ctx context.Context, userID int) (float64, error) {
	items, _ := f.ListItems(ctx, userID)
	total := 0.0
	for _, item := range items {
		total += item.Subtotal
	}
	return total, nil
}

func (f *fakeCartRepository) Clear(_ context.Context, userID int) error {
	for key := range f.rows {
		if key.userID == userID {
			delete(f.rows, key)
		}
	}
	return nil
}

func TestCartAddAccumulates(t *testing.T) {
	products := map[int]types.Product{5: {ID: 5, Name: "Mug", Price: 9.5, Stock: 3}}
	carts := newFakeCartRepository(products)
	svc := NewCartService(carts, &fakeProductGetter{products: products})
	ctx := context.Background()

	if err := svc.Add(ctx, 1, 5, 2); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if qty := carts.rows[cartKey{1, 5}]; qty != 2 {
		t.Fatalf("expected quantity 2, got %d", qty)
	}

	// Cumulative 4 exceeds stock 3.
	if err := svc.Add(ctx, 1, 5, 2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if qty := carts.rows[cartKey{1, 5}]; qty != 2 {
		t.Fatalf("expected quantity unchanged at 2, got %d", qty)
	}

	if err := svc.Add(ctx, 1, 5, 1); err != nil {
		t.Fatalf("second add: %v", err)
	}
	if qty := carts.rows[cartKey{1, 5}]; qty != 3 {
		t.Fatalf("expected quantity 3, got %d", qty)
	}
}

func TestCartAddValidation(t *testing.T) {
	products := map[int]types.Product{5: {ID: 5, Stock: 3}}
	carts := newFakeCartRepository(products)
	svc := NewCartService(carts, &fakeProductGetter{products: products})
	ctx := context.Background()

	if err := svc.Add(ctx, 1, 5, 0); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for zero quantity, got %v", err)
	}
	if err := svc.Add(ctx, 1, 99, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing product, got %v", err)
	}
	if err := svc.Add(ctx, 1, 5, 4); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestCartUpdateOverwrites(t *testing.T) {
	products := map[int]types.Product{5: {ID: 5, Stock: 3}}
	carts := newFakeCartRepository(products)
	svc := NewCartService(carts, &fakeProductGetter{products: products})
	ctx := context.Background()

	if err := svc.Add(ctx, 1, 5, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Update(ctx, 1, 5, 3); err != nil {
		t.Fatalf("update: %v", err)
	}
	if qty := carts.rows[cartKey{1, 5}]; qty != 3 {
		t.Fatalf("expected quantity 3 after update, got %d", qty)
	}

	if err := svc.Update(ctx, 1, 5, 4); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if err := svc.Update(ctx, 2, 5, 1); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for absent row, got %v", err)
	}
}
