package services

import (
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minimart/apiserver/internal/storage"
	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	List(ctx context.Context, filter types.ProductFilter) ([]types.Product, int, error)
	Search(ctx context.Context, keyword string, offset, limit int) ([]types.Product, int, error)
	Update(ctx context.Context, id int, patch types.ProductPatch) error
	Delete(ctx context.Context, id int) error
}

// CatalogService encapsulates product use-cases. The storage backend is
// optional; image operations fail with ErrStorageDisabled without one.
type CatalogService struct {
	repo    ProductRepository
	storage *storage.Storage
	log     *logrus.Logger
}

func NewCatalogService(repo ProductRepository, store *storage.Storage, log *logrus.Logger) *CatalogService {
	return &CatalogService{repo: repo, storage: store, log: log}
}

func (s *CatalogService) Get(ctx context.Context, id int) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if product.Price < 0 {
		return types.Product{}, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if product.Stock < 0 {
		return types.Product{}, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return s.repo.Create(ctx, product)
}

// List validates the filter and returns a page of products plus the
// total count under the same filter.
func (s *CatalogService) List(ctx context.Context, filter types.ProductFilter) ([]types.Product, int, error) {
	switch filter.SortBy {
	case "":
		filter.SortBy = "created_at"
	case "name", "price", "created_at":
	default:
		return nil, 0, fmt.Errorf("%w: invalid sort_by field, must be one of: name, price, created_at", ErrValidation)
	}

	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, 0, fmt.Errorf("%w: min_price cannot be greater than max_price", ErrValidation)
	}

	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	return s.repo.List(ctx, filter)
}

func (s *CatalogService) Search(ctx context.Context, keyword string, offset, limit int) ([]types.Product, int, error) {
	if keyword == "" {
		return nil, 0, fmt.Errorf("%w: search keyword is required", ErrValidation)
	}
	limit = clampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	return s.repo.Search(ctx, keyword, offset, limit)
}

// Update applies the supplied fields only, revalidating price and stock.
// An empty patch is a successful no-op for an existing product.
func (s *CatalogService) Update(ctx context.Context, id int, patch types.ProductPatch) (types.Product, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return types.Product{}, fmt.Errorf("%w: price cannot be negative", ErrValidation)
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return types.Product{}, fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		return types.Product{}, err
	}
	return s.repo.Get(ctx, id)
}

// Delete removes the product and, when one is attached, its stored
// image. A failed object delete leaves an orphan and is only logged.
func (s *CatalogService) Delete(ctx context.Context, id int) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.storage != nil && product.ImageURL != "" {
		if err := s.storage.Delete(ctx, product.ImageURL); err != nil {
			s.log.WithField("product_id", id).WithError(err).Warn("failed to delete product image object")
		}
	}
	return nil
}

// AttachImage uploads the image to object storage and points the
// product's image reference at the stored object.
func (s *CatalogService) AttachImage(ctx context.Context, id int, filename string, data io.Reader, size int64, contentType string) (types.Product, error) {
	if s.storage == nil {
		return types.Product{}, ErrStorageDisabled
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return types.Product{}, err
	}

	key := fmt.Sprintf("products/%d/%s", id, path.Base(filename))
	if err := s.storage.Put(ctx, key, data, size, contentType); err != nil {
		return types.Product{}, err
	}

	return s.Update(ctx, id, types.ProductPatch{ImageURL: &key})
}

// OpenImage opens a reader for the product's stored image.
func (s *CatalogService) OpenImage(ctx context.Context, id int) (io.ReadCloser, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.ImageURL == "" {
		return nil, store.ErrNotFound
	}
	return s.storage.Get(ctx, product.ImageURL)
}

func clampLimit(limit int) int {
	if limit < 1 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
