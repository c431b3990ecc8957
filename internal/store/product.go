package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/minimart/apiserver/types"
)

// ProductRepository handles persistence for catalog products.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, name, description, price, stock, category, image_url, created_at, updated_at`

func scanProduct(row interface{ Scan(...any) error }) (types.Product, error) {
	var product types.Product
	var imageURL sql.NullString
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.Stock,
		&product.Category,
		&imageURL,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return types.Product{}, err
	}
	product.ImageURL = imageURL.String
	return product, nil
}

func (r *ProductRepository) Get(ctx context.Context, id int) (types.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	const query = `
		INSERT INTO products (name, description, price, stock, category, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.Category,
		nullString(product.ImageURL),
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID); err != nil {
		return types.Product{}, err
	}
	return product, nil
}

// List returns a page of products matching the filter, plus the total
// count computed under the same filter. The sort field must already be
// validated by the caller; creation-time sorting is descending, the
// rest ascending.
func (r *ProductRepository) List(ctx context.Context, filter types.ProductFilter) ([]types.Product, int, error) {
	where, args := buildProductFilter(filter, "")

	countQuery := `SELECT COUNT(1) FROM products` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := fmt.Sprintf(" ORDER BY %s", filter.SortBy)
	if filter.SortBy == "created_at" {
		order += " DESC"
	}

	listQuery := fmt.Sprintf(
		`SELECT %s FROM products%s%s OFFSET $%d LIMIT $%d`,
		productColumns, where, order, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Offset, filter.Limit)

	return r.queryProducts(ctx, listQuery, args, total, filter.Limit)
}

// Search matches the keyword case-insensitively against name or
// description, newest products first.
func (r *ProductRepository) Search(ctx context.Context, keyword string, offset, limit int) ([]types.Product, int, error) {
	pattern := "%" + keyword + "%"

	const countQuery = `
		SELECT COUNT(1) FROM products
		WHERE name ILIKE $1 OR description ILIKE $1`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE name ILIKE $1 OR description ILIKE $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`, productColumns)

	return r.queryProducts(ctx, listQuery, []any{pattern, offset, limit}, total, limit)
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args []any, total, limit int) ([]types.Product, int, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]types.Product, 0, limit)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Update applies the non-nil fields of the patch and refreshes
// updated_at. An empty patch succeeds without touching the row, but
// still reports ErrNotFound for a missing product.
func (r *ProductRepository) Update(ctx context.Context, id int, patch types.ProductPatch) error {
	if patch.Empty() {
		const query = `SELECT 1 FROM products WHERE id = $1`
		var one int
		if err := r.db.QueryRowContext(ctx, query, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return nil
	}

	assignments := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(column string, value any) {
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Price != nil {
		add("price", *patch.Price)
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.ImageURL != nil {
		add("image_url", *patch.ImageURL)
	}
	add("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE products SET %s WHERE id = $%d`,
		strings.Join(assignments, ", "), len(args),
	)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the product. Cart rows referencing it cascade at the
// schema level; historical order items are untouched.
func (r *ProductRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM products WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func buildProductFilter(filter types.ProductFilter, prefix string) (string, []any) {
	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)

	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("%scategory = $%d", prefix, len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conditions = append(conditions, fmt.Sprintf("%sprice >= $%d", prefix, len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conditions = append(conditions, fmt.Sprintf("%sprice <= $%d", prefix, len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
