package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/minimart/apiserver/types"
)

// CartRepository handles persistence for cart rows. One row per
// (user, product) pair, enforced by a unique constraint.
type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetQuantity returns the quantity of the user's cart row for the
// product, or ErrNotFound when the pair is absent.
func (r *CartRepository) GetQuantity(ctx context.Context, userID, productID int) (int, error) {
	const query = `
		SELECT quantity FROM cart_items
		WHERE user_id = $1 AND product_id = $2`
	var quantity int
	err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(&quantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return quantity, nil
}

func (r *CartRepository) Insert(ctx context.Context, userID, productID, quantity int) error {
	now := time.Now()
	const query = `
		INSERT INTO cart_items (user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, userID, productID, quantity, now, now)
	return err
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, productID, quantity int) error {
	const query = `
		UPDATE cart_items SET quantity = $1, updated_at = $2
		WHERE user_id = $3 AND product_id = $4`
	result, err := r.db.ExecContext(ctx, query, quantity, time.Now(), userID, productID)
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

func (r *CartRepository) Delete(ctx context.Context, userID, productID int) error {
	const query = `
		DELETE FROM cart_items
		WHERE user_id = $1 AND product_id = $2`
	result, err := r.db.ExecContext(ctx, query, userID, productID)
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

// ListItems returns the user's cart joined with live product data,
// newest rows first.
func (r *CartRepository) ListItems(ctx context.Context, userID int) ([]types.CartItem, error) {
	const query = `
		SELECT c.product_id, p.name, p.price, c.quantity,
		       (p.price * c.quantity) AS subtotal, COALESCE(p.image_url, '')
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.CartItem, 0)
	for rows.Next() {
		var item types.CartItem
		if err := rows.Scan(
			&item.ProductID,
			&item.ProductName,
			&item.ProductPrice,
			&item.Quantity,
			&item.Subtotal,
			&item.ImageURL,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Total returns the sum of subtotals, zero for an empty cart.
func (r *CartRepository) Total(ctx context.Context, userID int) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(p.price * c.quantity), 0)
		FROM cart_items c
		JOIN products p ON c.product_id = p.id
		WHERE c.user_id = $1`
	var total float64
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// Clear deletes every cart row belonging to the user.
func (r *CartRepository) Clear(ctx context.Context, userID int) error {
	const query = `DELETE FROM cart_items WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}
