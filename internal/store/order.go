package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/minimart/apiserver/types"
)

// OrderRepository handles persistence for orders and their line items.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order, its line items, and the matching stock
// decrements in a single transaction. Any failure rolls back the whole
// sequence: no partial order, no partial stock decrement.
//
// Stock is decremented unconditionally, without re-checking sufficiency
// against concurrent purchases.
func (r *OrderRepository) Create(ctx context.Context, order types.Order, items []types.OrderItem) (types.Order, error) {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Order{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const orderQuery = `
		INSERT INTO orders (user_id, total_amount, shipping_address, payment_method, order_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		orderQuery,
		order.UserID,
		order.TotalAmount,
		order.ShippingAddress,
		order.PaymentMethod,
		order.Status,
		order.CreatedAt,
		order.UpdatedAt,
	).Scan(&order.ID); err != nil {
		return types.Order{}, err
	}

	const itemQuery = `
		INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity, subtotal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	const stockQuery = `
		UPDATE products SET stock = stock - $1, updated_at = $2 WHERE id = $3`

	for _, item := range items {
		if _, err := tx.ExecContext(
			ctx,
			itemQuery,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.ProductPrice,
			item.Quantity,
			item.Subtotal,
			now,
		); err != nil {
			return types.Order{}, err
		}
		if _, err := tx.ExecContext(ctx, stockQuery, item.Quantity, now, item.ProductID); err != nil {
			return types.Order{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

func (r *OrderRepository) Get(ctx context.Context, id int) (types.Order, error) {
	const query = `
		SELECT id, user_id, total_amount, shipping_address, payment_method, order_status, created_at, updated_at
		FROM orders
		WHERE id = $1`
	var order types.Order
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.ShippingAddress,
		&order.PaymentMethod,
		&order.Status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Order{}, ErrNotFound
		}
		return types.Order{}, err
	}
	return order, nil
}

// ListByUser returns the user's orders as summaries, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int) ([]types.OrderSummary, error) {
	const query = `
		SELECT id, created_at, total_amount, order_status
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]types.OrderSummary, 0)
	for rows.Next() {
		var summary types.OrderSummary
		if err := rows.Scan(
			&summary.ID,
			&summary.CreatedAt,
			&summary.TotalAmount,
			&summary.Status,
		); err != nil {
			return nil, err
		}
		orders = append(orders, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) Items(ctx context.Context, orderID int) ([]types.OrderItem, error) {
	const query = `
		SELECT id, order_id, product_id, product_name, product_price, quantity, subtotal
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]types.OrderItem, 0)
	for rows.Next() {
		var item types.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductPrice,
			&item.Quantity,
			&item.Subtotal,
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

// Cancel restores each line item's quantity onto the product's stock
// and marks the order cancelled, in one transaction. Stock restores
// targeting a product deleted since purchase match no row and are
// silently skipped.
func (r *OrderRepository) Cancel(ctx context.Context, orderID int) error {
	items, err := r.Items(ctx, orderID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	const restoreQuery = `
		UPDATE products SET stock = stock + $1, updated_at = $2 WHERE id = $3`
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, restoreQuery, item.Quantity, now, item.ProductID); err != nil {
			return err
		}
	}

	const statusQuery = `
		UPDATE orders SET order_status = $1, updated_at = $2 WHERE id = $3`
	result, err := tx.ExecContext(ctx, statusQuery, types.OrderStatusCancelled, now, orderID)
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

	return tx.Commit()
}
