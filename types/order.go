package types

import "time"

// Order status lifecycle. Orders are created as confirmed at checkout;
// shipped and delivered orders can no longer be cancelled.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// Order represents a completed checkout owned by one user.
// TotalAmount is a snapshot taken at purchase time, never recomputed.
type Order struct {
	// ID is the unique identifier of the order.
	ID int `json:"order_id" db:"id"`

	// UserID is the owning user.
	UserID int `json:"user_id" db:"user_id"`

	// TotalAmount is the sum of line item subtotals at purchase time.
	TotalAmount float64 `json:"total_amount" db:"total_amount"`

	// ShippingAddress is the delivery address supplied at checkout.
	ShippingAddress string `json:"shipping_address" db:"shipping_address"`

	// PaymentMethod names the payment method supplied at checkout.
	PaymentMethod string `json:"payment_method" db:"payment_method"`

	// Status is one of the OrderStatus constants.
	Status string `json:"order_status" db:"order_status"`

	// CreatedAt is the timestamp at which the order was placed.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent status change.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// OrderItem is one line of an order. Product name, price, quantity and
// subtotal are snapshots taken at purchase time and stay immutable even
// if the product is later edited or deleted.
type OrderItem struct {
	ID           int     `json:"id" db:"id"`
	OrderID      int     `json:"order_id" db:"order_id"`
	ProductID    int     `json:"product_id" db:"product_id"`
	ProductName  string  `json:"product_name" db:"product_name"`
	ProductPrice float64 `json:"product_price" db:"product_price"`
	Quantity     int     `json:"quantity" db:"quantity"`
	Subtotal     float64 `json:"subtotal" db:"subtotal"`
}

// OrderSummary is the order-history listing shape.
type OrderSummary struct {
	ID          int       `json:"order_id" db:"id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	TotalAmount float64   `json:"total_amount" db:"total_amount"`
	Status      string    `json:"order_status" db:"order_status"`
}
