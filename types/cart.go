package types

// CartItem is one cart row joined with live product data.
// Subtotal is price multiplied by quantity at read time.
type CartItem struct {
	ProductID    int     `json:"product_id" db:"product_id"`
	ProductName  string  `json:"product_name" db:"product_name"`
	ProductPrice float64 `json:"product_price" db:"product_price"`
	Quantity     int     `json:"quantity" db:"quantity"`
	Subtotal     float64 `json:"subtotal" db:"subtotal"`
	ImageURL     string  `json:"image_url" db:"image_url"`
}
