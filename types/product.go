package types

import "time"

// Product represents a catalog item available for purchase.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// Name is the human-readable product name.
	Name string `json:"name" db:"name"`

	// Description contains the full product description.
	Description string `json:"description" db:"description"`

	// Price is the unit price. Never negative.
	Price float64 `json:"price" db:"price"`

	// Stock is the available unit count. Never negative on create or
	// update; decremented by checkout and restored by cancellation.
	Stock int `json:"stock" db:"stock"`

	// Category is a free-form grouping label used for filtering.
	Category string `json:"category" db:"category"`

	// ImageURL is an optional reference to the product image, typically
	// an object storage key. Empty when no image has been attached.
	ImageURL string `json:"image_url" db:"image_url"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProductPatch is a partial update: only non-nil fields are applied.
// The set of possible assignments is statically known.
type ProductPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Stock       *int     `json:"stock"`
	Category    *string  `json:"category"`
	ImageURL    *string  `json:"image_url"`
}

// Empty reports whether the patch carries no assignments.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.Stock == nil && p.Category == nil && p.ImageURL == nil
}

// ProductFilter describes the listing query: optional category and price
// bounds, a sort field, and an offset/limit window.
type ProductFilter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	SortBy   string
	Offset   int
	Limit    int
}
