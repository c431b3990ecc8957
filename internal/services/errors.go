package services

import "errors"

// Domain errors recognized at the handler boundary. Validation errors
// are wrapped with context via fmt.Errorf("%w: ...", ErrValidation).
var (
	ErrValidation          = errors.New("validation failed")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrPaymentDeclined     = errors.New("payment failed")
	ErrForbidden           = errors.New("forbidden")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrStorageDisabled     = errors.New("object storage is not configured")
)
