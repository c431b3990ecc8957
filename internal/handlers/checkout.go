package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/minimart/apiserver/internal/services"
)

// CheckoutHandler provides the checkout endpoint.
type CheckoutHandler struct {
	checkout *services.CheckoutService
}

// NewCheckoutHandler constructs a handler with the provided service.
func NewCheckoutHandler(checkout *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// CheckoutRouter registers the checkout route on the given router.
func CheckoutRouter(r chi.Router, handler *CheckoutHandler, authMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Post("/", handler.Checkout)
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.ShippingAddress == "" || req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "Shipping address and payment method are required")
		return
	}

	order, err := h.checkout.Checkout(r.Context(), user.ID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "Cart is empty")
		case errors.Is(err, services.ErrPaymentDeclined):
			writeError(w, http.StatusBadRequest, "Payment failed. Please try again.")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to place order")
		}
		return
	}

	writeJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:     order.ID,
		Message:     "Order placed successfully",
		TotalAmount: order.TotalAmount,
	})
}

type CheckoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type CheckoutResponse struct {
	OrderID     int     `json:"order_id"`
	Message     string  `json:"message"`
	TotalAmount float64 `json:"total_amount"`
}
