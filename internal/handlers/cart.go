package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/minimart/apiserver/internal/services"
	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
)

// CartHandler provides HTTP handlers for the caller's cart.
type CartHandler struct {
	cart *services.CartService
}

// NewCartHandler constructs a handler with the provided service.
func NewCartHandler(cart *services.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

// CartRouter registers cart routes on the given router. Every route
// requires authentication.
func CartRouter(r chi.Router, handler *CartHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Post("/", handler.AddItem)
	r.Get("/", handler.ViewCart)
	r.Route("/{productID}", func(r chi.Router) {
		r.Put("/", handler.UpdateItem)
		r.Delete("/", handler.RemoveItem)
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.cart.Add(r.Context(), user.ID, req.ProductID, req.Quantity); err != nil {
		writeCartError(w, err, "Failed to add item to cart")
		return
	}

	writeJSON(w, http.StatusCreated, MessageResponse{Message: "Item added to cart"})
}

func (h *CartHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	items, err := h.cart.Items(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	total, err := h.cart.Total(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	totalItems := 0
	for _, item := range items {
		totalItems += item.Quantity
	}
	if items == nil {
		items = []types.CartItem{}
	}

	writeJSON(w, http.StatusOK, CartResponse{
		Items:       items,
		TotalAmount: total,
		TotalItems:  totalItems,
	})
}

func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	productID, err := parseCartProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CartUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.cart.Update(r.Context(), user.ID, productID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, services.ErrValidation):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrInsufficientStock):
			writeError(w, http.StatusBadRequest, "Not enough stock available")
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Item not found in cart")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to update cart item")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Cart item updated"})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	productID, err := parseCartProductID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.cart.Remove(r.Context(), user.ID, productID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Item not found in cart")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to remove cart item")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Item removed from cart"})
}

func writeCartError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, "Not enough stock available")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Product not found")
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

type CartItemRequest struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

type CartUpdateRequest struct {
	Quantity int `json:"quantity"`
}

// CartResponse is the cart view payload.
type CartResponse struct {
	Items       []types.CartItem `json:"items"`
	TotalAmount float64          `json:"total_amount"`
	TotalItems  int              `json:"total_items"`
}

func parseCartProductID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "productID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid product id")
	}
	return id, nil
}
