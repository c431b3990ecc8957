package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/minimart/apiserver/internal/services"
	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
)

// OrderHandler provides HTTP handlers for order history.
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler constructs a handler with the provided service.
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// OrderRouter registers order routes on the given router. Every route
// requires authentication.
func OrderRouter(r chi.Router, handler *OrderHandler, authMiddleware func(http.Handler) http.Handler) {
	r.Use(authMiddleware)
	r.Get("/", handler.ListOrders)
	r.Route("/{orderID}", func(r chi.Router) {
		r.Get("/", handler.GetOrder)
		r.Post("/cancel", handler.CancelOrder)
	})
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders")
		return
	}
	if orders == nil {
		orders = []types.OrderSummary{}
	}

	writeJSON(w, http.StatusOK, OrderListResponse{Orders: orders})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, items, err := h.orders.Detail(r.Context(), orderID, user.ID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Not allowed to view this order")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to fetch order")
		}
		return
	}
	if items == nil {
		items = []types.OrderItem{}
	}

	writeJSON(w, http.StatusOK, OrderDetailResponse{Order: order, Items: items})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	user, err := userFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	orderID, err := parseOrderID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orders.Cancel(r.Context(), orderID, user.ID); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		case errors.Is(err, services.ErrForbidden):
			writeError(w, http.StatusForbidden, "Not allowed to cancel this order")
		case errors.Is(err, services.ErrOrderNotCancellable):
			writeError(w, http.StatusBadRequest, "Order can no longer be cancelled")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to cancel order")
		}
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Order cancelled successfully"})
}

// OrderListResponse is the order history payload.
type OrderListResponse struct {
	Orders []types.OrderSummary `json:"orders"`
}

// OrderDetailResponse is a single order with its line items.
type OrderDetailResponse struct {
	Order types.Order       `json:"order"`
	Items []types.OrderItem `json:"items"`
}

func parseOrderID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "orderID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, errors.New("invalid order id")
	}
	return id, nil
}
