package services

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/minimart/apiserver/types"
	"github.com/sirupsen/logrus"
)

// Event channels for order lifecycle notifications.
const (
	ChannelOrderConfirmed = "orders.confirmed"
	ChannelOrderCancelled = "orders.cancelled"
)

// OrderCreator is the slice of the order repository checkout needs.
type OrderCreator interface {
	Create(ctx context.Context, order types.Order, items []types.OrderItem) (types.Order, error)
}

// EventPublisher publishes order lifecycle events to a message broker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
}

// OrderEvent is the payload published on order lifecycle channels.
type OrderEvent struct {
	OrderID     int     `json:"order_id"`
	UserID      int     `json:"user_id"`
	TotalAmount float64 `json:"total_amount"`
	Status      string  `json:"status"`
}

// CheckoutService converts a user's cart into an order. The events
// publisher is optional.
type CheckoutService struct {
	carts  CartRepository
	orders OrderCreator
	gate   *PaymentGate
	events EventPublisher
	log    *logrus.Logger
}

func NewCheckoutService(carts CartRepository, orders OrderCreator, gate *PaymentGate, events EventPublisher, log *logrus.Logger) *CheckoutService {
	return &CheckoutService{
		carts:  carts,
		orders: orders,
		gate:   gate,
		events: events,
		log:    log,
	}
}

// Checkout runs the full sequence: load cart, compute the total, charge
// the simulated payment gate, persist the order with its line items and
// stock decrements in one transaction, then clear the cart. Payment
// failure and an empty cart abort with no state change.
func (s *CheckoutService) Checkout(ctx context.Context, userID int, shippingAddress, paymentMethod string) (types.Order, error) {
	items, err := s.carts.ListItems(ctx, userID)
	if err != nil {
		return types.Order{}, err
	}
	if len(items) == 0 {
		return types.Order{}, ErrEmptyCart
	}

	total, err := s.carts.Total(ctx, userID)
	if err != nil {
		return types.Order{}, err
	}

	if !s.gate.Charge(total) {
		return types.Order{}, ErrPaymentDeclined
	}

	orderItems := make([]types.OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, types.OrderItem{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPrice: item.ProductPrice,
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal,
		})
	}

	order, err := s.orders.Create(ctx, types.Order{
		UserID:          userID,
		TotalAmount:     total,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		Status:          types.OrderStatusConfirmed,
	}, orderItems)
	if err != nil {
		return types.Order{}, err
	}

	// The order is committed; a failed cart clear must not undo it.
	if err := s.carts.Clear(ctx, userID); err != nil {
		s.log.WithField("user_id", userID).WithError(err).Warn("failed to clear cart after checkout")
	}

	s.publish(ctx, ChannelOrderConfirmed, order)

	s.log.WithFields(logrus.Fields{
		"order_id": order.ID,
		"user_id":  userID,
		"items":    len(orderItems),
	}).Info("order created")

	return order, nil
}

func (s *CheckoutService) publish(ctx context.Context, channel string, order types.Order) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(OrderEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      order.Status,
	})
	if err != nil {
		return
	}

	attrs := map[string]string{"order_id": strconv.Itoa(order.ID)}
	if _, err := s.events.Publish(ctx, channel, payload, attrs); err != nil {
		s.log.WithField("channel", channel).WithError(err).Warn("failed to publish order event")
	}
}
