package services

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/minimart/apiserver/types"
	"github.com/sirupsen/logrus"
)

// OrderRepository defines persistence operations for orders.
type OrderRepository interface {
	Get(ctx context.Context, id int) (types.Order, error)
	ListByUser(ctx context.Context, userID int) ([]types.OrderSummary, error)
	Items(ctx context.Context, orderID int) ([]types.OrderItem, error)
	Cancel(ctx context.Context, orderID int) error
}

// OrderService encapsulates order history and cancellation use-cases.
// The events publisher is optional.
type OrderService struct {
	orders OrderRepository
	events EventPublisher
	log    *logrus.Logger
}

func NewOrderService(orders OrderRepository, events EventPublisher, log *logrus.Logger) *OrderService {
	return &OrderService{orders: orders, events: events, log: log}
}

func (s *OrderService) ListByUser(ctx context.Context, userID int) ([]types.OrderSummary, error) {
	return s.orders.ListByUser(ctx, userID)
}

// Detail returns the order and its line items, distinguishing a missing
// order from one owned by a different user.
func (s *OrderService) Detail(ctx context.Context, orderID, userID int) (types.Order, []types.OrderItem, error) {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return types.Order{}, nil, err
	}
	if order.UserID != userID {
		return types.Order{}, nil, ErrForbidden
	}

	items, err := s.orders.Items(ctx, orderID)
	if err != nil {
		return types.Order{}, nil, err
	}
	return order, items, nil
}

// Cancel restores stock for every line item whose product still exists
// and marks the order cancelled. Shipped and delivered orders are
// rejected.
func (s *OrderService) Cancel(ctx context.Context, orderID, userID int) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != userID {
		return ErrForbidden
	}
	if order.Status == types.OrderStatusShipped || order.Status == types.OrderStatusDelivered {
		return ErrOrderNotCancellable
	}

	if err := s.orders.Cancel(ctx, orderID); err != nil {
		return err
	}

	s.publishCancelled(ctx, order)
	s.log.WithFields(logrus.Fields{
		"order_id": orderID,
		"user_id":  userID,
	}).Info("order cancelled")
	return nil
}

func (s *OrderService) publishCancelled(ctx context.Context, order types.Order) {
	if s.events == nil {
		return
	}

	payload, err := json.Marshal(OrderEvent{
		OrderID:     order.ID,
		UserID:      order.UserID,
		TotalAmount: order.TotalAmount,
		Status:      types.OrderStatusCancelled,
	})
	if err != nil {
		return
	}

	attrs := map[string]string{"order_id": strconv.Itoa(order.ID)}
	if _, err := s.events.Publish(ctx, ChannelOrderCancelled, payload, attrs); err != nil {
		s.log.WithField("channel", ChannelOrderCancelled).WithError(err).Warn("failed to publish order event")
	}
}
