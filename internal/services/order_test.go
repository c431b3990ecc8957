package services

import (
	"context"
	"errors"
	"testing"

	"github.com/minimart/apiserver/internal/store"
	"github.com/minimart/apiserver/types"
	"github.com/sirupsen/logrus"
)

type fakeOrderRepository struct {
	orders    map[int]types.Order
	items     map[int][]types.OrderItem
	cancelled []int
}

func newFakeOrderRepository(orders ...types.Order) *fakeOrderRepository {
	repo := &fakeOrderRepository{
		orders: make(map[int]types.Order),
		items:  make(map[int][]types.OrderItem),
	}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepository) Get(_ context.Context, id int) (types.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return types.Order{}, store.ErrNotFound
	}
	return order, nil
}

func (f *fakeOrderRepository) ListByUser(_ context.Context, userID int) ([]types.OrderSummary, error) {
	var summaries []types.OrderSummary
	for _, o := range f.orders {
		if o.UserID == userID {
			summaries = append(summaries, types.OrderSummary{
				ID:          o.ID,
				CreatedAt:   o.CreatedAt,
				TotalAmount: o.TotalAmount,
				Status:      o.Status,
			})
		}
	}
	return summaries, nil
}

func (f *fakeOrderRepository) Items(_ context.Context, orderID int) ([]types.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderRepository) Cancel(_ context.Context, orderID int) error {
	order, ok := f.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	order.Status = types.OrderStatusCancelled
	f.orders[orderID] = order
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func TestOrderDetailOwnership(t *testing.T) {
	repo := newFakeOrderRepository(types.Order{ID: 1, UserID: 7, Status: types.OrderStatusConfirmed})
	svc := NewOrderService(repo, nil, logrus.New())
	ctx := context.Background()

	if _, _, err := svc.Detail(ctx, 1, 8); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, _, err := svc.Detail(ctx, 9, 7); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := svc.Detail(ctx, 1, 7); err != nil {
		t.Fatalf("detail: %v", err)
	}
}

func TestOrderCancel(t *testing.T) {
	repo := newFakeOrderRepository(
		types.Order{ID: 1, UserID: 7, Status: types.OrderStatusConfirmed},
		types.Order{ID: 2, UserID: 7, Status: types.OrderStatusShipped},
		types.Order{ID: 3, UserID: 7, Status: types.OrderStatusDelivered},
	)
	svc := NewOrderService(repo, nil, logrus.New())
	ctx := context.Background()

	if err := svc.Cancel(ctx, 1, 8); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Cancel(ctx, 2, 7); !errors.Is(err, ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable for shipped, got %v", err)
	}
	if err := svc.Cancel(ctx, 3, 7); !errors.Is(err, ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable for delivered, got %v", err)
	}
	if len(repo.cancelled) != 0 {
		t.Fatalf("expected no cancellations so far")
	}

	if err := svc.Cancel(ctx, 1, 7); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if repo.orders[1].Status != types.OrderStatusCancelled {
		t.Fatalf("expected order cancelled, got %q", repo.orders[1].Status)
	}
}
