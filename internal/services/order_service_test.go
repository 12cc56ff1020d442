package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
)

func seedOrders(t *testing.T, repo *memOrderRepo, statuses ...domain.OrderStatus) []domain.Order {
	t.Helper()
	out := make([]domain.Order, 0, len(statuses))
	for _, status := range statuses {
		order, err := repo.Create(context.Background(), domain.Order{Status: status, Total: 45000, Currency: "COP", OrderNumber: "NC-1"})
		if err != nil {
			t.Fatalf("seed order: %v", err)
		}
		out = append(out, order)
	}
	return out
}

func newTestOrderService(t *testing.T, repo *memOrderRepo, events *captureEvents, unrestricted bool) OrderService {
	t.Helper()
	svc, err := NewOrderService(OrderServiceDeps{
		Orders:                  repo,
		UnrestrictedTransitions: unrestricted,
		Events:                  events,
		Clock:                   fixedClock(),
		IDGenerator:             func() string { return "01ORD" },
	})
	if err != nil {
		t.Fatalf("order service: %v", err)
	}
	return svc
}

func TestOrderServiceListOrdersNewestFirst(t *testing.T) {
	repo := newMemOrderRepo()
	seeded := seedOrders(t, repo, domain.OrderStatusPending, domain.OrderStatusShipped, domain.OrderStatusPending)
	svc := newTestOrderService(t, repo, nil, false)

	page, err := svc.ListOrders(context.Background(), OrderListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 3 || page.Items[0].ID != seeded[2].ID || page.Items[2].ID != seeded[0].ID {
		t.Fatalf("expected newest first, got %+v", page.Items)
	}

	page, err = svc.ListOrders(context.Background(), OrderListFilter{Status: []domain.OrderStatus{domain.OrderStatusShipped}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != seeded[1].ID {
		t.Fatalf("expected shipped order only, got %+v", page.Items)
	}

	if _, err := svc.ListOrders(context.Background(), OrderListFilter{Status: []domain.OrderStatus{"lost"}}); !errors.Is(err, ErrOrderInvalidInput) {
		t.Fatalf("expected invalid status, got %v", err)
	}
}

func TestOrderServiceForwardOnlyTransitions(t *testing.T) {
	tests := []struct {
		from, to domain.OrderStatus
		ok       bool
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessing, true},
		{domain.OrderStatusPending, domain.OrderStatusShipped, true},
		{domain.OrderStatusProcessing, domain.OrderStatusCancelled, true},
		{domain.OrderStatusShipped, domain.OrderStatusDelivered, true},
		{domain.OrderStatusShipped, domain.OrderStatusPending, false},
		{domain.OrderStatusDelivered, domain.OrderStatusCancelled, false},
		{domain.OrderStatusCancelled, domain.OrderStatusPending, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			repo := newMemOrderRepo()
			order := seedOrders(t, repo, tc.from)[0]
			events := &captureEvents{}
			svc := newTestOrderService(t, repo, events, false)

			updated, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: order.ID, Status: tc.to, ActorID: "admin-1"})
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if updated.Status != tc.to {
					t.Fatalf("expected %s, got %s", tc.to, updated.Status)
				}
				if len(events.events) != 1 || events.events[0].PreviousStatus != string(tc.from) || events.events[0].Type != orderEventStatusChanged {
					t.Fatalf("unexpected events %+v", events.events)
				}
				if svc.ActionStatus().Status != OrderActionSucceeded {
					t.Fatalf("expected succeeded action, got %+v", svc.ActionStatus())
				}
				return
			}
			if !errors.Is(err, ErrOrderInvalidState) {
				t.Fatalf("expected invalid state, got %v", err)
			}
			if state := svc.ActionStatus(); state.Status != OrderActionFailed || state.Error == "" {
				t.Fatalf("expected failed action, got %+v", state)
			}
		})
	}
}

func TestOrderServiceUnrestrictedTransitions(t *testing.T) {
	repo := newMemOrderRepo()
	order := seedOrders(t, repo, domain.OrderStatusDelivered)[0]
	svc := newTestOrderService(t, repo, nil, true)

	updated, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusPending})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending, got %s", updated.Status)
	}
	if got := svc.AllowedTransitions(domain.OrderStatusCancelled); len(got) != 4 {
		t.Fatalf("expected every other status, got %v", got)
	}
}

func TestOrderServiceSameStatusIsNoop(t *testing.T) {
	repo := newMemOrderRepo()
	order := seedOrders(t, repo, domain.OrderStatusShipped)[0]
	events := &captureEvents{}
	svc := newTestOrderService(t, repo, events, false)

	updated, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: order.ID, Status: "SHIPPED"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.UpdatedAt.Equal(order.UpdatedAt) {
		t.Fatalf("expected order untouched")
	}
	if len(events.events) != 0 {
		t.Fatalf("expected no events, got %v", events.types())
	}
}

func TestOrderServiceDelete(t *testing.T) {
	repo := newMemOrderRepo()
	order := seedOrders(t, repo, domain.OrderStatusPending)[0]
	events := &captureEvents{}
	svc := newTestOrderService(t, repo, events, false)

	if err := svc.DeleteOrder(context.Background(), DeleteOrderCommand{OrderID: order.ID, ActorID: "admin"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetOrder(context.Background(), order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if types := events.types(); !reflect.DeepEqual(types, []string{orderEventDeleted}) {
		t.Fatalf("expected order.deleted, got %v", types)
	}
	state := svc.ActionStatus()
	if state.Status != OrderActionSucceeded || state.Action != OrderActionDelete || state.OrderID != order.ID {
		t.Fatalf("unexpected action state %+v", state)
	}

	if err := svc.DeleteOrder(context.Background(), DeleteOrderCommand{OrderID: "ord_missing"}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type blockingOrderRepo struct {
	*memOrderRepo
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *blockingOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.memOrderRepo.UpdateStatus(ctx, orderID, status)
}

func TestOrderServiceRejectsConcurrentActions(t *testing.T) {
	base := newMemOrderRepo()
	orders := seedOrders(t, base, domain.OrderStatusPending, domain.OrderStatusPending)
	repo := &blockingOrderRepo{memOrderRepo: base, entered: make(chan struct{}), release: make(chan struct{})}
	svc, err := NewOrderService(OrderServiceDeps{Orders: repo})
	if err != nil {
		t.Fatalf("order service: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.UpdateStatus(context.Background(), UpdateOrderStatusCommand{OrderID: orders[0].ID, Status: domain.OrderStatusProcessing})
		done <- err
	}()
	<-repo.entered

	if state := svc.ActionStatus(); state.Status != OrderActionLoading {
		t.Fatalf("expected loading, got %+v", state)
	}
	if err := svc.DeleteOrder(context.Background(), DeleteOrderCommand{OrderID: orders[1].ID}); !errors.Is(err, ErrOrderActionInFlight) {
		t.Fatalf("expected in-flight rejection, got %v", err)
	}
	close(repo.release)
	if err := <-done; err != nil {
		t.Fatalf("update: %v", err)
	}
	if state := svc.ActionStatus(); state.Status != OrderActionSucceeded {
		t.Fatalf("expected succeeded, got %+v", state)
	}
}

func TestOrderServiceAllowedTransitions(t *testing.T) {
	svc := newTestOrderService(t, newMemOrderRepo(), nil, false)
	got := svc.AllowedTransitions(domain.OrderStatusProcessing)
	want := []domain.OrderStatus{domain.OrderStatusShipped, domain.OrderStatusDelivered, domain.OrderStatusCancelled}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := svc.AllowedTransitions(domain.OrderStatusDelivered); len(got) != 0 {
		t.Fatalf("expected delivered to be terminal, got %v", got)
	}
}
