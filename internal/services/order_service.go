package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/pagination"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventDeleted       = "order.deleted"

	orderEventIDPrefix = "evt_"

	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderActionInFlight rejects an admin action while another one is loading.
	ErrOrderActionInFlight = errors.New("order: another action is in progress")
	// ErrOrderUnavailable indicates the order store could not be reached.
	ErrOrderUnavailable = errors.New("order: repository unavailable")
)

// Order action states, shared by status updates and deletes.
const (
	OrderActionIdle      = "idle"
	OrderActionLoading   = "loading"
	OrderActionSucceeded = "succeeded"
	OrderActionFailed    = "failed"
)

// Order action kinds reported in OrderActionState.Action.
const (
	OrderActionUpdateStatus = "update_status"
	OrderActionDelete       = "delete"
)

// OrderActionState tracks the single admin action modelled at a time.
type OrderActionState struct {
	Status    string    `json:"status"`
	Action    string    `json:"action,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// forwardStatusRank orders the non-cancelled lifecycle. Cancelled sits outside it.
var forwardStatusRank = map[domain.OrderStatus]int{
	domain.OrderStatusPending:    0,
	domain.OrderStatusProcessing: 1,
	domain.OrderStatusShipped:    2,
	domain.OrderStatusDelivered:  3,
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders repositories.OrderRepository
	// UnrestrictedTransitions allows any status to move to any other status.
	UnrestrictedTransitions bool
	Clock                   func() time.Time
	IDGenerator             func() string
	Events                  OrderEventPublisher
	Logger                  func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	unrestricted bool
	clock        func() time.Time
	newID        func() string
	events       OrderEventPublisher
	logger       func(context.Context, string, map[string]any)

	mu     sync.Mutex
	action OrderActionState
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:       deps.Orders,
		unrestricted: deps.UnrestrictedTransitions,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
		action: OrderActionState{Status: OrderActionIdle},
	}, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	for _, status := range filter.Status {
		if !status.Valid() {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, status)
		}
	}
	switch {
	case filter.PageSize <= 0:
		filter.PageSize = defaultOrderPageSize
	case filter.PageSize > maxOrderPageSize:
		filter.PageSize = maxOrderPageSize
	}
	filter.PageToken = strings.TrimSpace(filter.PageToken)
	if _, err := pagination.DecodeToken(filter.PageToken); err != nil {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	}

	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target := OrderStatus(strings.ToLower(strings.TrimSpace(string(cmd.Status))))
	if !target.Valid() {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.Status)
	}

	if err := s.beginAction(OrderActionUpdateStatus, orderID); err != nil {
		return Order{}, err
	}

	order, previous, err := s.updateStatus(ctx, orderID, target)
	s.finishAction(err)
	if err != nil {
		return Order{}, err
	}
	if previous == order.Status {
		return order, nil
	}

	s.logger(ctx, "order.status.updated", map[string]any{
		"orderId": order.ID,
		"from":    string(previous),
		"to":      string(order.Status),
		"actor":   cmd.ActorID,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: string(previous),
		CurrentStatus:  string(order.Status),
		ActorID:        cmd.ActorID,
		Total:          order.Total,
		Currency:       order.Currency,
	})
	return order, nil
}

func (s *orderService) updateStatus(ctx context.Context, orderID string, target OrderStatus) (Order, OrderStatus, error) {
	current, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, "", s.mapRepositoryError(err)
	}
	if current.Status == target {
		return current, current.Status, nil
	}
	if !s.canTransition(current.Status, target) {
		return Order{}, "", fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, current.Status, target)
	}
	updated, err := s.orders.UpdateStatus(ctx, orderID, target)
	if err != nil {
		return Order{}, "", s.mapRepositoryError(err)
	}
	return updated, current.Status, nil
}

func (s *orderService) DeleteOrder(ctx context.Context, cmd DeleteOrderCommand) error {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if err := s.beginAction(OrderActionDelete, orderID); err != nil {
		return err
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err == nil {
		err = s.orders.Delete(ctx, orderID)
	}
	err = s.mapRepositoryError(err)
	s.finishAction(err)
	if err != nil {
		return err
	}

	s.logger(ctx, "order.deleted", map[string]any{
		"orderId": orderID,
		"actor":   cmd.ActorID,
	})
	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventDeleted,
		OrderID:        orderID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: string(order.Status),
		ActorID:        cmd.ActorID,
		Total:          order.Total,
		Currency:       order.Currency,
	})
	return nil
}

func (s *orderService) ActionStatus() OrderActionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

func (s *orderService) beginAction(action, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.action.Status == OrderActionLoading {
		return fmt.Errorf("%w: %s on %s", ErrOrderActionInFlight, s.action.Action, s.action.OrderID)
	}
	s.action = OrderActionState{
		Status:    OrderActionLoading,
		Action:    action,
		OrderID:   orderID,
		UpdatedAt: s.clock(),
	}
	return nil
}

func (s *orderService) finishAction(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.action.UpdatedAt = s.clock()
	if err != nil {
		s.action.Status = OrderActionFailed
		s.action.Error = err.Error()
		return
	}
	s.action.Status = OrderActionSucceeded
	s.action.Error = ""
}

// canTransition allows moving forward along pending, processing, shipped and
// delivered, and cancelling any order that is neither delivered nor cancelled.
func (s *orderService) canTransition(current, target OrderStatus) bool {
	if s.unrestricted || current == target {
		return true
	}
	if current == domain.OrderStatusCancelled || current == domain.OrderStatusDelivered {
		return false
	}
	if target == domain.OrderStatusCancelled {
		return true
	}
	from, okFrom := forwardStatusRank[current]
	to, okTo := forwardStatusRank[target]
	return okFrom && okTo && to > from
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}

	return err
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	publishOrderEvent(ctx, s.events, s.logger, event, s.clock, s.newID)
}

// publishOrderEvent fills the event id and timestamp and publishes it. Failures
// are logged; they never fail the calling operation.
func publishOrderEvent(ctx context.Context, events OrderEventPublisher, logger func(context.Context, string, map[string]any), event OrderEvent, clock func() time.Time, newID func() string) {
	if events == nil {
		return
	}
	if event.ID == "" {
		event.ID = orderEventIDPrefix + newID()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = clock()
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := events.PublishOrderEvent(ctx, event); err != nil {
		logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// AllowedTransitions lists the statuses current may move to, excluding itself.
func (s *orderService) AllowedTransitions(current OrderStatus) []OrderStatus {
	out := make([]OrderStatus, 0, len(domain.OrderStatuses))
	for _, status := range domain.OrderStatuses {
		if status != current && s.canTransition(current, status) {
			out = append(out, status)
		}
	}
	return slices.Clip(out)
}
