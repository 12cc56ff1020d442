package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

type stubCartService struct {
	getFn    func(ctx context.Context, sessionID string) (services.CartView, error)
	addFn    func(ctx context.Context, cmd services.AddCartItemCommand) (services.CartView, error)
	updateFn func(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.CartView, error)
	removeFn func(ctx context.Context, sessionID, itemID string) (services.CartView, error)
	clearFn  func(ctx context.Context, sessionID string) (services.CartView, error)
}

func (s *stubCartService) Get(ctx context.Context, sessionID string) (services.CartView, error) {
	if s.getFn != nil {
		return s.getFn(ctx, sessionID)
	}
	return services.CartView{}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, cmd services.AddCartItemCommand) (services.CartView, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return services.CartView{}, nil
}

func (s *stubCartService) UpdateQuantity(ctx context.Context, cmd services.UpdateCartQuantityCommand) (services.CartView, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.CartView{}, nil
}

func (s *stubCartService) RemoveItem(ctx context.Context, sessionID, itemID string) (services.CartView, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, sessionID, itemID)
	}
	return services.CartView{}, nil
}

func (s *stubCartService) Clear(ctx context.Context, sessionID string) (services.CartView, error) {
	if s.clearFn != nil {
		return s.clearFn(ctx, sessionID)
	}
	return services.CartView{}, nil
}

type stubFormService struct {
	loadFn   func(ctx context.Context, sessionID string) (services.CheckoutFormValues, error)
	updateFn func(ctx context.Context, sessionID string, patch services.CheckoutFormPatch) (services.DraftUpdate, error)
}

func (s *stubFormService) LoadDraft(ctx context.Context, sessionID string) (services.CheckoutFormValues, error) {
	if s.loadFn != nil {
		return s.loadFn(ctx, sessionID)
	}
	return services.DefaultFormValues(), nil
}

func (s *stubFormService) UpdateDraft(ctx context.Context, sessionID string, patch services.CheckoutFormPatch) (services.DraftUpdate, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, sessionID, patch)
	}
	return services.DraftUpdate{}, nil
}

func (s *stubFormService) ClearDraft(context.Context, string) error { return nil }

func (s *stubFormService) Validate(services.CheckoutFormValues, services.FormRules) services.FieldErrors {
	return nil
}

type stubCheckoutService struct {
	paymentFn func(ctx context.Context, sessionID string) (services.PaymentSelection, error)
	previewFn func(ctx context.Context, sessionID string, values *services.CheckoutFormValues) (services.CheckoutPreview, error)
	submitFn  func(ctx context.Context, sessionID string, values *services.CheckoutFormValues) (services.CheckoutStatus, error)
	retryFn   func(ctx context.Context, sessionID string) (services.CheckoutStatus, error)
	status    services.CheckoutStatus
}

func (s *stubCheckoutService) PaymentOptions(ctx context.Context, sessionID string) (services.PaymentSelection, error) {
	if s.paymentFn != nil {
		return s.paymentFn(ctx, sessionID)
	}
	return services.PaymentSelection{}, nil
}

func (s *stubCheckoutService) Preview(ctx context.Context, sessionID string, values *services.CheckoutFormValues) (services.CheckoutPreview, error) {
	if s.previewFn != nil {
		return s.previewFn(ctx, sessionID, values)
	}
	return services.CheckoutPreview{}, nil
}

func (s *stubCheckoutService) Submit(ctx context.Context, sessionID string, values *services.CheckoutFormValues) (services.CheckoutStatus, error) {
	if s.submitFn != nil {
		return s.submitFn(ctx, sessionID, values)
	}
	return services.CheckoutStatus{State: services.CheckoutSuccess}, nil
}

func (s *stubCheckoutService) Status(context.Context, string) services.CheckoutStatus {
	return s.status
}

func (s *stubCheckoutService) Retry(ctx context.Context, sessionID string) (services.CheckoutStatus, error) {
	if s.retryFn != nil {
		return s.retryFn(ctx, sessionID)
	}
	return services.CheckoutStatus{State: services.CheckoutIdle}, nil
}

func (s *stubCheckoutService) Close(context.Context, string) services.CheckoutStatus {
	return s.status
}

type stubOrderService struct {
	listFn   func(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error)
	getFn    func(ctx context.Context, orderID string) (services.Order, error)
	updateFn func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error)
	deleteFn func(ctx context.Context, cmd services.DeleteOrderCommand) error
	action   services.OrderActionState
}

func (s *stubOrderService) ListOrders(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return services.Order{}, services.ErrOrderNotFound
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (services.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.Order{}, nil
}

func (s *stubOrderService) DeleteOrder(ctx context.Context, cmd services.DeleteOrderCommand) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, cmd)
	}
	return nil
}

func (s *stubOrderService) ActionStatus() services.OrderActionState { return s.action }

func (s *stubOrderService) AllowedTransitions(current services.OrderStatus) []services.OrderStatus {
	if current == domain.OrderStatusPending {
		return []services.OrderStatus{domain.OrderStatusProcessing, domain.OrderStatusCancelled}
	}
	return nil
}

type stubShippingService struct {
	quoteFn  func(ctx context.Context, dest services.Destination) (services.ShippingQuote, error)
	updateFn func(ctx context.Context, cmd services.UpdateShippingConfigCommand) (services.ShippingConfig, error)
	config   services.ShippingConfig
}

func (s *stubShippingService) GetConfig(context.Context) (services.ShippingConfig, error) {
	return s.config, nil
}

func (s *stubShippingService) UpdateConfig(ctx context.Context, cmd services.UpdateShippingConfigCommand) (services.ShippingConfig, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return s.config, nil
}

func (s *stubShippingService) Quote(ctx context.Context, dest services.Destination) (services.ShippingQuote, error) {
	if s.quoteFn != nil {
		return s.quoteFn(ctx, dest)
	}
	return services.ShippingQuote{}, nil
}

type stubCommerceConfigService struct {
	current  services.CommerceConfig
	updateFn func(ctx context.Context, cfg services.CommerceConfig) (services.CommerceConfig, error)
}

func (s *stubCommerceConfigService) Current(context.Context) services.CommerceConfig { return s.current }

func (s *stubCommerceConfigService) Start(context.Context) error { return nil }

func (s *stubCommerceConfigService) Update(ctx context.Context, cfg services.CommerceConfig) (services.CommerceConfig, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cfg)
	}
	return cfg, nil
}

type stubHealthRepository struct {
	report repositories.HealthReport
}

func (s stubHealthRepository) Collect(context.Context) repositories.HealthReport { return s.report }

var (
	_ services.CartService           = (*stubCartService)(nil)
	_ services.CheckoutFormService   = (*stubFormService)(nil)
	_ services.CheckoutService       = (*stubCheckoutService)(nil)
	_ services.OrderService          = (*stubOrderService)(nil)
	_ services.ShippingService       = (*stubShippingService)(nil)
	_ services.CommerceConfigService = (*stubCommerceConfigService)(nil)
	_ repositories.HealthRepository  = stubHealthRepository{}
)

type errorBody struct {
	Error  string            `json:"error"`
	Status int               `json:"status"`
	Fields map[string]string `json:"fields"`
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rr.Body.String(), err)
	}
	return body
}
