package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
)

type checkoutFixture struct {
	carts    *memCartRepo
	drafts   *memDraftRepo
	orders   *memOrderRepo
	counters *stubCounterRepo
	unit     *recordingUnitOfWork
	events   *captureEvents
	config   *staticCommerceConfig
	shipping *stubShippingRepo
	resets   []func()
	sleeps   []time.Duration
	svc      CheckoutService
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	f := &checkoutFixture{
		carts:    newMemCartRepo(),
		drafts:   newMemDraftRepo(),
		orders:   newMemOrderRepo(),
		counters: &stubCounterRepo{},
		unit:     &recordingUnitOfWork{},
		events:   &captureEvents{},
		config: &staticCommerceConfig{cfg: domain.CommerceConfig{
			Currency:       "COP",
			Timezone:       "America/Bogota",
			PaymentMethods: domain.PaymentMethodFlags{Cash: true, Transfer: true},
		}},
		shipping: &stubShippingRepo{cfg: domain.ShippingConfig{
			Rules: []domain.ShippingRule{
				{ID: "shr_med", Type: domain.ShippingRuleCity, Value: "Medellín", Cost: 5000, AllowCOD: true, IsActive: true,
					DeliveryDays: domain.DeliveryDays{Min: intPtr(1), Max: intPtr(2)}},
			},
			DefaultRule: domain.ShippingRule{ID: "default", Cost: 15000, IsActive: true},
		}},
	}
	forms, err := NewCheckoutFormService(CheckoutFormServiceDeps{Drafts: f.drafts})
	if err != nil {
		t.Fatalf("form service: %v", err)
	}
	shipping, err := NewShippingService(ShippingServiceDeps{Repository: f.shipping})
	if err != nil {
		t.Fatalf("shipping service: %v", err)
	}
	svc, err := NewCheckoutService(CheckoutServiceDeps{
		Carts:      f.carts,
		Drafts:     f.drafts,
		Orders:     f.orders,
		Counters:   f.counters,
		UnitOfWork: f.unit,
		Forms:      forms,
		Shipping:   shipping,
		Config:     commerceConfigFunc(func() domain.CommerceConfig { return f.config.cfg }),
		Events:     f.events,
		Payment:    PaymentPolicy{EnforceCOD: true},
		AfterFunc: func(_ time.Duration, fn func()) {
			f.resets = append(f.resets, fn)
		},
		Sleep: func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		},
		Clock:       fixedClock(),
		IDGenerator: func() string { return "01EVT" },
	})
	if err != nil {
		t.Fatalf("checkout service: %v", err)
	}
	f.svc = svc
	return f
}

type commerceConfigFunc func() domain.CommerceConfig

func (fn commerceConfigFunc) Current(context.Context) domain.CommerceConfig { return fn() }
func (fn commerceConfigFunc) Start(context.Context) error                   { return nil }
func (fn commerceConfigFunc) Update(_ context.Context, cfg domain.CommerceConfig) (domain.CommerceConfig, error) {
	return cfg, nil
}

func (f *checkoutFixture) seedCart(t *testing.T, sessionID string, items ...domain.CartItem) {
	t.Helper()
	cart := domain.Cart{SessionID: sessionID}
	for _, item := range items {
		cart = cart.AddItem(item)
	}
	if _, err := f.carts.Save(context.Background(), cart); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
}

func cashForm(amount int64) *domain.CheckoutFormValues {
	values := validFormValues()
	values.PaymentMethod = domain.PaymentMethodCash
	values.CashAmount = int64Ptr(amount)
	return &values
}

func TestCheckoutSubmitEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ID: "cit_1", ProductID: "prod-1", Name: "Camiseta", Price: 20000, Quantity: 2, MaxQuantity: 10})

	if got := f.svc.Status(ctx, "sess"); got.State != CheckoutIdle {
		t.Fatalf("expected idle, got %s", got.State)
	}

	status, err := f.svc.Submit(ctx, "sess", cashForm(50000))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status.State != CheckoutSuccess || status.OrderNumber != "NC-000001" || status.Total != 45000 {
		t.Fatalf("unexpected status %+v", status)
	}

	order, ok := f.orders.orders[status.OrderID]
	if !ok {
		t.Fatalf("expected order %s to be stored", status.OrderID)
	}
	if order.Total != 45000 || order.ShippingMethod.Price != 5000 || order.Subtotal != 40000 {
		t.Fatalf("unexpected order totals %+v", order)
	}
	if order.Payment.Change == nil || *order.Payment.Change != 5000 {
		t.Fatalf("expected change 5000, got %v", order.Payment.Change)
	}
	if len(f.carts.items("sess")) != 0 {
		t.Fatalf("expected cart to be cleared")
	}
	if _, found, _ := f.drafts.Load(ctx, "sess"); found {
		t.Fatalf("expected draft to be cleared")
	}
	if f.unit.calls != 1 {
		t.Fatalf("expected counter, cart clear and order create in one transaction, got %d", f.unit.calls)
	}
	if types := f.events.types(); len(types) != 1 || types[0] != orderEventCreated {
		t.Fatalf("expected order.created event, got %v", types)
	}
	if f.events.events[0].ID != "evt_01EVT" {
		t.Fatalf("unexpected event id %s", f.events.events[0].ID)
	}
}

func TestCheckoutSubmitRejectsWhileCompleted(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})

	if _, err := f.svc.Submit(ctx, "sess", cashForm(20000)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.svc.Submit(ctx, "sess", cashForm(20000)); !errors.Is(err, ErrCheckoutCompleted) {
		t.Fatalf("expected completed error, got %v", err)
	}

	status := f.svc.Close(ctx, "sess")
	if status.State != CheckoutSuccess {
		t.Fatalf("expected success until reset fires, got %s", status.State)
	}
	f.svc.Close(ctx, "sess")
	if len(f.resets) != 1 {
		t.Fatalf("expected a single scheduled reset, got %d", len(f.resets))
	}
	f.resets[0]()
	if got := f.svc.Status(ctx, "sess"); got.State != CheckoutIdle {
		t.Fatalf("expected idle after reset, got %s", got.State)
	}
}

func TestCheckoutSubmitRejectsConcurrentSubmission(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})

	entered := make(chan struct{})
	release := make(chan struct{})
	f.orders.createFn = func(ctx context.Context, order domain.Order) (domain.Order, error) {
		close(entered)
		<-release
		order.ID = "ord_slow"
		return order, nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, err := f.svc.Submit(ctx, "sess", cashForm(20000)); err != nil {
			t.Errorf("first submit: %v", err)
		}
	}()
	<-entered

	if got := f.svc.Status(ctx, "sess"); got.State != CheckoutSubmitting {
		t.Fatalf("expected submitting, got %s", got.State)
	}
	if _, err := f.svc.Submit(ctx, "sess", cashForm(20000)); !errors.Is(err, ErrCheckoutInFlight) {
		t.Fatalf("expected in-flight error, got %v", err)
	}
	if _, err := f.svc.Retry(ctx, "sess"); !errors.Is(err, ErrCheckoutInFlight) {
		t.Fatalf("expected retry to be rejected while submitting, got %v", err)
	}
	close(release)
	wg.Wait()

	if got := f.svc.Status(ctx, "sess"); got.State != CheckoutSuccess || got.OrderID != "ord_slow" {
		t.Fatalf("expected success, got %+v", got)
	}
}

func TestCheckoutSubmitValidationKeepsIdle(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 20000, Quantity: 2})

	_, err := f.svc.Submit(ctx, "sess", cashForm(10000))
	if !errors.Is(err, ErrCheckoutInvalidForm) {
		t.Fatalf("expected invalid form, got %v", err)
	}
	fields, ok := FieldErrorsFrom(err)
	if !ok || !strings.Contains(fields["cashAmount"], "$35.000") {
		t.Fatalf("expected cash shortfall $35.000, got %v", fields)
	}
	if got := f.svc.Status(ctx, "sess"); got.State != CheckoutIdle {
		t.Fatalf("expected idle after validation failure, got %s", got.State)
	}
	if len(f.orders.orders) != 0 {
		t.Fatalf("expected no order persisted")
	}
	if len(f.carts.items("sess")) != 1 {
		t.Fatalf("expected cart untouched")
	}
}

func TestCheckoutSubmitEmptyCart(t *testing.T) {
	f := newCheckoutFixture(t)
	if _, err := f.svc.Submit(context.Background(), "sess", cashForm(10000)); !errors.Is(err, ErrCheckoutEmptyCart) {
		t.Fatalf("expected empty cart, got %v", err)
	}
}

func TestCheckoutSubmitMinimumOrder(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.config.cfg.OrderRules.MinOrderAmount = 50000
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 20000, Quantity: 2})

	_, err := f.svc.Submit(ctx, "sess", cashForm(100000))
	if !errors.Is(err, ErrCheckoutMinimumOrder) {
		t.Fatalf("expected minimum order error, got %v", err)
	}
	if !strings.Contains(err.Error(), "$50.000") {
		t.Fatalf("expected minimum amount in message, got %v", err)
	}
	if got := f.svc.Status(ctx, "sess"); got.State != CheckoutIdle {
		t.Fatalf("expected idle, got %s", got.State)
	}
}

func TestCheckoutSubmitPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})
	f.orders.createErr = errRepoUnavailable

	status, err := f.svc.Submit(ctx, "sess", cashForm(20000))
	if !errors.Is(err, ErrCheckoutFailed) {
		t.Fatalf("expected failed error, got %v", err)
	}
	if status.State != CheckoutError || status.Message == "" {
		t.Fatalf("expected error state with message, got %+v", status)
	}
	if len(f.carts.items("sess")) != 1 {
		t.Fatalf("expected cart kept after failure")
	}
	if len(f.events.events) != 0 {
		t.Fatalf("expected no events on failure")
	}

	f.orders.createErr = nil
	status, err = f.svc.Submit(ctx, "sess", nil)
	if err != nil {
		t.Fatalf("resubmit from error: %v", err)
	}
	if status.State != CheckoutSuccess {
		t.Fatalf("expected success on resubmit, got %s", status.State)
	}
}

func TestCheckoutRetryResetsError(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})
	f.counters.err = errRepoUnavailable

	if _, err := f.svc.Submit(ctx, "sess", cashForm(20000)); !errors.Is(err, ErrCheckoutFailed) {
		t.Fatalf("expected failure, got %v", err)
	}
	status, err := f.svc.Retry(ctx, "sess")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if status.State != CheckoutIdle {
		t.Fatalf("expected idle after retry, got %s", status.State)
	}
}

func TestCheckoutCartClearRetriesWithBackoff(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})
	f.carts.deleteErr = func(attempt int) error {
		if attempt < 3 {
			return errRepoUnavailable
		}
		return nil
	}

	status, err := f.svc.Submit(ctx, "sess", cashForm(20000))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if status.State != CheckoutSuccess {
		t.Fatalf("expected success, got %s", status.State)
	}
	if f.carts.deletes != 3 || len(f.sleeps) != 2 {
		t.Fatalf("expected 3 attempts and 2 pauses, got %d attempts %d pauses", f.carts.deletes, len(f.sleeps))
	}
	if len(f.carts.items("sess")) != 0 {
		t.Fatalf("expected cart cleared on the last attempt")
	}
}

func TestCheckoutCartClearExhaustedKeepsCartAndOrderTogether(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})
	f.carts.deleteErr = func(int) error { return errRepoUnavailable }

	status, err := f.svc.Submit(ctx, "sess", cashForm(20000))
	if !errors.Is(err, ErrCheckoutFailed) {
		t.Fatalf("expected failed error, got %v", err)
	}
	if status.State == CheckoutSuccess {
		t.Fatalf("success reported while the cart is still stored")
	}
	if status.State != CheckoutError {
		t.Fatalf("expected error state, got %s", status.State)
	}
	if f.carts.deletes != 3 {
		t.Fatalf("expected 3 clear attempts, got %d", f.carts.deletes)
	}
	if len(f.orders.orders) != 0 {
		t.Fatalf("expected no order stored, got %d", len(f.orders.orders))
	}
	if len(f.carts.items("sess")) != 1 {
		t.Fatalf("expected cart kept for a retry")
	}

	f.carts.deleteErr = nil
	status, err = f.svc.Submit(ctx, "sess", nil)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if status.State != CheckoutSuccess || len(f.orders.orders) != 1 || len(f.carts.items("sess")) != 0 {
		t.Fatalf("expected one order and an empty cart, got state=%s orders=%d items=%d",
			status.State, len(f.orders.orders), len(f.carts.items("sess")))
	}
}

func TestCheckoutCommitFailureRestoresCart(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 2})
	f.unit.commitErr = errRepoUnavailable

	status, err := f.svc.Submit(ctx, "sess", cashForm(30000))
	if !errors.Is(err, ErrCheckoutFailed) {
		t.Fatalf("expected failed error, got %v", err)
	}
	if status.State != CheckoutError {
		t.Fatalf("expected error state, got %s", status.State)
	}
	items := f.carts.items("sess")
	if len(items) != 1 || items[0].Quantity != 2 {
		t.Fatalf("expected cart restored, got %+v", items)
	}
}

func TestCheckoutSubmitUsesStoredDraft(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 10000, Quantity: 1})
	values := validFormValues()
	if err := f.drafts.Save(ctx, "sess", values); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	status, err := f.svc.Submit(ctx, "sess", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	order := f.orders.orders[status.OrderID]
	if order.Payment.Method != domain.PaymentMethodTransfer || order.Shipping.FirstName != "Laura" {
		t.Fatalf("expected order from draft values, got %+v", order)
	}
}

func TestCheckoutPreviewAndPaymentOptions(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)
	f.seedCart(t, "sess", domain.CartItem{ProductID: "p", Name: "x", Price: 20000, Quantity: 2})

	preview, err := f.svc.Preview(ctx, "sess", cashForm(45000))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if !preview.Valid || preview.Totals.Total != 45000 || preview.Shipping.RuleID != "shr_med" {
		t.Fatalf("unexpected preview %+v", preview)
	}

	values := validFormValues()
	values.Department = "Valle del Cauca"
	values.City = "Cali"
	if err := f.drafts.Save(ctx, "sess", values); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	options, err := f.svc.PaymentOptions(ctx, "sess")
	if err != nil {
		t.Fatalf("payment options: %v", err)
	}
	if options.Allows(domain.PaymentMethodCash) || !options.Allows(domain.PaymentMethodTransfer) {
		t.Fatalf("expected cash removed where COD is not allowed, got %v", options.MethodList())
	}

	f.config.cfg.PaymentMethods = domain.PaymentMethodFlags{Cash: true}
	preview, err = f.svc.Preview(ctx, "sess", nil)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if preview.Valid || !preview.Payment.ContactAdmin {
		t.Fatalf("expected contact admin state, got %+v", preview.Payment)
	}
}

func TestCheckoutRequiresSession(t *testing.T) {
	f := newCheckoutFixture(t)
	if _, err := f.svc.Submit(context.Background(), " ", nil); !errors.Is(err, ErrSessionRequired) {
		t.Fatalf("expected session required, got %v", err)
	}
}
