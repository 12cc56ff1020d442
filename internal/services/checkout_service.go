package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/googleapis/gax-go/v2"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/format"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	checkoutMeterName = "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services/checkout"

	orderCounterID = "orders"

	defaultResetDelay        = 300 * time.Millisecond
	defaultCartClearAttempts = 3
	defaultOrderNumberPrefix = "NC"

	msgSubmitFailed = "No pudimos registrar tu pedido. Intenta de nuevo en unos segundos."
)

var (
	// ErrCheckoutInFlight rejects a submission while another one for the session is running.
	ErrCheckoutInFlight = errors.New("checkout: submission in progress")
	// ErrCheckoutCompleted rejects a submission while the previous success has not been closed.
	ErrCheckoutCompleted = errors.New("checkout: order already submitted")
	// ErrCheckoutEmptyCart rejects a submission without cart items.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutMinimumOrder rejects a submission below the store minimum order amount.
	ErrCheckoutMinimumOrder = errors.New("checkout: minimum order amount not met")
	// ErrCheckoutFailed reports that the order could not be persisted.
	ErrCheckoutFailed = errors.New("checkout: order could not be persisted")
	// ErrCheckoutUnavailable indicates the cart could not be read.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// CheckoutState is a submission state of one session.
type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutSubmitting CheckoutState = "submitting"
	CheckoutSuccess    CheckoutState = "success"
	CheckoutError      CheckoutState = "error"
)

// CheckoutStatus is the observable submission state of a session.
type CheckoutStatus struct {
	State       CheckoutState `json:"state"`
	Message     string        `json:"message,omitempty"`
	OrderID     string        `json:"orderId,omitempty"`
	OrderNumber string        `json:"orderNumber,omitempty"`
	Total       int64         `json:"total,omitempty"`
	Currency    string        `json:"currency,omitempty"`
}

// CheckoutServiceDeps bundles collaborators required to construct the checkout service.
type CheckoutServiceDeps struct {
	Carts      repositories.CartRepository
	Drafts     repositories.DraftRepository
	Orders     repositories.OrderRepository
	Counters   repositories.CounterRepository
	UnitOfWork repositories.UnitOfWork
	Forms      CheckoutFormService
	Shipping   ShippingService
	Config     CommerceConfigService
	Events     OrderEventPublisher
	Locks      *SessionLocks
	Payment    PaymentPolicy

	// ResetDelay is the grace period between Close and the return to idle.
	ResetDelay time.Duration
	// CartClearAttempts bounds how often clearing the cart is tried after an order is stored.
	CartClearAttempts int
	OrderNumberPrefix string

	// AfterFunc schedules f after d. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())
	// Sleep waits between cart clear attempts. Defaults to gax.Sleep.
	Sleep       func(ctx context.Context, d time.Duration) error
	Meter       metric.Meter
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type checkoutSession struct {
	status         CheckoutStatus
	resetScheduled bool
}

type checkoutService struct {
	carts    repositories.CartRepository
	drafts   repositories.DraftRepository
	orders   repositories.OrderRepository
	counters repositories.CounterRepository
	unit     repositories.UnitOfWork
	forms    CheckoutFormService
	shipping ShippingService
	config   CommerceConfigService
	events   OrderEventPublisher
	locks    *SessionLocks
	policy   PaymentPolicy

	resetDelay   time.Duration
	clearTries   int
	numberPrefix string
	afterFunc    func(time.Duration, func())
	sleep        func(context.Context, time.Duration) error
	submissions  metric.Int64Counter
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)

	mu       sync.Mutex
	sessions map[string]*checkoutSession
}

// NewCheckoutService wires dependencies into a CheckoutService implementation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	switch {
	case deps.Carts == nil:
		return nil, errors.New("checkout service: cart repository is required")
	case deps.Drafts == nil:
		return nil, errors.New("checkout service: draft repository is required")
	case deps.Orders == nil:
		return nil, errors.New("checkout service: order repository is required")
	case deps.Counters == nil:
		return nil, errors.New("checkout service: counter repository is required")
	case deps.Forms == nil:
		return nil, errors.New("checkout service: form service is required")
	case deps.Shipping == nil:
		return nil, errors.New("checkout service: shipping service is required")
	case deps.Config == nil:
		return nil, errors.New("checkout service: commerce config service is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	locks := deps.Locks
	if locks == nil {
		locks = NewSessionLocks()
	}
	resetDelay := deps.ResetDelay
	if resetDelay <= 0 {
		resetDelay = defaultResetDelay
	}
	tries := deps.CartClearAttempts
	if tries <= 0 {
		tries = defaultCartClearAttempts
	}
	prefix := strings.TrimSpace(deps.OrderNumberPrefix)
	if prefix == "" {
		prefix = defaultOrderNumberPrefix
	}
	afterFunc := deps.AfterFunc
	if afterFunc == nil {
		afterFunc = func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		}
	}
	sleep := deps.Sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	meter := deps.Meter
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(checkoutMeterName)
	}
	submissions, err := meter.Int64Counter(
		"checkout.submissions",
		metric.WithDescription("Checkout submissions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("checkout service: create counter: %w", err)
	}

	return &checkoutService{
		carts:        deps.Carts,
		drafts:       deps.Drafts,
		orders:       deps.Orders,
		counters:     deps.Counters,
		unit:         unit,
		forms:        deps.Forms,
		shipping:     deps.Shipping,
		config:       deps.Config,
		events:       deps.Events,
		locks:        locks,
		policy:       deps.Payment,
		resetDelay:   resetDelay,
		clearTries:   tries,
		numberPrefix: prefix,
		afterFunc:    afterFunc,
		sleep:        sleep,
		submissions:  submissions,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:    idGen,
		logger:   logger,
		sessions: make(map[string]*checkoutSession),
	}, nil
}

// checkoutContext is everything the form is validated and the order assembled from.
type checkoutContext struct {
	cart     Cart
	totals   CartTotals
	quote    ShippingQuote
	config   CommerceConfig
	payment  PaymentSelection
	values   CheckoutFormValues
	errors   FieldErrors
	minOrder int64
}

func (s *checkoutService) PaymentOptions(ctx context.Context, sessionID string) (PaymentSelection, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return PaymentSelection{}, err
	}
	values, err := s.forms.LoadDraft(ctx, sid)
	if err != nil {
		s.logger(ctx, "checkout.draft.load_failed", map[string]any{"error": err.Error()})
	}
	quote, err := s.shipping.Quote(ctx, values.Destination())
	if err != nil {
		return PaymentSelection{}, err
	}
	cfg := s.config.Current(ctx)
	return SelectPaymentMethods(cfg.PaymentMethods, quote.AllowCOD, s.policy), nil
}

func (s *checkoutService) Preview(ctx context.Context, sessionID string, values *CheckoutFormValues) (CheckoutPreview, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return CheckoutPreview{}, err
	}
	cc, err := s.prepare(ctx, sid, values)
	if err != nil {
		return CheckoutPreview{}, err
	}
	valid := len(cc.errors) == 0 && !cc.cart.IsEmpty() && !cc.payment.ContactAdmin && cc.totals.Subtotal >= cc.minOrder
	return CheckoutPreview{
		Values:   cc.values,
		Totals:   cc.totals,
		Shipping: cc.quote,
		Payment:  cc.payment,
		Errors:   cc.errors,
		Valid:    valid,
	}, nil
}

func (s *checkoutService) Submit(ctx context.Context, sessionID string, values *CheckoutFormValues) (CheckoutStatus, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return CheckoutStatus{}, err
	}
	if err := s.begin(sid); err != nil {
		return s.Status(ctx, sid), err
	}

	unlock, err := s.locks.Lock(ctx, sid)
	if err != nil {
		s.setIdle(sid)
		return s.Status(ctx, sid), fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	defer unlock()

	if values != nil {
		if err := s.drafts.Save(ctx, sid, SanitizeFormValues(*values)); err != nil {
			s.logger(ctx, "checkout.draft.save_failed", map[string]any{"error": err.Error()})
		}
	}

	cc, err := s.prepare(ctx, sid, values)
	if err != nil {
		s.setIdle(sid)
		return s.Status(ctx, sid), err
	}
	if err := s.precheck(cc); err != nil {
		s.setIdle(sid)
		s.record(ctx, outcomeOf(err))
		return s.Status(ctx, sid), err
	}

	order, err := AssembleOrder(CheckoutSnapshot{
		SessionID: sid,
		Items:     cc.cart.Items,
		Totals:    cc.totals,
		Shipping:  cc.quote,
		Form:      cc.values,
		Config:    cc.config,
	})
	if err != nil {
		s.setIdle(sid)
		s.record(ctx, "invalid")
		return s.Status(ctx, sid), err
	}

	created, err := s.persist(ctx, cc.cart, order)
	if err != nil {
		s.logger(ctx, "checkout.submit.failed", map[string]any{
			"error": err.Error(),
			"total": order.Total,
		})
		s.record(ctx, "failed")
		status := s.setState(sid, CheckoutStatus{State: CheckoutError, Message: msgSubmitFailed})
		return status, fmt.Errorf("%w: %v", ErrCheckoutFailed, err)
	}

	if err := s.forms.ClearDraft(ctx, sid); err != nil {
		s.logger(ctx, "checkout.draft.clear_failed", map[string]any{"error": err.Error(), "orderId": created.ID})
	}

	status := s.setState(sid, CheckoutStatus{
		State:       CheckoutSuccess,
		OrderID:     created.ID,
		OrderNumber: created.OrderNumber,
		Total:       created.Total,
		Currency:    created.Currency,
	})
	s.record(ctx, "success")
	s.logger(ctx, "checkout.submit.succeeded", map[string]any{
		"orderId":     created.ID,
		"orderNumber": created.OrderNumber,
		"total":       created.Total,
		"method":      string(created.Payment.Method),
	})
	publishOrderEvent(ctx, s.events, s.logger, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       created.ID,
		OrderNumber:   created.OrderNumber,
		CurrentStatus: string(created.Status),
		Total:         created.Total,
		Currency:      created.Currency,
		Metadata: map[string]any{
			"paymentMethod": string(created.Payment.Method),
			"items":         len(created.Items),
			"shippingRule":  created.ShippingMethod.RuleID,
		},
	}, s.clock, s.newID)
	return status, nil
}

func (s *checkoutService) Status(_ context.Context, sessionID string) CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[strings.TrimSpace(sessionID)]; ok {
		return sess.status
	}
	return CheckoutStatus{State: CheckoutIdle}
}

func (s *checkoutService) Retry(ctx context.Context, sessionID string) (CheckoutStatus, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return CheckoutStatus{}, err
	}
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	if ok && sess.status.State == CheckoutError {
		delete(s.sessions, sid)
		ok = false
	}
	s.mu.Unlock()
	if ok && sess.status.State == CheckoutSubmitting {
		return sess.status, ErrCheckoutInFlight
	}
	return s.Status(ctx, sid), nil
}

// Close schedules the reset of a successful submission back to idle.
func (s *checkoutService) Close(ctx context.Context, sessionID string) CheckoutStatus {
	sid := strings.TrimSpace(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return CheckoutStatus{State: CheckoutIdle}
	}
	if sess.status.State != CheckoutSuccess || sess.resetScheduled {
		return sess.status
	}
	orderID := sess.status.OrderID
	sess.resetScheduled = true
	s.afterFunc(s.resetDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if current, ok := s.sessions[sid]; ok && current.status.State == CheckoutSuccess && current.status.OrderID == orderID {
			delete(s.sessions, sid)
		}
	})
	s.logger(ctx, "checkout.reset.scheduled", map[string]any{"orderId": orderID})
	return sess.status
}

// begin moves the session to submitting. A session in error starts over.
func (s *checkoutService) begin(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		switch sess.status.State {
		case CheckoutSubmitting:
			return ErrCheckoutInFlight
		case CheckoutSuccess:
			return ErrCheckoutCompleted
		}
	}
	s.sessions[sessionID] = &checkoutSession{status: CheckoutStatus{State: CheckoutSubmitting}}
	return nil
}

func (s *checkoutService) setIdle(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *checkoutService) setState(sessionID string, status CheckoutStatus) CheckoutStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = &checkoutSession{status: status}
	return status
}

// prepare snapshots the cart, shipping quote, store config and form values of a session.
func (s *checkoutService) prepare(ctx context.Context, sessionID string, values *CheckoutFormValues) (checkoutContext, error) {
	var form CheckoutFormValues
	if values != nil {
		form = SanitizeFormValues(*values)
	} else {
		draft, err := s.forms.LoadDraft(ctx, sessionID)
		if err != nil {
			s.logger(ctx, "checkout.draft.load_failed", map[string]any{"error": err.Error()})
		}
		form = draft
	}

	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil && !isRepoNotFound(err) {
		return checkoutContext{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}
	cart = cart.Snapshot()

	quote, err := s.shipping.Quote(ctx, form.Destination())
	if err != nil {
		return checkoutContext{}, err
	}
	cfg := s.config.Current(ctx)
	payment := SelectPaymentMethods(cfg.PaymentMethods, quote.AllowCOD, s.policy)
	totals := cart.Totals(quote.Cost)

	errs := s.forms.Validate(form, FormRules{
		Total:    totals.Total,
		Currency: ResolveCurrency(cfg.Currency),
		Methods:  payment.MethodList(),
	})

	return checkoutContext{
		cart:     cart,
		totals:   totals,
		quote:    quote,
		config:   cfg,
		payment:  payment,
		values:   form,
		errors:   errs,
		minOrder: cfg.OrderRules.MinOrderAmount,
	}, nil
}

func (s *checkoutService) precheck(cc checkoutContext) error {
	if cc.cart.IsEmpty() {
		return ErrCheckoutEmptyCart
	}
	if len(cc.errors) > 0 {
		return NewInvalidFormError(cc.errors)
	}
	if cc.minOrder > 0 && cc.totals.Subtotal < cc.minOrder {
		currency := ResolveCurrency(cc.config.Currency)
		return fmt.Errorf("%w: el pedido mínimo es %s", ErrCheckoutMinimumOrder, format.Currency(cc.minOrder, currency))
	}
	return nil
}

// persist numbers the order, empties the session cart and stores the order in
// one unit of work, so an order never exists next to the cart it was built
// from. Cart stores that cannot join the transaction get the cart back when
// the unit fails after the cart was emptied.
func (s *checkoutService) persist(ctx context.Context, cart Cart, order Order) (Order, error) {
	cart.SessionID = order.SessionID
	var created Order
	cleared := false
	err := s.unit.RunInTx(ctx, func(txCtx context.Context) error {
		seq, err := s.counters.Next(txCtx, orderCounterID, 1)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		order.OrderNumber = fmt.Sprintf("%s-%06d", s.numberPrefix, seq)
		if err := s.clearCart(txCtx, order.SessionID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		cleared = true
		saved, err := s.orders.Create(txCtx, order)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		created = saved
		return nil
	})
	if err != nil {
		if cleared {
			s.restoreCart(ctx, cart)
		}
		return Order{}, err
	}
	return created, nil
}

// clearCart empties the stored cart, backing off between attempts.
func (s *checkoutService) clearCart(ctx context.Context, sessionID string) error {
	backoff := gax.Backoff{Initial: 50 * time.Millisecond, Max: time.Second, Multiplier: 2}
	var err error
	for attempt := 1; attempt <= s.clearTries; attempt++ {
		if err = s.carts.Delete(ctx, sessionID); err == nil {
			return nil
		}
		s.logger(ctx, "checkout.cart.clear_retry", map[string]any{"attempt": attempt, "error": err.Error()})
		if attempt == s.clearTries {
			break
		}
		if sleepErr := s.sleep(ctx, backoff.Pause()); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}

func (s *checkoutService) restoreCart(ctx context.Context, cart Cart) {
	if _, err := s.carts.Save(ctx, cart); err != nil {
		s.logger(ctx, "checkout.cart.restore_failed", map[string]any{"error": err.Error(), "items": len(cart.Items)})
	}
}

func (s *checkoutService) record(ctx context.Context, outcome string) {
	s.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrCheckoutEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrCheckoutMinimumOrder):
		return "minimum_order"
	default:
		return "invalid"
	}
}
