package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

type testRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e testRepoError) Error() string       { return e.msg }
func (e testRepoError) IsNotFound() bool    { return e.notFound }
func (e testRepoError) IsConflict() bool    { return e.conflict }
func (e testRepoError) IsUnavailable() bool { return e.unavailable }

var (
	errRepoNotFound    = testRepoError{msg: "not found", notFound: true}
	errRepoUnavailable = testRepoError{msg: "backend down", unavailable: true}
)

type memCartRepo struct {
	mu        sync.Mutex
	carts     map[string]domain.Cart
	getErr    error
	saveErr   error
	deleteErr func(attempt int) error
	deletes   int
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string]domain.Cart)}
}

func (r *memCartRepo) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return domain.Cart{}, r.getErr
	}
	cart, ok := r.carts[sessionID]
	if !ok {
		return domain.Cart{SessionID: sessionID, Items: []domain.CartItem{}}, nil
	}
	return cart.Snapshot(), nil
}

func (r *memCartRepo) Save(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return domain.Cart{}, r.saveErr
	}
	r.carts[cart.SessionID] = cart.Snapshot()
	return cart, nil
}

func (r *memCartRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		if err := r.deleteErr(r.deletes); err != nil {
			return err
		}
	}
	delete(r.carts, sessionID)
	return nil
}

func (r *memCartRepo) items(sessionID string) []domain.CartItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.carts[sessionID].Items
}

type memDraftRepo struct {
	mu      sync.Mutex
	drafts  map[string]domain.CheckoutFormValues
	loadErr error
	saveErr error
}

func newMemDraftRepo() *memDraftRepo {
	return &memDraftRepo{drafts: make(map[string]domain.CheckoutFormValues)}
}

func (r *memDraftRepo) Load(_ context.Context, sessionID string) (domain.CheckoutFormValues, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return domain.CheckoutFormValues{}, false, r.loadErr
	}
	values, ok := r.drafts[sessionID]
	return values, ok, nil
}

func (r *memDraftRepo) Save(_ context.Context, sessionID string, values domain.CheckoutFormValues) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.drafts[sessionID] = values
	return nil
}

func (r *memDraftRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, sessionID)
	return nil
}

type memOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	seq       int
	createErr error
	createFn  func(ctx context.Context, order domain.Order) (domain.Order, error)
	now       func() time.Time
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{
		orders: make(map[string]domain.Order),
		now:    func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func (r *memOrderRepo) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r.createFn != nil {
		return r.createFn(ctx, order)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return domain.Order{}, r.createErr
	}
	r.seq++
	if order.ID == "" {
		order.ID = fmt.Sprintf("ord_%03d", r.seq)
	}
	now := r.now().Add(time.Duration(r.seq) * time.Minute)
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = order
	return order, nil
}

func (r *memOrderRepo) List(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if len(filter.Status) > 0 {
			match := false
			for _, status := range filter.Status {
				match = match || order.Status == status
			}
			if !match {
				continue
			}
		}
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.PageSize > 0 && len(out) > filter.PageSize {
		out = out[:filter.PageSize]
	}
	return domain.CursorPage[domain.Order]{Items: out}, nil
}

func (r *memOrderRepo) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	return order, nil
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	order.Status = status
	order.UpdatedAt = r.now().Add(time.Hour)
	r.orders[orderID] = order
	return order, nil
}

func (r *memOrderRepo) Delete(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[orderID]; !ok {
		return errRepoNotFound
	}
	delete(r.orders, orderID)
	return nil
}

type stubCounterRepo struct {
	mu     sync.Mutex
	values map[string]int64
	err    error
}

func (s *stubCounterRepo) Next(_ context.Context, counterID string, step int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	if s.values == nil {
		s.values = make(map[string]int64)
	}
	s.values[counterID] += step
	return s.values[counterID], nil
}

type stubShippingRepo struct {
	cfg     domain.ShippingConfig
	getErr  error
	saveErr error
	saved   []domain.ShippingConfig
}

func (s *stubShippingRepo) Get(context.Context) (domain.ShippingConfig, error) {
	if s.getErr != nil {
		return domain.ShippingConfig{}, s.getErr
	}
	return s.cfg, nil
}

func (s *stubShippingRepo) Save(_ context.Context, cfg domain.ShippingConfig) (domain.ShippingConfig, error) {
	if s.saveErr != nil {
		return domain.ShippingConfig{}, s.saveErr
	}
	s.saved = append(s.saved, cfg)
	s.cfg = cfg
	return cfg, nil
}

type stubCommerceRepo struct {
	getFn   func(ctx context.Context) (domain.CommerceConfig, error)
	saveFn  func(ctx context.Context, cfg domain.CommerceConfig) (domain.CommerceConfig, error)
	watchFn func(ctx context.Context, fn func(domain.CommerceConfig)) error
}

func (s *stubCommerceRepo) Get(ctx context.Context) (domain.CommerceConfig, error) {
	if s.getFn != nil {
		return s.getFn(ctx)
	}
	return domain.CommerceConfig{}, errRepoNotFound
}

func (s *stubCommerceRepo) Save(ctx context.Context, cfg domain.CommerceConfig) (domain.CommerceConfig, error) {
	if s.saveFn != nil {
		return s.saveFn(ctx, cfg)
	}
	return cfg, nil
}

func (s *stubCommerceRepo) Watch(ctx context.Context, fn func(domain.CommerceConfig)) error {
	if s.watchFn != nil {
		return s.watchFn(ctx, fn)
	}
	<-ctx.Done()
	return ctx.Err()
}

type staticCommerceConfig struct {
	cfg domain.CommerceConfig
}

func (s staticCommerceConfig) Current(context.Context) domain.CommerceConfig { return s.cfg }
func (s staticCommerceConfig) Start(context.Context) error                   { return nil }
func (s staticCommerceConfig) Update(_ context.Context, cfg domain.CommerceConfig) (domain.CommerceConfig, error) {
	return cfg, nil
}

type captureEvents struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (c *captureEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.err
}

func (c *captureEvents) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, event := range c.events {
		out = append(out, event.Type)
	}
	return out
}

type recordingUnitOfWork struct {
	calls     int
	commitErr error
}

func (u *recordingUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	u.calls++
	if err := fn(ctx); err != nil {
		return err
	}
	return u.commitErr
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
}
