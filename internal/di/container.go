package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/config"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Cart     services.CartService
	Shipping services.ShippingService
	Commerce services.CommerceConfigService
	Forms    services.CheckoutFormService
	Checkout services.CheckoutService
	Orders   services.OrderService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// Option customises optional collaborators.
type Option func(*containerOptions)

type containerOptions struct {
	logger func(ctx context.Context, event string, fields map[string]any)
	events services.OrderEventPublisher
	meter  metric.Meter
	clock  func() time.Time
}

// WithLogger routes service events to logger.
func WithLogger(logger func(ctx context.Context, event string, fields map[string]any)) Option {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithOrderEvents publishes order lifecycle events through publisher.
func WithOrderEvents(publisher services.OrderEventPublisher) Option {
	return func(o *containerOptions) {
		o.events = publisher
	}
}

// WithMeter records checkout metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(o *containerOptions) {
		o.meter = meter
	}
}

// WithClock overrides the time source used by every service.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		o.clock = clock
	}
}

// NewContainer constructs the runtime dependencies. Production wiring passes the Firestore
// registry, while tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	options := containerOptions{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	svc, err := buildServices(ctx, reg, cfg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, opts containerOptions) (Services, error) {
	var svc Services

	shippingSvc, err := services.NewShippingService(services.ShippingServiceDeps{
		Repository: reg.ShippingConfig(),
		Fallback:   fallbackShippingRule(cfg.Checkout),
		Clock:      opts.clock,
		Logger:     opts.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build shipping service: %w", err)
	}
	svc.Shipping = shippingSvc

	commerceSvc, err := services.NewCommerceConfigService(services.CommerceConfigServiceDeps{
		Repository: reg.CommerceConfig(),
		Clock:      opts.clock,
		Logger:     opts.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build commerce config service: %w", err)
	}
	svc.Commerce = commerceSvc

	// Cart edits and checkout submissions for one session serialise on the same locks.
	locks := services.NewSessionLocks()

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Drafts:     reg.Drafts(),
		Shipping:   svc.Shipping,
		Locks:      locks,
		Clock:      opts.clock,
		Logger:     opts.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	formSvc, err := services.NewCheckoutFormService(services.CheckoutFormServiceDeps{
		Drafts: reg.Drafts(),
		Logger: opts.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout form service: %w", err)
	}
	svc.Forms = formSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:             reg.Carts(),
		Drafts:            reg.Drafts(),
		Orders:            reg.Orders(),
		Counters:          reg.Counters(),
		UnitOfWork:        reg,
		Forms:             svc.Forms,
		Shipping:          svc.Shipping,
		Config:            svc.Commerce,
		Events:            opts.events,
		Locks:             locks,
		Payment:           services.PaymentPolicy{EnforceCOD: cfg.Checkout.EnforceCOD},
		ResetDelay:        cfg.Checkout.ResetDelay,
		CartClearAttempts: cfg.Checkout.CartClearAttempts,
		OrderNumberPrefix: cfg.Checkout.OrderNumberPrefix,
		Meter:             opts.meter,
		Clock:             opts.clock,
		Logger:            opts.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:                  reg.Orders(),
		UnrestrictedTransitions: cfg.Orders.UnrestrictedTransitions,
		Clock:                   opts.clock,
		Events:                  opts.events,
		Logger:                  opts.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}

func fallbackShippingRule(cfg config.CheckoutConfig) domain.ShippingRule {
	rule := domain.ShippingRule{
		Type:     domain.ShippingRuleDepartment,
		Cost:     cfg.FallbackShipping,
		AllowCOD: cfg.FallbackAllowCOD,
		IsActive: true,
	}
	if cfg.FallbackMinDays > 0 {
		minDays := cfg.FallbackMinDays
		rule.DeliveryDays.Min = &minDays
	}
	if cfg.FallbackMaxDays > 0 {
		maxDays := cfg.FallbackMaxDays
		rule.DeliveryDays.Max = &maxDays
	}
	return rule
}
