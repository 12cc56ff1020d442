package repositories

import (
	"context"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Orders() OrderRepository
	ShippingConfig() ShippingConfigRepository
	CommerceConfig() CommerceConfigRepository
	Carts() CartRepository
	Drafts() DraftRepository
	Counters() CounterRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// OrderRepository persists checkout orders.
type OrderRepository interface {
	// Create assigns the id and timestamps when absent and stores the order.
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	// List returns orders newest first.
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
	Delete(ctx context.Context, orderID string) error
}

// ShippingConfigRepository stores the single shipping rule set document.
type ShippingConfigRepository interface {
	Get(ctx context.Context) (domain.ShippingConfig, error)
	Save(ctx context.Context, cfg domain.ShippingConfig) (domain.ShippingConfig, error)
}

// CommerceConfigRepository stores the store-wide commerce settings.
type CommerceConfigRepository interface {
	Get(ctx context.Context) (domain.CommerceConfig, error)
	Save(ctx context.Context, cfg domain.CommerceConfig) (domain.CommerceConfig, error)
	// Watch invokes fn with every new version of the settings until ctx is done.
	Watch(ctx context.Context, fn func(domain.CommerceConfig)) error
}

// CartRepository stores session carts. Get returns an empty cart when none exists.
type CartRepository interface {
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Delete(ctx context.Context, sessionID string) error
}

// DraftKey is the fixed key under which the checkout form snapshot is stored.
const DraftKey = "checkout_form_data"

// DraftRepository stores checkout form drafts per session.
type DraftRepository interface {
	// Load returns found=false when the session has no draft.
	Load(ctx context.Context, sessionID string) (values domain.CheckoutFormValues, found bool, err error)
	Save(ctx context.Context, sessionID string, values domain.CheckoutFormValues) error
	Delete(ctx context.Context, sessionID string) error
}

// CounterRepository provides transaction-safe sequence numbers. Next joins a
// transaction already running on ctx.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// OrderListFilter narrows admin order listings.
type OrderListFilter struct {
	Status    []domain.OrderStatus
	PageSize  int
	PageToken string
}
