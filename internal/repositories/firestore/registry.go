package firestore

import (
	"context"
	"errors"
	"time"

	pfirestore "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/firestore"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

// Registry implements repositories.Registry on top of a single Firestore provider.
type Registry struct {
	provider *pfirestore.Provider
	orders   *OrderRepository
	shipping *ShippingConfigRepository
	commerce *CommerceConfigRepository
	counters *CounterRepository
	carts    repositories.CartRepository
	drafts   repositories.DraftRepository
	closers  []func(context.Context) error
}

var _ repositories.Registry = (*Registry)(nil)

// RegistryOption customises the registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	sessionTTL time.Duration
	carts      repositories.CartRepository
	drafts     repositories.DraftRepository
	closers    []func(context.Context) error
}

// WithSessionTTL sets how long idle session documents are kept.
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.sessionTTL = ttl
	}
}

// WithSessionStore replaces the Firestore cart and draft repositories, for
// example with the Redis implementations. closer, when set, runs on Close.
func WithSessionStore(carts repositories.CartRepository, drafts repositories.DraftRepository, closer func(context.Context) error) RegistryOption {
	return func(o *registryOptions) {
		o.carts = carts
		o.drafts = drafts
		if closer != nil {
			o.closers = append(o.closers, closer)
		}
	}
}

// NewRegistry builds every repository over provider.
func NewRegistry(provider *pfirestore.Provider, opts ...RegistryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}
	options := registryOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	shipping, err := NewShippingConfigRepository(provider)
	if err != nil {
		return nil, err
	}
	commerce, err := NewCommerceConfigRepository(provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(provider)
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		provider: provider,
		orders:   orders,
		shipping: shipping,
		commerce: commerce,
		counters: counters,
		carts:    options.carts,
		drafts:   options.drafts,
		closers:  options.closers,
	}
	if reg.carts == nil || reg.drafts == nil {
		sessions, err := NewSessionRepository(provider, options.sessionTTL)
		if err != nil {
			return nil, err
		}
		if reg.carts == nil {
			reg.carts = sessions.Carts()
		}
		if reg.drafts == nil {
			reg.drafts = sessions.Drafts()
		}
	}
	return reg, nil
}

func (r *Registry) Orders() repositories.OrderRepository                  { return r.orders }
func (r *Registry) ShippingConfig() repositories.ShippingConfigRepository { return r.shipping }
func (r *Registry) CommerceConfig() repositories.CommerceConfigRepository { return r.commerce }
func (r *Registry) Carts() repositories.CartRepository                    { return r.carts }
func (r *Registry) Drafts() repositories.DraftRepository                  { return r.drafts }
func (r *Registry) Counters() repositories.CounterRepository              { return r.counters }

// RunInTx runs fn in a Firestore transaction carried on ctx. Cart and draft
// writes do not join it when a Redis session store is configured.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.provider.RunInTx(ctx, fn)
}

// Close releases the session store and the Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, closer := range r.closers {
		if err := closer(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := r.provider.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
