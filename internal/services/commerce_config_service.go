package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/currency"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

var (
	// ErrCommerceConfigInvalid signals an invalid store configuration update.
	ErrCommerceConfigInvalid = errors.New("commerce config: invalid input")
	// ErrCommerceConfigUnavailable indicates the configuration store could not be written.
	ErrCommerceConfigUnavailable = errors.New("commerce config: unavailable")
)

// CommerceConfigServiceDeps bundles collaborators required to construct the commerce config service.
type CommerceConfigServiceDeps struct {
	Repository repositories.CommerceConfigRepository
	Clock      func() time.Time
	Logger     func(ctx context.Context, event string, fields map[string]any)
}

type commerceConfigService struct {
	repo   repositories.CommerceConfigRepository
	clock  func() time.Time
	logger func(context.Context, string, map[string]any)

	mu     sync.RWMutex
	cached *CommerceConfig
}

// NewCommerceConfigService wires dependencies into a CommerceConfigService implementation.
func NewCommerceConfigService(deps CommerceConfigServiceDeps) (CommerceConfigService, error) {
	if deps.Repository == nil {
		return nil, errors.New("commerce config service: repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &commerceConfigService{
		repo: deps.Repository,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *commerceConfigService) Current(ctx context.Context) CommerceConfig {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return *cached
	}

	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if !isRepoNotFound(err) {
			s.logger(ctx, "commerce.config.fallback", map[string]any{"error": err.Error()})
			return domain.DefaultCommerceConfig()
		}
		cfg = domain.DefaultCommerceConfig()
	}
	cfg = normaliseCommerceConfig(cfg)
	s.store(cfg)
	return cfg
}

// Start blocks, refreshing the cache from the live subscription until ctx is done.
func (s *commerceConfigService) Start(ctx context.Context) error {
	err := s.repo.Watch(ctx, func(cfg CommerceConfig) {
		cfg = normaliseCommerceConfig(cfg)
		s.store(cfg)
		s.logger(ctx, "commerce.config.refreshed", map[string]any{
			"currency": cfg.Currency,
			"timezone": cfg.Timezone,
		})
	})
	if err != nil && ctx.Err() == nil {
		s.logger(ctx, "commerce.config.watch_failed", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

func (s *commerceConfigService) Update(ctx context.Context, cfg CommerceConfig) (CommerceConfig, error) {
	if err := validateCommerceConfig(cfg); err != nil {
		return CommerceConfig{}, err
	}
	cfg.StoreName = stripMarkup(cfg.StoreName)
	cfg.Currency = strings.ToUpper(strings.TrimSpace(cfg.Currency))
	cfg.Timezone = strings.TrimSpace(cfg.Timezone)
	cfg.UpdatedAt = s.clock()

	saved, err := s.repo.Save(ctx, cfg)
	if err != nil {
		return CommerceConfig{}, fmt.Errorf("%w: %v", ErrCommerceConfigUnavailable, err)
	}
	saved = normaliseCommerceConfig(saved)
	s.store(saved)
	s.logger(ctx, "commerce.config.updated", map[string]any{
		"currency": saved.Currency,
		"timezone": saved.Timezone,
		"minOrder": saved.OrderRules.MinOrderAmount,
	})
	return saved, nil
}

func (s *commerceConfigService) store(cfg CommerceConfig) {
	s.mu.Lock()
	s.cached = &cfg
	s.mu.Unlock()
}

func validateCommerceConfig(cfg CommerceConfig) error {
	code := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if code == "" {
		return fmt.Errorf("%w: currency is required", ErrCommerceConfigInvalid)
	}
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("%w: currency %q is not an ISO 4217 code", ErrCommerceConfigInvalid, cfg.Currency)
	}
	zone := strings.TrimSpace(cfg.Timezone)
	if zone == "" {
		return fmt.Errorf("%w: timezone is required", ErrCommerceConfigInvalid)
	}
	if _, err := time.LoadLocation(zone); err != nil || zone == "Local" {
		return fmt.Errorf("%w: timezone %q is not an IANA zone", ErrCommerceConfigInvalid, cfg.Timezone)
	}
	if cfg.OrderRules.MinOrderAmount < 0 {
		return fmt.Errorf("%w: orderRules.minOrderAmount must be >= 0", ErrCommerceConfigInvalid)
	}
	return nil
}

// normaliseCommerceConfig replaces unusable currency and timezone values with the defaults.
func normaliseCommerceConfig(cfg CommerceConfig) CommerceConfig {
	cfg.Currency = ResolveCurrency(cfg.Currency)
	cfg.Timezone = ResolveTimezone(cfg.Timezone)
	if cfg.OrderRules.MinOrderAmount < 0 {
		cfg.OrderRules.MinOrderAmount = 0
	}
	return cfg
}
