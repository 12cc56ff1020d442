package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/location"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	shippingRuleIDPrefix = "shr_"
	defaultRuleID        = "default"
)

var (
	// ErrShippingInvalidInput signals an invalid shipping rule set.
	ErrShippingInvalidInput = errors.New("shipping: invalid input")
	// ErrShippingUnavailable indicates the shipping configuration could not be read or written.
	ErrShippingUnavailable = errors.New("shipping: configuration unavailable")
)

// ShippingServiceDeps bundles collaborators required to construct the shipping service.
type ShippingServiceDeps struct {
	Repository repositories.ShippingConfigRepository
	// Fallback prices every destination when the configuration is missing or unreadable.
	Fallback    ShippingRule
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type shippingService struct {
	repo     repositories.ShippingConfigRepository
	fallback ShippingRule
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
}

// NewShippingService wires dependencies into a ShippingService implementation.
func NewShippingService(deps ShippingServiceDeps) (ShippingService, error) {
	if deps.Repository == nil {
		return nil, errors.New("shipping service: repository is required")
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
	fallback := deps.Fallback
	if fallback.ID == "" {
		fallback.ID = defaultRuleID
	}
	fallback.IsActive = true

	return &shippingService{
		repo:     deps.Repository,
		fallback: fallback,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *shippingService) GetConfig(ctx context.Context) (ShippingConfig, error) {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if isRepoNotFound(err) {
			return s.fallbackConfig(), nil
		}
		return ShippingConfig{}, fmt.Errorf("%w: %v", ErrShippingUnavailable, err)
	}
	return cfg, nil
}

func (s *shippingService) UpdateConfig(ctx context.Context, cmd UpdateShippingConfigCommand) (ShippingConfig, error) {
	cfg, err := s.normaliseConfig(cmd)
	if err != nil {
		return ShippingConfig{}, err
	}
	cfg.UpdatedAt = s.clock()

	saved, err := s.repo.Save(ctx, cfg)
	if err != nil {
		return ShippingConfig{}, fmt.Errorf("%w: %v", ErrShippingUnavailable, err)
	}
	s.logger(ctx, "shipping.config.updated", map[string]any{
		"rules": len(saved.Rules),
		"actor": cmd.ActorID,
	})
	return saved, nil
}

func (s *shippingService) Quote(ctx context.Context, dest Destination) (ShippingQuote, error) {
	cfg := s.load(ctx)
	quote := ResolveShipping(dest, cfg.Rules, cfg.DefaultRule)
	if zone, ok := location.Coverage(dest); ok {
		quote.Coverage = string(zone)
	}
	return quote, nil
}

// load reads the configuration, degrading to the fallback rule on any failure.
func (s *shippingService) load(ctx context.Context) ShippingConfig {
	cfg, err := s.repo.Get(ctx)
	if err != nil {
		if !isRepoNotFound(err) {
			s.logger(ctx, "shipping.config.fallback", map[string]any{"error": err.Error()})
		}
		return s.fallbackConfig()
	}
	return cfg
}

func (s *shippingService) fallbackConfig() ShippingConfig {
	return ShippingConfig{DefaultRule: s.fallback}
}

func (s *shippingService) normaliseConfig(cmd UpdateShippingConfigCommand) (ShippingConfig, error) {
	seen := make(map[string]struct{}, len(cmd.Rules))
	rules := make([]ShippingRule, 0, len(cmd.Rules))
	for i, rule := range cmd.Rules {
		rule.Value = strings.TrimSpace(rule.Value)
		rule.ID = strings.TrimSpace(rule.ID)
		switch rule.Type {
		case domain.ShippingRuleCity, domain.ShippingRuleDepartment:
		default:
			return ShippingConfig{}, fmt.Errorf("%w: rules[%d].type must be city or department", ErrShippingInvalidInput, i)
		}
		if rule.Value == "" {
			return ShippingConfig{}, fmt.Errorf("%w: rules[%d].value is required", ErrShippingInvalidInput, i)
		}
		if err := validateRulePricing(rule); err != nil {
			return ShippingConfig{}, fmt.Errorf("%w: rules[%d].%s", ErrShippingInvalidInput, i, err.Error())
		}
		if rule.ID == "" {
			rule.ID = shippingRuleIDPrefix + s.newID()
		}
		if _, dup := seen[rule.ID]; dup {
			return ShippingConfig{}, fmt.Errorf("%w: duplicate rule id %s", ErrShippingInvalidInput, rule.ID)
		}
		seen[rule.ID] = struct{}{}
		rules = append(rules, rule)
	}

	def := cmd.DefaultRule
	if err := validateRulePricing(def); err != nil {
		return ShippingConfig{}, fmt.Errorf("%w: defaultRule.%s", ErrShippingInvalidInput, err.Error())
	}
	def.ID = strings.TrimSpace(def.ID)
	if def.ID == "" {
		def.ID = defaultRuleID
	}
	def.IsActive = true

	return ShippingConfig{Rules: rules, DefaultRule: def}, nil
}

func validateRulePricing(rule ShippingRule) error {
	if rule.Cost < 0 {
		return errors.New("cost must be >= 0")
	}
	minDays, maxDays := rule.DeliveryDays.Min, rule.DeliveryDays.Max
	if (minDays != nil && *minDays < 0) || (maxDays != nil && *maxDays < 0) {
		return errors.New("deliveryDays must be >= 0")
	}
	if minDays != nil && maxDays != nil && *minDays > *maxDays {
		return errors.New("deliveryDays.min must be <= deliveryDays.max")
	}
	return nil
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
