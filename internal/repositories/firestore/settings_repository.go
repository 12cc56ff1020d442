package firestore

import (
	"context"
	"errors"
	"time"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	pfirestore "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/firestore"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	settingsCollection  = "settings"
	shippingSettingsDoc = "shipping"
	commerceSettingsDoc = "commerce"
)

// ShippingConfigRepository stores the shipping rule set in settings/shipping.
type ShippingConfigRepository struct {
	base *pfirestore.BaseRepository[shippingConfigDocument]
	now  func() time.Time
}

var _ repositories.ShippingConfigRepository = (*ShippingConfigRepository)(nil)

// NewShippingConfigRepository constructs a Firestore-backed shipping config repository.
func NewShippingConfigRepository(provider *pfirestore.Provider) (*ShippingConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("shipping config repository requires firestore provider")
	}
	return &ShippingConfigRepository{
		base: pfirestore.NewBaseRepository[shippingConfigDocument](provider, settingsCollection, nil, nil),
		now:  time.Now,
	}, nil
}

// Get returns the stored rule set; a missing document is a not-found error.
func (r *ShippingConfigRepository) Get(ctx context.Context) (domain.ShippingConfig, error) {
	doc, err := r.base.Get(ctx, shippingSettingsDoc)
	if err != nil {
		return domain.ShippingConfig{}, err
	}
	return doc.Data.toDomain(), nil
}

// Save replaces the rule set, preserving rule order.
func (r *ShippingConfigRepository) Save(ctx context.Context, cfg domain.ShippingConfig) (domain.ShippingConfig, error) {
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = r.now().UTC()
	}
	if _, err := r.base.Set(ctx, shippingSettingsDoc, newShippingConfigDocument(cfg)); err != nil {
		return domain.ShippingConfig{}, err
	}
	return cfg, nil
}

// CommerceConfigRepository stores store-wide settings in settings/commerce.
type CommerceConfigRepository struct {
	base *pfirestore.BaseRepository[commerceConfigDocument]
	now  func() time.Time
}

var _ repositories.CommerceConfigRepository = (*CommerceConfigRepository)(nil)

// NewCommerceConfigRepository constructs a Firestore-backed commerce config repository.
func NewCommerceConfigRepository(provider *pfirestore.Provider) (*CommerceConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("commerce config repository requires firestore provider")
	}
	return &CommerceConfigRepository{
		base: pfirestore.NewBaseRepository[commerceConfigDocument](provider, settingsCollection, nil, nil),
		now:  time.Now,
	}, nil
}

// Get returns the stored settings; a missing document is a not-found error.
func (r *CommerceConfigRepository) Get(ctx context.Context) (domain.CommerceConfig, error) {
	doc, err := r.base.Get(ctx, commerceSettingsDoc)
	if err != nil {
		return domain.CommerceConfig{}, err
	}
	return doc.Data.toDomain(), nil
}

// Save replaces the settings document.
func (r *CommerceConfigRepository) Save(ctx context.Context, cfg domain.CommerceConfig) (domain.CommerceConfig, error) {
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = r.now().UTC()
	}
	if _, err := r.base.Set(ctx, commerceSettingsDoc, commerceConfigDocument{
		StoreName:      cfg.StoreName,
		Currency:       cfg.Currency,
		Timezone:       cfg.Timezone,
		PaymentMethods: paymentMethodsDocument(cfg.PaymentMethods),
		OrderRules:     orderRulesDocument(cfg.OrderRules),
		UpdatedAt:      cfg.UpdatedAt,
	}); err != nil {
		return domain.CommerceConfig{}, err
	}
	return cfg, nil
}

// Watch pushes every new version of settings/commerce to fn until ctx ends.
func (r *CommerceConfigRepository) Watch(ctx context.Context, fn func(domain.CommerceConfig)) error {
	return r.base.Watch(ctx, commerceSettingsDoc, func(doc pfirestore.Document[commerceConfigDocument]) {
		fn(doc.Data.toDomain())
	})
}

type deliveryDaysDocument struct {
	Min *int `firestore:"min,omitempty"`
	Max *int `firestore:"max,omitempty"`
}

type shippingRuleDocument struct {
	ID           string               `firestore:"id"`
	Type         string               `firestore:"type"`
	Value        string               `firestore:"value"`
	Cost         int64                `firestore:"cost"`
	DeliveryDays deliveryDaysDocument `firestore:"deliveryDays"`
	AllowCOD     bool                 `firestore:"allowCOD"`
	IsActive     bool                 `firestore:"isActive"`
}

type shippingConfigDocument struct {
	Rules       []shippingRuleDocument `firestore:"rules"`
	DefaultRule shippingRuleDocument   `firestore:"defaultRule"`
	UpdatedAt   time.Time              `firestore:"updatedAt"`
}

func newShippingRuleDocument(rule domain.ShippingRule) shippingRuleDocument {
	return shippingRuleDocument{
		ID:           rule.ID,
		Type:         string(rule.Type),
		Value:        rule.Value,
		Cost:         rule.Cost,
		DeliveryDays: deliveryDaysDocument(rule.DeliveryDays),
		AllowCOD:     rule.AllowCOD,
		IsActive:     rule.IsActive,
	}
}

func (d shippingRuleDocument) toDomain() domain.ShippingRule {
	return domain.ShippingRule{
		ID:           d.ID,
		Type:         domain.ShippingRuleType(d.Type),
		Value:        d.Value,
		Cost:         d.Cost,
		DeliveryDays: domain.DeliveryDays(d.DeliveryDays),
		AllowCOD:     d.AllowCOD,
		IsActive:     d.IsActive,
	}
}

func newShippingConfigDocument(cfg domain.ShippingConfig) shippingConfigDocument {
	rules := make([]shippingRuleDocument, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		rules = append(rules, newShippingRuleDocument(rule))
	}
	return shippingConfigDocument{
		Rules:       rules,
		DefaultRule: newShippingRuleDocument(cfg.DefaultRule),
		UpdatedAt:   cfg.UpdatedAt.UTC(),
	}
}

func (d shippingConfigDocument) toDomain() domain.ShippingConfig {
	rules := make([]domain.ShippingRule, 0, len(d.Rules))
	for _, rule := range d.Rules {
		rules = append(rules, rule.toDomain())
	}
	return domain.ShippingConfig{
		Rules:       rules,
		DefaultRule: d.DefaultRule.toDomain(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type paymentMethodsDocument struct {
	Cash           bool `firestore:"cash"`
	CardOnDelivery bool `firestore:"cardOnDelivery"`
	Transfer       bool `firestore:"transfer"`
	Nequi          bool `firestore:"nequi"`
}

type orderRulesDocument struct {
	MinOrderAmount int64 `firestore:"minOrderAmount"`
}

type commerceConfigDocument struct {
	StoreName      string                 `firestore:"storeName,omitempty"`
	Currency       string                 `firestore:"currency"`
	Timezone       string                 `firestore:"timezone"`
	PaymentMethods paymentMethodsDocument `firestore:"paymentMethods"`
	OrderRules     orderRulesDocument     `firestore:"orderRules"`
	UpdatedAt      time.Time              `firestore:"updatedAt"`
}

func (d commerceConfigDocument) toDomain() domain.CommerceConfig {
	return domain.CommerceConfig{
		StoreName:      d.StoreName,
		Currency:       d.Currency,
		Timezone:       d.Timezone,
		PaymentMethods: domain.PaymentMethodFlags(d.PaymentMethods),
		OrderRules:     domain.OrderRules(d.OrderRules),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}
