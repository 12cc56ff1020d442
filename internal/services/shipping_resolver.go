package services

import (
	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/textutil"
)

// ResolveShipping picks the rule that prices delivery to dest. An active city
// rule beats an active department rule, which beats defaultRule. Within a tier
// the first rule in slice order wins. Comparisons ignore case and accents.
func ResolveShipping(dest Destination, rules []ShippingRule, defaultRule ShippingRule) ShippingQuote {
	city := textutil.Fold(dest.City)
	department := textutil.Fold(dest.Department)

	if city != "" {
		if rule, ok := firstActiveRule(rules, domain.ShippingRuleCity, city); ok {
			return quoteFromRule(rule, domain.ShippingMatchCity)
		}
	}
	if department != "" {
		if rule, ok := firstActiveRule(rules, domain.ShippingRuleDepartment, department); ok {
			return quoteFromRule(rule, domain.ShippingMatchDepartment)
		}
	}
	return quoteFromRule(defaultRule, domain.ShippingMatchDefault)
}

func firstActiveRule(rules []ShippingRule, kind domain.ShippingRuleType, folded string) (ShippingRule, bool) {
	for _, rule := range rules {
		if !rule.IsActive || rule.Type != kind {
			continue
		}
		if textutil.Fold(rule.Value) == folded {
			return rule, true
		}
	}
	return ShippingRule{}, false
}

func quoteFromRule(rule ShippingRule, match domain.ShippingMatch) ShippingQuote {
	return ShippingQuote{
		Cost:         rule.Cost,
		DeliveryDays: cloneDeliveryDays(rule.DeliveryDays),
		AllowCOD:     rule.AllowCOD,
		RuleID:       rule.ID,
		Match:        match,
	}
}

func cloneDeliveryDays(days domain.DeliveryDays) domain.DeliveryDays {
	var out domain.DeliveryDays
	if days.Min != nil {
		v := *days.Min
		out.Min = &v
	}
	if days.Max != nil {
		v := *days.Max
		out.Max = &v
	}
	return out
}
