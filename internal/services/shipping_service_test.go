package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
)

func TestResolveShippingCityBeatsDepartment(t *testing.T) {
	rules := []domain.ShippingRule{
		{ID: "dep", Type: domain.ShippingRuleDepartment, Value: "Cundinamarca", Cost: 8000, IsActive: true},
		{ID: "city", Type: domain.ShippingRuleCity, Value: "Bogotá", Cost: 5000, IsActive: true, AllowCOD: true},
	}
	def := domain.ShippingRule{ID: "default", Cost: 15000, IsActive: true}

	quote := ResolveShipping(domain.Destination{City: "Bogotá", Department: "Cundinamarca"}, rules, def)
	if quote.Cost != 5000 || quote.Match != domain.ShippingMatchCity || quote.RuleID != "city" {
		t.Fatalf("expected city rule, got %+v", quote)
	}
	if !quote.AllowCOD {
		t.Fatalf("expected allowCOD to pass through")
	}

	again := ResolveShipping(domain.Destination{City: "Bogotá", Department: "Cundinamarca"}, rules, def)
	if again.Cost != quote.Cost || again.RuleID != quote.RuleID || again.Match != quote.Match {
		t.Fatalf("expected deterministic resolution, got %+v then %+v", quote, again)
	}
}

func TestResolveShippingTiers(t *testing.T) {
	rules := []domain.ShippingRule{
		{ID: "inactive-city", Type: domain.ShippingRuleCity, Value: "medellin", Cost: 1000, IsActive: false},
		{ID: "antioquia-1", Type: domain.ShippingRuleDepartment, Value: "ANTIOQUIA", Cost: 9000, IsActive: true, DeliveryDays: domain.DeliveryDays{Min: intPtr(2), Max: intPtr(4)}},
		{ID: "antioquia-2", Type: domain.ShippingRuleDepartment, Value: "Antioquia", Cost: 9500, IsActive: true},
	}
	def := domain.ShippingRule{ID: "default", Cost: 15000, IsActive: true}

	tests := []struct {
		name   string
		dest   domain.Destination
		ruleID string
		match  domain.ShippingMatch
	}{
		{"inactive city falls to department", domain.Destination{City: "Medellín", Department: "Antioquia"}, "antioquia-1", domain.ShippingMatchDepartment},
		{"first department rule wins", domain.Destination{City: "Envigado", Department: "antioquia"}, "antioquia-1", domain.ShippingMatchDepartment},
		{"unknown destination uses default", domain.Destination{City: "Cali", Department: "Valle del Cauca"}, "default", domain.ShippingMatchDefault},
		{"empty destination uses default", domain.Destination{}, "default", domain.ShippingMatchDefault},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			quote := ResolveShipping(tc.dest, rules, def)
			if quote.RuleID != tc.ruleID || quote.Match != tc.match {
				t.Fatalf("expected %s/%s, got %+v", tc.ruleID, tc.match, quote)
			}
		})
	}

	quote := ResolveShipping(domain.Destination{Department: "Antioquia"}, rules, def)
	*quote.DeliveryDays.Min = 99
	if *rules[1].DeliveryDays.Min != 2 {
		t.Fatalf("expected quote to own its delivery days")
	}
}

func TestShippingServiceQuoteFallsBack(t *testing.T) {
	repo := &stubShippingRepo{getErr: errRepoUnavailable}
	var logged []string
	svc, err := NewShippingService(ShippingServiceDeps{
		Repository: repo,
		Fallback:   domain.ShippingRule{Cost: 15000, AllowCOD: true},
		Logger: func(_ context.Context, event string, _ map[string]any) {
			logged = append(logged, event)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quote, err := svc.Quote(context.Background(), domain.Destination{City: "Medellín", Department: "Antioquia"})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Cost != 15000 || quote.RuleID != defaultRuleID || quote.Match != domain.ShippingMatchDefault {
		t.Fatalf("expected fallback rule, got %+v", quote)
	}
	if quote.Coverage == "" {
		t.Fatalf("expected coverage zone for a known city")
	}
	if len(logged) != 1 || logged[0] != "shipping.config.fallback" {
		t.Fatalf("expected fallback log, got %v", logged)
	}
}

func TestShippingServiceGetConfig(t *testing.T) {
	repo := &stubShippingRepo{getErr: errRepoNotFound}
	svc, err := NewShippingService(ShippingServiceDeps{Repository: repo, Fallback: domain.ShippingRule{Cost: 12000}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := svc.GetConfig(context.Background())
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if cfg.DefaultRule.Cost != 12000 || !cfg.DefaultRule.IsActive || len(cfg.Rules) != 0 {
		t.Fatalf("expected fallback config, got %+v", cfg)
	}

	repo.getErr = errRepoUnavailable
	if _, err := svc.GetConfig(context.Background()); !errors.Is(err, ErrShippingUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestShippingServiceUpdateConfig(t *testing.T) {
	repo := &stubShippingRepo{}
	svc, err := NewShippingService(ShippingServiceDeps{
		Repository:  repo,
		Clock:       fixedClock(),
		IDGenerator: func() string { return "01TEST" },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := svc.UpdateConfig(context.Background(), UpdateShippingConfigCommand{
		Rules: []domain.ShippingRule{
			{Type: domain.ShippingRuleCity, Value: "  Cali ", Cost: 7000, IsActive: true},
		},
		DefaultRule: domain.ShippingRule{Cost: 15000},
	})
	if err != nil {
		t.Fatalf("update config: %v", err)
	}
	if saved.Rules[0].ID != "shr_01TEST" || saved.Rules[0].Value != "Cali" {
		t.Fatalf("expected normalised rule, got %+v", saved.Rules[0])
	}
	if saved.DefaultRule.ID != defaultRuleID || !saved.DefaultRule.IsActive {
		t.Fatalf("expected active default rule, got %+v", saved.DefaultRule)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatalf("expected updatedAt to be set")
	}

	invalid := []UpdateShippingConfigCommand{
		{Rules: []domain.ShippingRule{{Type: "zone", Value: "x"}}},
		{Rules: []domain.ShippingRule{{Type: domain.ShippingRuleCity}}},
		{Rules: []domain.ShippingRule{{Type: domain.ShippingRuleCity, Value: "Cali", Cost: -1}}},
		{Rules: []domain.ShippingRule{{Type: domain.ShippingRuleCity, Value: "Cali", DeliveryDays: domain.DeliveryDays{Min: intPtr(5), Max: intPtr(2)}}}},
		{Rules: []domain.ShippingRule{
			{ID: "a", Type: domain.ShippingRuleCity, Value: "Cali"},
			{ID: "a", Type: domain.ShippingRuleCity, Value: "Palmira"},
		}},
		{DefaultRule: domain.ShippingRule{Cost: -5}},
	}
	for i, cmd := range invalid {
		if _, err := svc.UpdateConfig(context.Background(), cmd); !errors.Is(err, ErrShippingInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
	if len(repo.saved) != 1 {
		t.Fatalf("expected invalid updates not to be saved, got %d saves", len(repo.saved))
	}
}
