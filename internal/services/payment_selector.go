package services

import domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"

// PaymentPolicy tunes how shipping constraints narrow the store's payment methods.
type PaymentPolicy struct {
	// EnforceCOD removes cash and card-on-delivery when the destination does not allow cash on delivery.
	EnforceCOD bool
}

// PaymentOption is one selectable payment method.
type PaymentOption struct {
	Method             PaymentMethod `json:"method"`
	Label              string        `json:"label"`
	RequiresCashAmount bool          `json:"requiresCashAmount"`
}

// PaymentSelection is the outcome of payment method selection. ContactAdmin is
// set when nothing can be offered; checkout cannot proceed in that state.
type PaymentSelection struct {
	Methods      []PaymentOption `json:"methods"`
	ContactAdmin bool            `json:"contactAdmin"`
}

// Allows reports whether method is among the offered options.
func (p PaymentSelection) Allows(method PaymentMethod) bool {
	for _, option := range p.Methods {
		if option.Method == method {
			return true
		}
	}
	return false
}

// MethodList returns the offered methods in display order.
func (p PaymentSelection) MethodList() []PaymentMethod {
	out := make([]PaymentMethod, 0, len(p.Methods))
	for _, option := range p.Methods {
		out = append(out, option.Method)
	}
	return out
}

var paymentLabels = map[PaymentMethod]string{
	domain.PaymentMethodCash:           "Efectivo contra entrega",
	domain.PaymentMethodCardOnDelivery: "Tarjeta contra entrega",
	domain.PaymentMethodTransfer:       "Transferencia bancaria",
	domain.PaymentMethodNequi:          "Nequi",
}

// SelectPaymentMethods lists the enabled methods in fixed order: cash,
// card_on_delivery, transfer, nequi.
func SelectPaymentMethods(flags domain.PaymentMethodFlags, allowCOD bool, policy PaymentPolicy) PaymentSelection {
	candidates := []struct {
		method  PaymentMethod
		enabled bool
	}{
		{domain.PaymentMethodCash, flags.Cash},
		{domain.PaymentMethodCardOnDelivery, flags.CardOnDelivery},
		{domain.PaymentMethodTransfer, flags.Transfer},
		{domain.PaymentMethodNequi, flags.Nequi},
	}

	methods := make([]PaymentOption, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.enabled {
			continue
		}
		if policy.EnforceCOD && !allowCOD && candidate.method.IsCashOnDelivery() {
			continue
		}
		methods = append(methods, PaymentOption{
			Method:             candidate.method,
			Label:              paymentLabels[candidate.method],
			RequiresCashAmount: candidate.method == domain.PaymentMethodCash,
		})
	}
	return PaymentSelection{Methods: methods, ContactAdmin: len(methods) == 0}
}
