package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
)

// ErrAssembleInvalid signals a snapshot that cannot produce a valid order.
var ErrAssembleInvalid = errors.New("order assembler: invalid snapshot")

// CheckoutSnapshot freezes everything an order is built from at submit time.
type CheckoutSnapshot struct {
	SessionID string
	Items     []CartItem
	Totals    CartTotals
	Shipping  ShippingQuote
	Form      CheckoutFormValues
	Config    CommerceConfig
}

// AssembleOrder builds the pre-persistence order. It does not assign id,
// order number or timestamps. Currency and timezone fall back to COP and
// America/Bogota when the configuration omits them or carries invalid values.
func AssembleOrder(snap CheckoutSnapshot) (Order, error) {
	if len(snap.Items) == 0 {
		return Order{}, fmt.Errorf("%w: no items", ErrAssembleInvalid)
	}

	items := make([]domain.OrderItem, 0, len(snap.Items))
	var subtotal int64
	for i, item := range snap.Items {
		price := item.Price
		if price < 0 {
			return Order{}, fmt.Errorf("%w: items[%d].price", ErrAssembleInvalid, i)
		}
		if item.Quantity < 1 {
			return Order{}, fmt.Errorf("%w: items[%d].quantity", ErrAssembleInvalid, i)
		}
		line := domain.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Name:      item.Name,
			Price:     price,
			Quantity:  item.Quantity,
			Subtotal:  price * int64(item.Quantity),
			Image:     item.Image,
		}
		if v := strings.TrimSpace(item.VariantID); v != "" {
			line.VariantID = v
		}
		if n := strings.TrimSpace(item.Notes); n != "" {
			line.Notes = n
		}
		subtotal += line.Subtotal
		items = append(items, line)
	}

	shippingCost := snap.Shipping.Cost
	if shippingCost < 0 {
		return Order{}, fmt.Errorf("%w: shipping cost", ErrAssembleInvalid)
	}
	tax := snap.Totals.Tax
	if tax < 0 {
		return Order{}, fmt.Errorf("%w: tax", ErrAssembleInvalid)
	}
	total := subtotal + shippingCost + tax

	form := snap.Form
	payment := domain.OrderPaymentInfo{Method: form.PaymentMethod}
	if form.PaymentMethod == domain.PaymentMethodCash && form.CashAmount != nil {
		cash := *form.CashAmount
		change := cash - total
		if change < 0 {
			change = 0
		}
		payment.CashAmount = &cash
		payment.Change = &change
	}

	return Order{
		SessionID: snap.SessionID,
		Items:     items,
		Shipping: domain.OrderShippingInfo{
			FirstName:   strings.TrimSpace(form.FirstName),
			LastName:    strings.TrimSpace(form.LastName),
			Whatsapp:    strings.TrimSpace(form.Whatsapp),
			BackupPhone: strings.TrimSpace(form.BackupPhone),
			Email:       strings.TrimSpace(form.Email),
			Address:     strings.TrimSpace(form.Address),
			Department:  strings.TrimSpace(form.Department),
			City:        strings.TrimSpace(form.City),
			Locality:    strings.TrimSpace(form.Locality),
			Landmark:    strings.TrimSpace(form.Landmark),
		},
		Payment: payment,
		ShippingMethod: domain.ShippingMethod{
			Name:          shippingMethodName(snap.Shipping, form),
			Price:         shippingCost,
			EstimatedDays: FormatDeliveryDays(snap.Shipping.DeliveryDays),
			RuleID:        snap.Shipping.RuleID,
		},
		Subtotal:     subtotal,
		Tax:          tax,
		ShippingCost: shippingCost,
		Total:        total,
		Status:       domain.OrderStatusPending,
		Currency:     ResolveCurrency(snap.Config.Currency),
		Timezone:     ResolveTimezone(snap.Config.Timezone),
	}, nil
}

// FormatDeliveryDays renders an estimate as "min-max", with "?" for an unknown bound.
func FormatDeliveryDays(days domain.DeliveryDays) string {
	bound := func(v *int) string {
		if v == nil {
			return "?"
		}
		return strconv.Itoa(*v)
	}
	return bound(days.Min) + "-" + bound(days.Max)
}

// ResolveCurrency returns the upper-cased ISO 4217 code, or COP when code is not one.
func ResolveCurrency(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.DefaultCurrency
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return domain.DefaultCurrency
	}
	return unit.String()
}

// ResolveTimezone returns name when it is a loadable IANA zone, otherwise America/Bogota.
func ResolveTimezone(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return domain.DefaultTimezone
	}
	if _, err := time.LoadLocation(name); err != nil {
		return domain.DefaultTimezone
	}
	return name
}

func shippingMethodName(quote ShippingQuote, form CheckoutFormValues) string {
	switch quote.Match {
	case domain.ShippingMatchCity:
		return "Envío a " + strings.TrimSpace(form.City)
	case domain.ShippingMatchDepartment:
		return "Envío a " + strings.TrimSpace(form.Department)
	default:
		return "Envío estándar"
	}
}
