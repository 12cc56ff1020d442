package domain

import (
	"time"
)

const (
	// DefaultCurrency is used whenever the store configuration does not supply a valid ISO 4217 code.
	DefaultCurrency = "COP"
	// DefaultTimezone is used whenever the store configuration does not supply a valid IANA zone.
	DefaultTimezone = "America/Bogota"
)

// CartItem is a single line in a session cart. Price is an integer amount in currency units.
type CartItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"productId"`
	VariantID   string `json:"variantId,omitempty"`
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Quantity    int    `json:"quantity"`
	MaxQuantity int    `json:"maxQuantity"`
	Image       string `json:"image,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// CartTotals is derived on every read and never stored.
type CartTotals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tax      int64 `json:"tax"`
	Total    int64 `json:"total"`
}

// Destination identifies where an order ships to.
type Destination struct {
	City       string `json:"city"`
	Department string `json:"department"`
}

// DeliveryDays is an estimate window; nil bounds are unknown.
type DeliveryDays struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// ShippingRuleType selects which destination field a rule matches against.
type ShippingRuleType string

const (
	ShippingRuleCity       ShippingRuleType = "city"
	ShippingRuleDepartment ShippingRuleType = "department"
)

// ShippingRule prices delivery for a city or a whole department.
type ShippingRule struct {
	ID           string           `json:"id"`
	Type         ShippingRuleType `json:"type"`
	Value        string           `json:"value"`
	Cost         int64            `json:"cost"`
	DeliveryDays DeliveryDays     `json:"deliveryDays"`
	AllowCOD     bool             `json:"allowCOD"`
	IsActive     bool             `json:"isActive"`
}

// ShippingConfig is the admin-managed rule set. Rule order is significant.
type ShippingConfig struct {
	Rules       []ShippingRule `json:"rules"`
	DefaultRule ShippingRule   `json:"defaultRule"`
	UpdatedAt   time.Time      `json:"updatedAt,omitempty"`
}

// ShippingMatch reports which rule tier produced a quote.
type ShippingMatch string

const (
	ShippingMatchCity       ShippingMatch = "city"
	ShippingMatchDepartment ShippingMatch = "department"
	ShippingMatchDefault    ShippingMatch = "default"
)

// ShippingQuote is the resolver output for one destination.
type ShippingQuote struct {
	Cost         int64         `json:"cost"`
	DeliveryDays DeliveryDays  `json:"deliveryDays"`
	AllowCOD     bool          `json:"allowCOD"`
	RuleID       string        `json:"ruleId,omitempty"`
	Match        ShippingMatch `json:"match"`
	Coverage     string        `json:"coverage,omitempty"`
}

// PaymentMethod identifies a checkout payment option.
type PaymentMethod string

const (
	PaymentMethodCash           PaymentMethod = "cash"
	PaymentMethodCardOnDelivery PaymentMethod = "card_on_delivery"
	PaymentMethodTransfer       PaymentMethod = "transfer"
	PaymentMethodNequi          PaymentMethod = "nequi"
)

// IsCashOnDelivery reports whether the method is settled at the door.
func (m PaymentMethod) IsCashOnDelivery() bool {
	return m == PaymentMethodCash || m == PaymentMethodCardOnDelivery
}

// CheckoutFormValues is the customer-entered checkout form. It is also the draft snapshot.
type CheckoutFormValues struct {
	FirstName     string        `json:"firstName" validate:"required,max=80"`
	LastName      string        `json:"lastName" validate:"required,max=80"`
	Whatsapp      string        `json:"whatsapp" validate:"required,co_mobile"`
	BackupPhone   string        `json:"backupPhone,omitempty" validate:"omitempty,co_mobile"`
	Address       string        `json:"address" validate:"required,max=200"`
	Department    string        `json:"department" validate:"required"`
	City          string        `json:"city" validate:"required"`
	Locality      string        `json:"locality,omitempty"`
	Landmark      string        `json:"landmark" validate:"required,max=200"`
	Email         string        `json:"email,omitempty" validate:"omitempty,email,max=120"`
	PaymentMethod PaymentMethod `json:"paymentMethod" validate:"required,oneof=cash card_on_delivery transfer nequi"`
	CashAmount    *int64        `json:"cashAmount,omitempty"`
}

// Destination returns the shipping destination captured by the form.
func (v CheckoutFormValues) Destination() Destination {
	return Destination{City: v.City, Department: v.Department}
}

// OrderStatus enumerates persisted order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every valid status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Order is the persisted record produced by checkout.
type Order struct {
	ID             string            `json:"id,omitempty"`
	OrderNumber    string            `json:"orderNumber,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	Items          []OrderItem       `json:"items"`
	Shipping       OrderShippingInfo `json:"shipping"`
	Payment        OrderPaymentInfo  `json:"payment"`
	ShippingMethod ShippingMethod    `json:"shippingMethod"`
	Subtotal       int64             `json:"subtotal"`
	Tax            int64             `json:"tax"`
	ShippingCost   int64             `json:"shippingCost"`
	Total          int64             `json:"total"`
	Status         OrderStatus       `json:"status"`
	Currency       string            `json:"currency"`
	Timezone       string            `json:"timezone"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// OrderItem is a cart line frozen into an order. Optional fields are omitted, never null.
type OrderItem struct {
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
	Image     string `json:"image,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// OrderShippingInfo captures the recipient and address.
type OrderShippingInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Whatsapp    string `json:"whatsapp"`
	BackupPhone string `json:"backupPhone,omitempty"`
	Email       string `json:"email,omitempty"`
	Address     string `json:"address"`
	Department  string `json:"department"`
	City        string `json:"city"`
	Locality    string `json:"locality,omitempty"`
	Landmark    string `json:"landmark"`
}

// OrderPaymentInfo captures the selected method and, for cash, the change to bring.
type OrderPaymentInfo struct {
	Method     PaymentMethod `json:"method"`
	CashAmount *int64        `json:"cashAmount,omitempty"`
	Change     *int64        `json:"change,omitempty"`
}

// ShippingMethod is the resolved shipping line of an order.
type ShippingMethod struct {
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	EstimatedDays string `json:"estimatedDays"`
	RuleID        string `json:"ruleId,omitempty"`
}

// PaymentMethodFlags toggles the methods a store accepts.
type PaymentMethodFlags struct {
	Cash           bool `json:"cash"`
	CardOnDelivery bool `json:"cardOnDelivery"`
	Transfer       bool `json:"transfer"`
	Nequi          bool `json:"nequi"`
}

// OrderRules are store-wide checkout constraints.
type OrderRules struct {
	MinOrderAmount int64 `json:"minOrderAmount"`
}

// CommerceConfig is the store configuration consumed (never mutated) by checkout.
type CommerceConfig struct {
	StoreName      string             `json:"storeName,omitempty"`
	Currency       string             `json:"currency"`
	Timezone       string             `json:"timezone"`
	PaymentMethods PaymentMethodFlags `json:"paymentMethods"`
	OrderRules     OrderRules         `json:"orderRules"`
	UpdatedAt      time.Time          `json:"updatedAt,omitempty"`
}

// DefaultCommerceConfig is the configuration checkout falls back to when the store settings are unavailable.
func DefaultCommerceConfig() CommerceConfig {
	return CommerceConfig{
		Currency:       DefaultCurrency,
		Timezone:       DefaultTimezone,
		PaymentMethods: PaymentMethodFlags{Cash: true},
	}
}

// CursorPage is a page of results with an opaque continuation token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}
