package services

import (
	"context"
	"time"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartTotals         = domain.CartTotals
	Order              = domain.Order
	OrderStatus        = domain.OrderStatus
	ShippingQuote      = domain.ShippingQuote
	ShippingConfig     = domain.ShippingConfig
	ShippingRule       = domain.ShippingRule
	CommerceConfig     = domain.CommerceConfig
	CheckoutFormValues = domain.CheckoutFormValues
	Destination        = domain.Destination
	PaymentMethod      = domain.PaymentMethod
)

// CartService manages the session cart. Mutations for one session are serialised
// with checkout submission for the same session.
type CartService interface {
	Get(ctx context.Context, sessionID string) (CartView, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error)
	UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (CartView, error)
	RemoveItem(ctx context.Context, sessionID, itemID string) (CartView, error)
	Clear(ctx context.Context, sessionID string) (CartView, error)
}

// ShippingService exposes the admin-managed shipping rules and destination quotes.
type ShippingService interface {
	GetConfig(ctx context.Context) (ShippingConfig, error)
	UpdateConfig(ctx context.Context, cmd UpdateShippingConfigCommand) (ShippingConfig, error)
	Quote(ctx context.Context, dest Destination) (ShippingQuote, error)
}

// CommerceConfigService serves the store configuration consumed by checkout.
type CommerceConfigService interface {
	// Current never fails; it degrades to domain.DefaultCommerceConfig.
	Current(ctx context.Context) CommerceConfig
	// Start keeps the cached configuration live until ctx is done.
	Start(ctx context.Context) error
	Update(ctx context.Context, cfg CommerceConfig) (CommerceConfig, error)
}

// CheckoutFormService owns checkout form drafts and form validation.
type CheckoutFormService interface {
	LoadDraft(ctx context.Context, sessionID string) (CheckoutFormValues, error)
	UpdateDraft(ctx context.Context, sessionID string, patch CheckoutFormPatch) (DraftUpdate, error)
	ClearDraft(ctx context.Context, sessionID string) error
	Validate(values CheckoutFormValues, rules FormRules) FieldErrors
}

// CheckoutService runs the per-session order submission state machine.
type CheckoutService interface {
	PaymentOptions(ctx context.Context, sessionID string) (PaymentSelection, error)
	Preview(ctx context.Context, sessionID string, values *CheckoutFormValues) (CheckoutPreview, error)
	Submit(ctx context.Context, sessionID string, values *CheckoutFormValues) (CheckoutStatus, error)
	Status(ctx context.Context, sessionID string) CheckoutStatus
	Retry(ctx context.Context, sessionID string) (CheckoutStatus, error)
	Close(ctx context.Context, sessionID string) CheckoutStatus
}

// OrderService is the admin order lifecycle manager.
type OrderService interface {
	ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	DeleteOrder(ctx context.Context, cmd DeleteOrderCommand) error
	ActionStatus() OrderActionState
	AllowedTransitions(current OrderStatus) []OrderStatus
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	OrderID        string         `json:"orderId"`
	OrderNumber    string         `json:"orderNumber,omitempty"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	CurrentStatus  string         `json:"currentStatus,omitempty"`
	ActorID        string         `json:"actorId,omitempty"`
	Total          int64          `json:"total,omitempty"`
	Currency       string         `json:"currency,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CartView is a cart with its derived totals.
type CartView struct {
	Cart      Cart           `json:"cart"`
	Totals    CartTotals     `json:"totals"`
	ItemCount int            `json:"itemCount"`
	Shipping  *ShippingQuote `json:"shipping,omitempty"`
}

// AddCartItemCommand adds a product line to a session cart.
type AddCartItemCommand struct {
	SessionID   string
	ProductID   string
	VariantID   string
	Name        string
	Price       int64
	Quantity    int
	MaxQuantity int
	Image       string
	Notes       string
}

// UpdateCartQuantityCommand sets the quantity of one line. Non-positive quantities remove it.
type UpdateCartQuantityCommand struct {
	SessionID string
	ItemID    string
	Quantity  int
}

// UpdateShippingConfigCommand replaces the shipping rule set.
type UpdateShippingConfigCommand struct {
	Rules       []ShippingRule
	DefaultRule ShippingRule
	ActorID     string
}

// CheckoutFormPatch is a partial form update. Nil fields are left untouched.
type CheckoutFormPatch struct {
	FirstName     *string
	LastName      *string
	Whatsapp      *string
	BackupPhone   *string
	Address       *string
	Department    *string
	City          *string
	Locality      *string
	Landmark      *string
	Email         *string
	PaymentMethod *PaymentMethod
	CashAmount    *int64
	ClearCash     bool
}

// DraftUpdate is the draft after a patch plus errors for the fields the patch touched.
type DraftUpdate struct {
	Values CheckoutFormValues `json:"values"`
	Errors FieldErrors        `json:"errors,omitempty"`
}

// FormRules carries the checkout context a form is validated against.
type FormRules struct {
	Total    int64
	Currency string
	Methods  []PaymentMethod
}

// CheckoutPreview is what the customer would submit right now.
type CheckoutPreview struct {
	Values   CheckoutFormValues `json:"values"`
	Totals   CartTotals         `json:"totals"`
	Shipping ShippingQuote      `json:"shipping"`
	Payment  PaymentSelection   `json:"payment"`
	Errors   FieldErrors        `json:"errors,omitempty"`
	Valid    bool               `json:"valid"`
}

// OrderListFilter narrows admin order listings.
type OrderListFilter = repositories.OrderListFilter

// UpdateOrderStatusCommand changes an order status on behalf of an admin.
type UpdateOrderStatusCommand struct {
	OrderID string
	Status  OrderStatus
	ActorID string
}

// DeleteOrderCommand removes an order on behalf of an admin.
type DeleteOrderCommand struct {
	OrderID string
	ActorID string
}
