package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/oklog/ulid/v2"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	pfirestore "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/firestore"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/pagination"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	ordersCollection = "orders"
	orderIDPrefix    = "ord_"
)

// OrderRepository persists checkout orders in the orders collection.
type OrderRepository struct {
	base  *pfirestore.BaseRepository[orderDocument]
	now   func() time.Time
	newID func() string
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:  pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil),
		now:   time.Now,
		newID: func() string { return orderIDPrefix + ulid.Make().String() },
	}, nil
}

// Create stores a new order. Inside a transaction the write joins it.
func (r *OrderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if strings.TrimSpace(order.ID) == "" {
		order.ID = r.newID()
	}
	now := r.now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}

	ref, err := r.base.DocumentRef(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	doc := newOrderDocument(order)
	if tx, ok := pfirestore.TransactionFromContext(ctx); ok {
		err = tx.Create(ref, doc)
	} else {
		_, err = ref.Create(ctx, doc)
	}
	if err != nil {
		return domain.Order{}, pfirestore.WrapError("orders.create", err)
	}
	return order, nil
}

// List returns orders newest first using (createdAt, document id) cursors.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	cursor, err := pagination.DecodeToken(filter.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		switch len(filter.Status) {
		case 0:
		case 1:
			q = q.Where("status", "==", string(filter.Status[0]))
		default:
			statuses := make([]string, 0, len(filter.Status))
			for _, status := range filter.Status {
				statuses = append(statuses, string(status))
			}
			q = q.Where("status", "in", statuses)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if !cursor.IsZero() {
			q = q.StartAfter(cursor.CreatedAt, cursor.ID)
		}
		return q.Limit(pageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	page := domain.CursorPage[domain.Order]{Items: make([]domain.Order, 0, min(len(docs), pageSize))}
	for i, doc := range docs {
		if i == pageSize {
			last := page.Items[len(page.Items)-1]
			page.NextPageToken = pagination.EncodeToken(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
			break
		}
		page.Items = append(page.Items, doc.Data.toDomain(doc.ID))
	}
	return page, nil
}

// FindByID loads one order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// UpdateStatus writes the new status and returns the updated order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	now := r.now().UTC()
	if _, err := r.base.Update(ctx, orderID, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "updatedAt", Value: now},
	}, firestore.Exists); err != nil {
		return domain.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

// Delete removes the order; a missing order is reported as not found.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	return r.base.Delete(ctx, orderID, firestore.Exists)
}

type orderDocument struct {
	OrderNumber    string                      `firestore:"orderNumber"`
	SessionID      string                      `firestore:"sessionId,omitempty"`
	Items          []orderItemDocument         `firestore:"items"`
	Shipping       orderShippingDocument       `firestore:"shipping"`
	Payment        orderPaymentDocument        `firestore:"payment"`
	ShippingMethod orderShippingMethodDocument `firestore:"shippingMethod"`
	Subtotal       int64                       `firestore:"subtotal"`
	Tax            int64                       `firestore:"tax"`
	ShippingCost   int64                       `firestore:"shippingCost"`
	Total          int64                       `firestore:"total"`
	Status         string                      `firestore:"status"`
	Currency       string                      `firestore:"currency"`
	Timezone       string                      `firestore:"timezone"`
	CreatedAt      time.Time                   `firestore:"createdAt"`
	UpdatedAt      time.Time                   `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ProductID string `firestore:"productId"`
	VariantID string `firestore:"variantId,omitempty"`
	Name      string `firestore:"name"`
	Price     int64  `firestore:"price"`
	Quantity  int    `firestore:"quantity"`
	Subtotal  int64  `firestore:"subtotal"`
	Image     string `firestore:"image,omitempty"`
	Notes     string `firestore:"notes,omitempty"`
}

type orderShippingDocument struct {
	FirstName   string `firestore:"firstName"`
	LastName    string `firestore:"lastName"`
	Whatsapp    string `firestore:"whatsapp"`
	BackupPhone string `firestore:"backupPhone,omitempty"`
	Email       string `firestore:"email,omitempty"`
	Address     string `firestore:"address"`
	Department  string `firestore:"department"`
	City        string `firestore:"city"`
	Locality    string `firestore:"locality,omitempty"`
	Landmark    string `firestore:"landmark"`
}

type orderPaymentDocument struct {
	Method     string `firestore:"method"`
	CashAmount *int64 `firestore:"cashAmount,omitempty"`
	Change     *int64 `firestore:"change,omitempty"`
}

type orderShippingMethodDocument struct {
	Name          string `firestore:"name"`
	Price         int64  `firestore:"price"`
	EstimatedDays string `firestore:"estimatedDays"`
	RuleID        string `firestore:"ruleId,omitempty"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument(item))
	}
	return orderDocument{
		OrderNumber:    order.OrderNumber,
		SessionID:      order.SessionID,
		Items:          items,
		Shipping:       orderShippingDocument(order.Shipping),
		Payment:        orderPaymentDocument{Method: string(order.Payment.Method), CashAmount: order.Payment.CashAmount, Change: order.Payment.Change},
		ShippingMethod: orderShippingMethodDocument(order.ShippingMethod),
		Subtotal:       order.Subtotal,
		Tax:            order.Tax,
		ShippingCost:   order.ShippingCost,
		Total:          order.Total,
		Status:         string(order.Status),
		Currency:       order.Currency,
		Timezone:       order.Timezone,
		CreatedAt:      order.CreatedAt.UTC(),
		UpdatedAt:      order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem(item))
	}
	return domain.Order{
		ID:             id,
		OrderNumber:    d.OrderNumber,
		SessionID:      d.SessionID,
		Items:          items,
		Shipping:       domain.OrderShippingInfo(d.Shipping),
		Payment:        domain.OrderPaymentInfo{Method: domain.PaymentMethod(d.Payment.Method), CashAmount: d.Payment.CashAmount, Change: d.Payment.Change},
		ShippingMethod: domain.ShippingMethod(d.ShippingMethod),
		Subtotal:       d.Subtotal,
		Tax:            d.Tax,
		ShippingCost:   d.ShippingCost,
		Total:          d.Total,
		Status:         domain.OrderStatus(d.Status),
		Currency:       d.Currency,
		Timezone:       d.Timezone,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}
}
