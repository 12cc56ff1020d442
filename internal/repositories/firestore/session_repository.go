package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	pfirestore "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/firestore"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	sessionsCollection = "sessions"
	defaultSessionTTL  = 30 * 24 * time.Hour
)

// SessionRepository keeps the cart and the checkout draft of a browser
// session in one document of the sessions collection. expiresAt is refreshed
// on every write so a Firestore TTL policy can reap idle sessions.
type SessionRepository struct {
	base *pfirestore.BaseRepository[sessionDocument]
	ttl  time.Duration
	now  func() time.Time
}

// NewSessionRepository constructs the session store. A non-positive ttl uses 30 days.
func NewSessionRepository(provider *pfirestore.Provider, ttl time.Duration) (*SessionRepository, error) {
	if provider == nil {
		return nil, errors.New("session repository requires firestore provider")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{
		base: pfirestore.NewBaseRepository[sessionDocument](provider, sessionsCollection, nil, nil),
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

// Carts exposes the cart half of the session document.
func (r *SessionRepository) Carts() repositories.CartRepository {
	return sessionCarts{r}
}

// Drafts exposes the checkout draft half of the session document.
func (r *SessionRepository) Drafts() repositories.DraftRepository {
	return sessionDrafts{r}
}

type sessionCarts struct{ repo *SessionRepository }

type sessionDrafts struct{ repo *SessionRepository }

func (c sessionCarts) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	id := strings.TrimSpace(sessionID)
	doc, err := c.repo.base.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return domain.Cart{SessionID: id, Items: []domain.CartItem{}}, nil
		}
		return domain.Cart{}, err
	}
	return doc.Data.cart(id), nil
}

func (c sessionCarts) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	id := strings.TrimSpace(cart.SessionID)
	now := c.repo.now().UTC()
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = now
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	doc := sessionDocument{
		Items:     make([]cartItemDocument, 0, len(cart.Items)),
		UpdatedAt: cart.UpdatedAt.UTC(),
		ExpiresAt: now.Add(c.repo.ttl),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument(item))
	}
	if _, err := c.repo.base.Set(ctx, id, doc, firestore.Merge([]string{"items"}, []string{"updatedAt"}, []string{"expiresAt"})); err != nil {
		return domain.Cart{}, err
	}
	cart.SessionID = id
	return cart, nil
}

func (c sessionCarts) Delete(ctx context.Context, sessionID string) error {
	return c.repo.deleteField(ctx, sessionID, "items", "updatedAt")
}

func (d sessionDrafts) Load(ctx context.Context, sessionID string) (domain.CheckoutFormValues, bool, error) {
	doc, err := d.repo.base.Get(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		if isNotFound(err) {
			return domain.CheckoutFormValues{}, false, nil
		}
		return domain.CheckoutFormValues{}, false, err
	}
	if doc.Data.Draft == nil {
		return domain.CheckoutFormValues{}, false, nil
	}
	return doc.Data.Draft.toDomain(), true, nil
}

func (d sessionDrafts) Save(ctx context.Context, sessionID string, values domain.CheckoutFormValues) error {
	draft := newDraftDocument(values)
	doc := sessionDocument{
		Draft:     &draft,
		ExpiresAt: d.repo.now().UTC().Add(d.repo.ttl),
	}
	_, err := d.repo.base.Set(ctx, strings.TrimSpace(sessionID), doc, firestore.Merge([]string{repositories.DraftKey}, []string{"expiresAt"}))
	return err
}

func (d sessionDrafts) Delete(ctx context.Context, sessionID string) error {
	return d.repo.deleteField(ctx, sessionID, repositories.DraftKey)
}

// deleteField removes fields of the session document. Inside a transaction the
// delete is a merge write so it joins the commit without a prior read.
func (r *SessionRepository) deleteField(ctx context.Context, sessionID string, paths ...string) error {
	if tx, ok := pfirestore.TransactionFromContext(ctx); ok {
		ref, err := r.base.DocumentRef(ctx, strings.TrimSpace(sessionID))
		if err != nil {
			return err
		}
		fields := make(map[string]any, len(paths))
		for _, path := range paths {
			fields[path] = firestore.Delete
		}
		if err := tx.Set(ref, fields, firestore.MergeAll); err != nil {
			return pfirestore.WrapError("sessions.delete_field", err)
		}
		return nil
	}
	updates := make([]firestore.Update, 0, len(paths))
	for _, path := range paths {
		updates = append(updates, firestore.Update{Path: path, Value: firestore.Delete})
	}
	if _, err := r.base.Update(ctx, strings.TrimSpace(sessionID), updates); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

type sessionDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	Draft     *draftDocument     `firestore:"checkout_form_data,omitempty"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
	ExpiresAt time.Time          `firestore:"expiresAt"`
}

func (d sessionDocument) cart(sessionID string) domain.Cart {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.CartItem(item))
	}
	cart := domain.Cart{SessionID: sessionID, Items: items}
	if !d.UpdatedAt.IsZero() {
		cart.UpdatedAt = d.UpdatedAt.UTC()
	}
	return cart
}

type cartItemDocument struct {
	ID          string `firestore:"id"`
	ProductID   string `firestore:"productId"`
	VariantID   string `firestore:"variantId,omitempty"`
	Name        string `firestore:"name"`
	Price       int64  `firestore:"price"`
	Quantity    int    `firestore:"quantity"`
	MaxQuantity int    `firestore:"maxQuantity"`
	Image       string `firestore:"image,omitempty"`
	Notes       string `firestore:"notes,omitempty"`
}

type draftDocument struct {
	FirstName     string `firestore:"firstName"`
	LastName      string `firestore:"lastName"`
	Whatsapp      string `firestore:"whatsapp"`
	BackupPhone   string `firestore:"backupPhone,omitempty"`
	Address       string `firestore:"address"`
	Department    string `firestore:"department"`
	City          string `firestore:"city"`
	Locality      string `firestore:"locality,omitempty"`
	Landmark      string `firestore:"landmark"`
	Email         string `firestore:"email,omitempty"`
	PaymentMethod string `firestore:"paymentMethod"`
	CashAmount    *int64 `firestore:"cashAmount,omitempty"`
}

func newDraftDocument(values domain.CheckoutFormValues) draftDocument {
	return draftDocument{
		FirstName:     values.FirstName,
		LastName:      values.LastName,
		Whatsapp:      values.Whatsapp,
		BackupPhone:   values.BackupPhone,
		Address:       values.Address,
		Department:    values.Department,
		City:          values.City,
		Locality:      values.Locality,
		Landmark:      values.Landmark,
		Email:         values.Email,
		PaymentMethod: string(values.PaymentMethod),
		CashAmount:    values.CashAmount,
	}
}

func (d draftDocument) toDomain() domain.CheckoutFormValues {
	return domain.CheckoutFormValues{
		FirstName:     d.FirstName,
		LastName:      d.LastName,
		Whatsapp:      d.Whatsapp,
		BackupPhone:   d.BackupPhone,
		Address:       d.Address,
		Department:    d.Department,
		City:          d.City,
		Locality:      d.Locality,
		Landmark:      d.Landmark,
		Email:         d.Email,
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		CashAmount:    d.CashAmount,
	}
}
