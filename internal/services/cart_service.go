package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartShippingRequired   = errors.New("cart service: shipping service is required")
)

const (
	cartItemIDPrefix   = "cit_"
	maxCartNotesLength = 500
	maxCartNameLength  = 200
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart store could not be reached.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartServiceDeps wires the repositories and shipping quotes used by cart operations.
type CartServiceDeps struct {
	Repository repositories.CartRepository
	// Drafts supplies the destination shipping is quoted for. Optional.
	Drafts      repositories.DraftRepository
	Shipping    ShippingService
	Locks       *SessionLocks
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo     repositories.CartRepository
	drafts   repositories.DraftRepository
	shipping ShippingService
	locks    *SessionLocks
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Shipping == nil {
		return nil, errCartShippingRequired
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	locks := deps.Locks
	if locks == nil {
		locks = NewSessionLocks()
	}

	return &cartService{
		repo:     deps.Repository,
		drafts:   deps.Drafts,
		shipping: deps.Shipping,
		locks:    locks,
		newID:    idGen,
		now:      func() time.Time { return clock().UTC() },
		logger:   logger,
	}, nil
}

func (s *cartService) Get(ctx context.Context, sessionID string) (CartView, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	cart, err := s.load(ctx, sid)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart), nil
}

func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (CartView, error) {
	item, err := s.itemFromCommand(cmd)
	if err != nil {
		return CartView{}, err
	}
	return s.mutate(ctx, cmd.SessionID, func(cart Cart) Cart {
		return cart.AddItem(item)
	})
}

func (s *cartService) UpdateQuantity(ctx context.Context, cmd UpdateCartQuantityCommand) (CartView, error) {
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return CartView{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}
	return s.mutate(ctx, cmd.SessionID, func(cart Cart) Cart {
		return cart.UpdateQuantity(itemID, cmd.Quantity)
	})
}

func (s *cartService) RemoveItem(ctx context.Context, sessionID, itemID string) (CartView, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return CartView{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}
	return s.mutate(ctx, sessionID, func(cart Cart) Cart {
		return cart.RemoveItem(itemID)
	})
}

func (s *cartService) Clear(ctx context.Context, sessionID string) (CartView, error) {
	return s.mutate(ctx, sessionID, func(cart Cart) Cart {
		return cart.Clear()
	})
}

// mutate applies fn to the stored cart while holding the session lock.
func (s *cartService) mutate(ctx context.Context, sessionID string, fn func(Cart) Cart) (CartView, error) {
	sid, err := requireSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	unlock, err := s.locks.Lock(ctx, sid)
	if err != nil {
		return CartView{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	defer unlock()

	cart, err := s.load(ctx, sid)
	if err != nil {
		return CartView{}, err
	}
	next := fn(cart)
	next.SessionID = sid
	next.UpdatedAt = s.now()

	saved, err := s.repo.Save(ctx, next)
	if err != nil {
		s.logger(ctx, "cart.save.failed", map[string]any{"error": err.Error()})
		return CartView{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	return s.view(ctx, saved), nil
}

func (s *cartService) load(ctx context.Context, sessionID string) (Cart, error) {
	cart, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{SessionID: sessionID, Items: []CartItem{}}, nil
		}
		return Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	cart.SessionID = sessionID
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	return cart, nil
}

// view derives totals. Shipping is quoted only once the draft names a destination;
// quote failures degrade to zero shipping.
func (s *cartService) view(ctx context.Context, cart Cart) CartView {
	var quote *ShippingQuote
	if dest, ok := s.destination(ctx, cart.SessionID); ok {
		q, err := s.shipping.Quote(ctx, dest)
		if err != nil {
			s.logger(ctx, "cart.shipping.quote_failed", map[string]any{"error": err.Error()})
		} else {
			quote = &q
		}
	}
	var shippingCost int64
	if quote != nil {
		shippingCost = quote.Cost
	}
	return CartView{
		Cart:      cart,
		Totals:    cart.Totals(shippingCost),
		ItemCount: cart.ItemCount(),
		Shipping:  quote,
	}
}

func (s *cartService) destination(ctx context.Context, sessionID string) (Destination, bool) {
	if s.drafts == nil {
		return Destination{}, false
	}
	draft, found, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		s.logger(ctx, "cart.draft.load_failed", map[string]any{"error": err.Error()})
		return Destination{}, false
	}
	if !found {
		return Destination{}, false
	}
	dest := draft.Destination()
	if strings.TrimSpace(dest.City) == "" && strings.TrimSpace(dest.Department) == "" {
		return Destination{}, false
	}
	return dest, true
}

func (s *cartService) itemFromCommand(cmd AddCartItemCommand) (CartItem, error) {
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartItem{}, fmt.Errorf("%w: productId is required", ErrCartInvalidInput)
	}
	name := stripMarkup(cmd.Name)
	switch {
	case name == "":
		return CartItem{}, fmt.Errorf("%w: name is required", ErrCartInvalidInput)
	case len(name) > maxCartNameLength:
		return CartItem{}, fmt.Errorf("%w: name is too long", ErrCartInvalidInput)
	}
	if cmd.Price < 0 {
		return CartItem{}, fmt.Errorf("%w: price must be >= 0", ErrCartInvalidInput)
	}
	notes := stripMarkup(cmd.Notes)
	if len(notes) > maxCartNotesLength {
		return CartItem{}, fmt.Errorf("%w: notes are too long", ErrCartInvalidInput)
	}
	quantity := cmd.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 0 {
		return CartItem{}, fmt.Errorf("%w: quantity must be >= 1", ErrCartInvalidInput)
	}
	return CartItem{
		ID:          cartItemIDPrefix + s.newID(),
		ProductID:   productID,
		VariantID:   strings.TrimSpace(cmd.VariantID),
		Name:        name,
		Price:       cmd.Price,
		Quantity:    quantity,
		MaxQuantity: max(cmd.MaxQuantity, 0),
		Image:       strings.TrimSpace(cmd.Image),
		Notes:       notes,
	}, nil
}

// ErrSessionRequired indicates a session-scoped call without a session id.
var ErrSessionRequired = errors.New("session id is required")

func requireSession(sessionID string) (string, error) {
	sid := strings.TrimSpace(sessionID)
	if sid == "" {
		return "", ErrSessionRequired
	}
	return sid, nil
}
