package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const (
	defaultKeyPrefix  = "novacore"
	defaultSessionTTL = 30 * 24 * time.Hour
	cartField         = "items"
)

// SessionRepository stores each session as one hash holding the cart and the
// checkout draft. Every write refreshes the key TTL.
type SessionRepository struct {
	client goredis.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionRepository constructs a Redis-backed session store.
func NewSessionRepository(client goredis.UniversalClient, prefix string, ttl time.Duration) (*SessionRepository, error) {
	if client == nil {
		return nil, errors.New("session repository requires redis client")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{client: client, prefix: prefix, ttl: ttl, now: time.Now}, nil
}

// Carts exposes the cart field of the session hash.
func (r *SessionRepository) Carts() repositories.CartRepository {
	return sessionCarts{r}
}

// Drafts exposes the checkout draft field of the session hash.
func (r *SessionRepository) Drafts() repositories.DraftRepository {
	return sessionDrafts{r}
}

// Ping reports whether Redis answers.
func (r *SessionRepository) Ping(ctx context.Context) error {
	return wrapError("redis.ping", r.client.Ping(ctx).Err())
}

// Close closes the underlying client.
func (r *SessionRepository) Close(context.Context) error {
	return r.client.Close()
}

func (r *SessionRepository) key(sessionID string) string {
	return fmt.Sprintf("%s:cart:session:%s", r.prefix, strings.TrimSpace(sessionID))
}

func (r *SessionRepository) write(ctx context.Context, op, sessionID, field string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: encode: %w", op, err)
	}
	key := r.key(sessionID)
	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSet(ctx, key, field, payload)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	return wrapError(op, err)
}

func (r *SessionRepository) read(ctx context.Context, op, sessionID, field string, dst any) (bool, error) {
	raw, err := r.client.HGet(ctx, r.key(sessionID), field).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, wrapError(op, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("%s: decode: %w", op, err)
	}
	return true, nil
}

type sessionCarts struct{ repo *SessionRepository }

type sessionDrafts struct{ repo *SessionRepository }

type cartPayload struct {
	Items     []domain.CartItem `json:"items"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

func (c sessionCarts) Get(ctx context.Context, sessionID string) (domain.Cart, error) {
	id := strings.TrimSpace(sessionID)
	var payload cartPayload
	found, err := c.repo.read(ctx, "carts.get", id, cartField, &payload)
	if err != nil {
		return domain.Cart{}, err
	}
	cart := domain.Cart{SessionID: id, Items: []domain.CartItem{}}
	if !found {
		return cart, nil
	}
	if payload.Items != nil {
		cart.Items = payload.Items
	}
	cart.UpdatedAt = payload.UpdatedAt.UTC()
	return cart, nil
}

func (c sessionCarts) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	cart.SessionID = strings.TrimSpace(cart.SessionID)
	if cart.UpdatedAt.IsZero() {
		cart.UpdatedAt = c.repo.now().UTC()
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	if err := c.repo.write(ctx, "carts.save", cart.SessionID, cartField, cartPayload{Items: cart.Items, UpdatedAt: cart.UpdatedAt}); err != nil {
		return domain.Cart{}, err
	}
	return cart, nil
}

func (c sessionCarts) Delete(ctx context.Context, sessionID string) error {
	return wrapError("carts.delete", c.repo.client.HDel(ctx, c.repo.key(sessionID), cartField).Err())
}

func (d sessionDrafts) Load(ctx context.Context, sessionID string) (domain.CheckoutFormValues, bool, error) {
	var values domain.CheckoutFormValues
	found, err := d.repo.read(ctx, "drafts.load", sessionID, repositories.DraftKey, &values)
	if err != nil || !found {
		return domain.CheckoutFormValues{}, false, err
	}
	return values, true, nil
}

func (d sessionDrafts) Save(ctx context.Context, sessionID string, values domain.CheckoutFormValues) error {
	return d.repo.write(ctx, "drafts.save", sessionID, repositories.DraftKey, values)
}

func (d sessionDrafts) Delete(ctx context.Context, sessionID string) error {
	return wrapError("drafts.delete", d.repo.client.HDel(ctx, d.repo.key(sessionID), repositories.DraftKey).Err())
}
