package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/firestore"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

const countersCollection = "counters"

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	Step         int64     `firestore:"step"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

// CounterRepository implements repositories.CounterRepository backed by Firestore transactions.
type CounterRepository struct {
	provider *pfirestore.Provider
	counters *pfirestore.BaseRepository[counterDocument]
	now      func() time.Time
}

var _ repositories.CounterRepository = (*CounterRepository)(nil)

// NewCounterRepository constructs a Firestore-backed counter repository.
func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	return &CounterRepository{
		provider: provider,
		counters: pfirestore.NewBaseRepository[counterDocument](provider, countersCollection, nil, nil),
		now:      time.Now,
	}, nil
}

// Next atomically increments the counter identified by counterID and returns
// the new value. A missing counter starts at step. When ctx carries a
// transaction the read and write join it.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, errors.New("counter id is required")
	}
	if step < 0 {
		return 0, fmt.Errorf("counter step must be positive, got %d", step)
	}

	var next int64
	increment := func(ctx context.Context, tx *firestore.Transaction) error {
		value, err := r.next(ctx, tx, id, step)
		if err != nil {
			return err
		}
		next = value
		return nil
	}

	var err error
	if tx, ok := pfirestore.TransactionFromContext(ctx); ok {
		err = increment(ctx, tx)
	} else {
		err = r.provider.RunTransaction(ctx, increment)
	}
	if err != nil {
		return 0, pfirestore.WrapError("counters.next", err)
	}
	return next, nil
}

func (r *CounterRepository) next(ctx context.Context, tx *firestore.Transaction, id string, step int64) (int64, error) {
	ref, err := r.counters.DocumentRef(ctx, id)
	if err != nil {
		return 0, err
	}
	now := r.now().UTC()

	snapshot, err := tx.Get(ref)
	switch status.Code(err) {
	case codes.OK:
	case codes.NotFound:
		first := max(step, 1)
		if err := tx.Create(ref, counterDocument{CurrentValue: first, Step: first, UpdatedAt: now}); err != nil {
			return 0, err
		}
		return first, nil
	default:
		return 0, err
	}

	var doc counterDocument
	if err := snapshot.DataTo(&doc); err != nil {
		return 0, fmt.Errorf("firestore counters decode %s: %w", id, err)
	}

	increment := step
	if increment <= 0 {
		increment = max(doc.Step, 1)
	}
	doc.CurrentValue += increment
	doc.Step = increment
	doc.UpdatedAt = now

	if err := tx.Set(ref, doc); err != nil {
		return 0, err
	}
	return doc.CurrentValue, nil
}
