package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSessionLocksSerialisePerSession(t *testing.T) {
	locks := NewSessionLocks()
	unlock, err := locks.Lock(context.Background(), "a")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	other, err := locks.Lock(context.Background(), "b")
	if err != nil {
		t.Fatalf("expected other session to lock independently: %v", err)
	}
	other()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wait to time out, got %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		release, err := locks.Lock(context.Background(), "a")
		if err == nil {
			release()
		}
		close(acquired)
	}()
	unlock()
	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatalf("waiter not released")
	}
	if n := locks.size(); n != 0 {
		t.Fatalf("expected lock table to drain, got %d entries", n)
	}
}
