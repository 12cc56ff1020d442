package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/requestctx"
)

var fixedTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "test"), mr
}

func submitRequest(session, key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/submit", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req.WithContext(requestctx.WithSession(req.Context(), session))
}

func TestMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, submitRequest("sess", "", `{}`))
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rr.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler on every call, got %d", calls)
	}
}

func TestMiddlewareReplaysStoredResponse(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderNumber":"NC-000001"}`))
	}))

	rr1 := httptest.NewRecorder()
	handler.ServeHTTP(rr1, submitRequest("sess", "abc-123", `{"a":1}`))
	rr2 := httptest.NewRecorder()
	handler.ServeHTTP(rr2, submitRequest("sess", "abc-123", `{"a":1}`))

	if calls != 1 {
		t.Fatalf("expected handler once, got %d", calls)
	}
	if rr2.Code != http.StatusCreated || rr2.Header().Get(replayHeaderName) != "true" {
		t.Fatalf("expected replayed 201, got %d headers %v", rr2.Code, rr2.Header())
	}
	if rr2.Header().Get("Content-Type") != "application/json" || rr2.Body.String() != rr1.Body.String() {
		t.Fatalf("unexpected replay %q", rr2.Body.String())
	}

	rr3 := httptest.NewRecorder()
	handler.ServeHTTP(rr3, submitRequest("other-session", "abc-123", `{"a":1}`))
	if calls != 2 || rr3.Header().Get(replayHeaderName) != "" {
		t.Fatalf("expected keys to be scoped per session")
	}
}

func TestMiddlewareConflictingFingerprint(t *testing.T) {
	store, _ := newRedisStore(t)
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("sess", "same", `{"a":1}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, submitRequest("sess", "same", `{"a":2}`))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_key_conflict")
}

func TestMiddlewarePendingReservation(t *testing.T) {
	store, _ := newRedisStore(t)
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run while the key is pending")
	}))

	req := submitRequest("sess", "pending", `{}`)
	body, err := readAndReplayBody(req)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if _, err := store.Reserve(req.Context(), scopedKey("pending", "sess"), requestFingerprint(req, body), fixedTime, time.Hour); err != nil {
		t.Fatalf("seed reservation: %v", err)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	assertErrorResponse(t, rr.Body.Bytes(), "idempotency_in_progress")
}

func TestMiddlewareReleasesOnServerError(t *testing.T) {
	store, _ := newRedisStore(t)
	calls := 0
	handler := Middleware(store, WithClock(func() time.Time { return fixedTime }))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, submitRequest("sess", "retry", `{}`))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, submitRequest("sess", "retry", `{}`))
	if rr.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d after %d calls", rr.Code, calls)
	}
}

func TestMiddlewareSaveFailureStillResponds(t *testing.T) {
	store := &stubStore{saveErr: errors.New("save failed")}
	var events []string
	handler := Middleware(store,
		WithClock(func() time.Time { return fixedTime }),
		WithLogger(func(_ context.Context, event string, _ map[string]any) { events = append(events, event) }),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, submitRequest("sess", "k", `{}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected handler response, got %d", rr.Code)
	}
	if !store.released || len(events) != 1 || events[0] != "idempotency.save.failed" {
		t.Fatalf("expected release and log, got released=%v events=%v", store.released, events)
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	if _, err := store.Reserve(ctx, "k", "fp", fixedTime, time.Minute); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	res, err := store.Reserve(ctx, "k", "other", fixedTime.Add(2*time.Minute), time.Minute)
	if err != nil || res.State != ReservationStateNew {
		t.Fatalf("expected fresh reservation after expiry, got %+v %v", res, err)
	}
}

type stubStore struct {
	saveErr  error
	released bool
}

func (s *stubStore) Reserve(context.Context, string, string, time.Time, time.Duration) (Reservation, error) {
	return Reservation{State: ReservationStateNew}, nil
}

func (s *stubStore) SaveResponse(context.Context, string, string, Response, time.Time, time.Duration) error {
	return s.saveErr
}

func (s *stubStore) Release(context.Context, string, string) error {
	s.released = true
	return nil
}

func (s *stubStore) CleanupExpired(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func assertErrorResponse(t *testing.T, payload []byte, expected string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if body.Error != expected {
		t.Fatalf("expected error code %s, got %s", expected, body.Error)
	}
}
