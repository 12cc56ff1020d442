package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

func TestCartHandlersRequireSession(t *testing.T) {
	called := false
	carts := &stubCartService{getFn: func(context.Context, string) (services.CartView, error) {
		called = true
		return services.CartView{}, nil
	}}
	router := newSessionRouter(WithCartRoutes(NewCartHandlers(carts).Routes))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cart/", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Error != "session_required" {
		t.Fatalf("expected session_required, got %+v", body)
	}
	if called {
		t.Fatalf("service should not be called without a session")
	}
}

func TestCartHandlersAddItem(t *testing.T) {
	var captured services.AddCartItemCommand
	carts := &stubCartService{addFn: func(_ context.Context, cmd services.AddCartItemCommand) (services.CartView, error) {
		captured = cmd
		return services.CartView{
			Cart: domain.Cart{SessionID: cmd.SessionID, Items: []domain.CartItem{{
				ID: "prod-1:var-1", ProductID: cmd.ProductID, VariantID: cmd.VariantID, Name: cmd.Name, Price: cmd.Price, Quantity: cmd.Quantity,
			}}},
			Totals:    domain.CartTotals{Subtotal: 2 * cmd.Price, Total: 2 * cmd.Price},
			ItemCount: cmd.Quantity,
		}, nil
	}}
	router := newSessionRouter(WithCartRoutes(NewCartHandlers(carts).Routes))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, sessionRequest(http.MethodPost, "/api/v1/cart/items",
		`{"productId":"prod-1","variantId":"var-1","name":"Camiseta","price":45000,"quantity":2,"maxQuantity":5}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.SessionID != "sess-1" || captured.ProductID != "prod-1" || captured.Quantity != 2 || captured.MaxQuantity != 5 {
		t.Fatalf("unexpected command %+v", captured)
	}
	var view services.CartView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ItemCount != 2 || view.Totals.Total != 90000 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestCartHandlersAddItemNormalizesFormattedPrice(t *testing.T) {
	var captured services.AddCartItemCommand
	carts := &stubCartService{addFn: func(_ context.Context, cmd services.AddCartItemCommand) (services.CartView, error) {
		captured = cmd
		return services.CartView{}, nil
	}}
	router := newSessionRouter(WithCartRoutes(NewCartHandlers(carts).Routes))

	for body, want := range map[string]int64{
		`{"productId":"prod-1","name":"Camiseta","price":"12.345","quantity":1}`:    12345,
		`{"productId":"prod-1","name":"Camiseta","price":"$ 45.000","quantity":1}`:  45000,
		`{"productId":"prod-1","name":"Camiseta","price":"1,250,000","quantity":1}`: 1250000,
	} {
		captured = services.AddCartItemCommand{}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, sessionRequest(http.MethodPost, "/api/v1/cart/items", body))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", body, rr.Code, rr.Body.String())
		}
		if captured.Price != want {
			t.Fatalf("%s: expected price %d, got %d", body, want, captured.Price)
		}
	}
}

func TestCartHandlersAddItemRejectsUnparseablePrice(t *testing.T) {
	called := false
	carts := &stubCartService{addFn: func(context.Context, services.AddCartItemCommand) (services.CartView, error) {
		called = true
		return services.CartView{}, nil
	}}
	router := newSessionRouter(WithCartRoutes(NewCartHandlers(carts).Routes))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"productId":"prod-1","price":"gratis","quantity":1}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if called {
		t.Fatalf("service should not be called with an unparseable price")
	}
}

func TestCartHandlersRejectUnknownFields(t *testing.T) {
	router := newSessionRouter(WithCartRoutes(NewCartHandlers(&stubCartService{}).Routes))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, sessionRequest(http.MethodPost, "/api/v1/cart/items", `{"productId":"p","bogus":true}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Error != "invalid_request" {
		t.Fatalf("expected invalid_request, got %+v", body)
	}
}

func TestCartHandlersUpdateQuantity(t *testing.T) {
	var captured services.UpdateCartQuantityCommand
	carts := &stubCartService{updateFn: func(_ context.Context, cmd services.UpdateCartQuantityCommand) (services.CartView, error) {
		captured = cmd
		return services.CartView{}, nil
	}}
	router := newSessionRouter(WithCartRoutes(NewCartHandlers(carts).Routes))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, sessionRequest(http.MethodPatch, "/api/v1/cart/items/prod-1%3Avar-1", `{"quantity":0}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ItemID != "prod-1:var-1" || captured.Quantity != 0 {
		t.Fatalf("unexpected command %+v", captured)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, sessionRequest(http.MethodPatch, "/api/v1/cart/items/prod-1", `{}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing quantity, got %d", rr.Code)
	}
}

func TestCartHandlersErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: quantity must be positive", services.ErrCartInvalidInput), http.StatusBadRequest, "invalid_request"},
		{fmt.Errorf("%w: firestore down", services.ErrCartUnavailable), http.StatusServiceUnavailable, "cart_service_unavailable"},
		{context.DeadlineExceeded, http.StatusServiceUnavailable, "request_timeout"},
	}
	for _, tc := range cases {
		carts := &stubCartService{removeFn: func(context.Context, string, string) (services.CartView, error) {
			return services.CartView{}, tc.err
		}}
		router := newSessionRouter(WithCartRoutes(NewCartHandlers(carts).Routes))

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, sessionRequest(http.MethodDelete, "/api/v1/cart/items/prod-1", ""))
		if rr.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rr.Code)
		}
		if body := decodeError(t, rr); body.Error != tc.code {
			t.Fatalf("%v: expected %s, got %+v", tc.err, tc.code, body)
		}
	}
}
