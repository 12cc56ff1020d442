package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

// CartHandlers exposes the session cart.
type CartHandlers struct {
	carts services.CartService
}

// NewCartHandlers constructs cart handlers.
func NewCartHandlers(carts services.CartService) *CartHandlers {
	return &CartHandlers{carts: carts}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.getCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Patch("/items/{itemId}", h.updateItem)
	r.Delete("/items/{itemId}", h.removeItem)
}

type addCartItemRequest struct {
	ProductID   string        `json:"productId"`
	VariantID   string        `json:"variantId"`
	Name        string        `json:"name"`
	Price       domain.Amount `json:"price"`
	Quantity    int           `json:"quantity"`
	MaxQuantity int           `json:"maxQuantity"`
	Image       string        `json:"image"`
	Notes       string        `json:"notes"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *CartHandlers) getCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, sessionID string) (services.CartView, error) {
		return h.carts.Get(ctx, sessionID)
	})
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, func(ctx context.Context, sessionID string) (services.CartView, error) {
		return h.carts.Clear(ctx, sessionID)
	})
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	h.respond(w, r, func(ctx context.Context, sessionID string) (services.CartView, error) {
		return h.carts.AddItem(ctx, services.AddCartItemCommand{
			SessionID:   sessionID,
			ProductID:   req.ProductID,
			VariantID:   req.VariantID,
			Name:        req.Name,
			Price:       req.Price.Int64(),
			Quantity:    req.Quantity,
			MaxQuantity: req.MaxQuantity,
			Image:       req.Image,
			Notes:       req.Notes,
		})
	})
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateCartItemRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}
	itemID := pathParam(r, "itemId")
	h.respond(w, r, func(ctx context.Context, sessionID string) (services.CartView, error) {
		return h.carts.UpdateQuantity(ctx, services.UpdateCartQuantityCommand{
			SessionID: sessionID,
			ItemID:    itemID,
			Quantity:  *req.Quantity,
		})
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID := pathParam(r, "itemId")
	h.respond(w, r, func(ctx context.Context, sessionID string) (services.CartView, error) {
		return h.carts.RemoveItem(ctx, sessionID, itemID)
	})
}

func (h *CartHandlers) respond(w http.ResponseWriter, r *http.Request, call func(ctx context.Context, sessionID string) (services.CartView, error)) {
	ctx := r.Context()
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	view, err := call(ctx, sessionID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, view)
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if writeCommonError(ctx, w, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_service_unavailable", "cart service is unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}
