package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/auth"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/pagination"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

// AdminOrderHandlers exposes order management for staff.
type AdminOrderHandlers struct {
	orders services.OrderService
}

// NewAdminOrderHandlers constructs admin order handlers.
func NewAdminOrderHandlers(orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{orders: orders}
}

// Routes registers the /admin/orders endpoints.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders", h.listOrders)
	r.Get("/orders/action-status", h.actionStatus)
	r.Get("/orders/{orderId}", h.getOrder)
	r.Get("/orders/{orderId}/transitions", h.transitions)
	r.Put("/orders/{orderId}/status", h.updateStatus)
	r.Delete("/orders/{orderId}", h.deleteOrder)
}

type orderListResponse struct {
	Orders        []domain.Order `json:"orders"`
	NextPageToken string         `json:"nextPageToken,omitempty"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

type transitionsResponse struct {
	OrderID     string               `json:"orderId"`
	Current     domain.OrderStatus   `json:"current"`
	Transitions []domain.OrderStatus `json:"transitions"`
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	query := r.URL.Query()
	params, err := pagination.Parse(query, pagination.Options{})
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	filter := services.OrderListFilter{PageSize: params.PageSize, PageToken: params.PageToken}
	for _, raw := range query["status"] {
		for _, part := range strings.Split(raw, ",") {
			status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(part)))
			if status == "" {
				continue
			}
			if !status.Valid() {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "unknown order status "+string(status), http.StatusBadRequest))
				return
			}
			filter.Status = append(filter.Status, status)
		}
	}

	page, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	orders := page.Items
	if orders == nil {
		orders = []domain.Order{}
	}
	httpx.WriteJSON(w, http.StatusOK, orderListResponse{Orders: orders, NextPageToken: page.NextPageToken})
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	order, err := h.orders.GetOrder(ctx, pathParam(r, "orderId"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *AdminOrderHandlers) transitions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	order, err := h.orders.GetOrder(ctx, pathParam(r, "orderId"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, transitionsResponse{
		OrderID:     order.ID,
		Current:     order.Status,
		Transitions: h.orders.AllowedTransitions(order.Status),
	})
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	var req updateOrderStatusRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	order, err := h.orders.UpdateStatus(ctx, services.UpdateOrderStatusCommand{
		OrderID: pathParam(r, "orderId"),
		Status:  domain.OrderStatus(req.Status),
		ActorID: auth.ActorID(ctx),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *AdminOrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	if err := h.orders.DeleteOrder(ctx, services.DeleteOrderCommand{
		OrderID: pathParam(r, "orderId"),
		ActorID: auth.ActorID(ctx),
	}); err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminOrderHandlers) actionStatus(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.orders.ActionStatus())
}

func (h *AdminOrderHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.orders == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if writeCommonError(ctx, w, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderActionInFlight):
		httpx.WriteError(ctx, w, httpx.NewError("action_in_progress", "another order action is in progress", http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently", http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
