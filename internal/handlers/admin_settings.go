package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/auth"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

// AdminSettingsHandlers exposes the shipping rules and the store configuration.
type AdminSettingsHandlers struct {
	shipping services.ShippingService
	commerce services.CommerceConfigService
}

// NewAdminSettingsHandlers constructs admin settings handlers.
func NewAdminSettingsHandlers(shipping services.ShippingService, commerce services.CommerceConfigService) *AdminSettingsHandlers {
	return &AdminSettingsHandlers{shipping: shipping, commerce: commerce}
}

// Routes registers the admin settings endpoints.
func (h *AdminSettingsHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/shipping-config", h.getShippingConfig)
	r.Put("/shipping-config", h.putShippingConfig)
	r.Get("/commerce-config", h.getCommerceConfig)
	r.Put("/commerce-config", h.putCommerceConfig)
}

type shippingConfigRequest struct {
	Rules       []domain.ShippingRule `json:"rules"`
	DefaultRule domain.ShippingRule   `json:"defaultRule"`
}

type commerceConfigRequest struct {
	StoreName      string                    `json:"storeName"`
	Currency       string                    `json:"currency"`
	Timezone       string                    `json:"timezone"`
	PaymentMethods domain.PaymentMethodFlags `json:"paymentMethods"`
	OrderRules     domain.OrderRules         `json:"orderRules"`
}

func (h *AdminSettingsHandlers) getShippingConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		writeShippingError(ctx, w, services.ErrShippingUnavailable)
		return
	}
	cfg, err := h.shipping.GetConfig(ctx)
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cfg)
}

func (h *AdminSettingsHandlers) putShippingConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		writeShippingError(ctx, w, services.ErrShippingUnavailable)
		return
	}
	var req shippingConfigRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	cfg, err := h.shipping.UpdateConfig(ctx, services.UpdateShippingConfigCommand{
		Rules:       req.Rules,
		DefaultRule: req.DefaultRule,
		ActorID:     auth.ActorID(ctx),
	})
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cfg)
}

func (h *AdminSettingsHandlers) getCommerceConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.commerce == nil {
		writeCommerceConfigError(ctx, w, services.ErrCommerceConfigUnavailable)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.commerce.Current(ctx))
}

func (h *AdminSettingsHandlers) putCommerceConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.commerce == nil {
		writeCommerceConfigError(ctx, w, services.ErrCommerceConfigUnavailable)
		return
	}
	var req commerceConfigRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	cfg, err := h.commerce.Update(ctx, domain.CommerceConfig{
		StoreName:      req.StoreName,
		Currency:       req.Currency,
		Timezone:       req.Timezone,
		PaymentMethods: req.PaymentMethods,
		OrderRules:     req.OrderRules,
	})
	if err != nil {
		writeCommerceConfigError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cfg)
}

func writeCommerceConfigError(ctx context.Context, w http.ResponseWriter, err error) {
	if writeCommonError(ctx, w, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrCommerceConfigInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_commerce_config", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCommerceConfigUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("commerce_config_unavailable", "store configuration unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("commerce_config_error", "failed to process store configuration request", http.StatusInternalServerError))
	}
}
