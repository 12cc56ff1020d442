package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/location"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

// PublicHandlers serves unauthenticated reference data for the storefront.
type PublicHandlers struct {
	shipping services.ShippingService
	config   services.CommerceConfigService
}

// NewPublicHandlers constructs the public handlers.
func NewPublicHandlers(shipping services.ShippingService, config services.CommerceConfigService) *PublicHandlers {
	return &PublicHandlers{shipping: shipping, config: config}
}

// Routes wires the /public endpoints onto the provided router.
func (h *PublicHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/locations/departments", h.listDepartments)
	r.Get("/locations/departments/{department}/cities", h.listCities)
	r.Get("/locations/cities/{city}/localities", h.listLocalities)
	r.Get("/shipping/quote", h.quoteShipping)
	r.Get("/config", h.getConfig)
}

type departmentsResponse struct {
	Departments []string `json:"departments"`
}

type citiesResponse struct {
	Department string   `json:"department"`
	Cities     []string `json:"cities"`
}

type localitiesResponse struct {
	City       string   `json:"city"`
	Localities []string `json:"localities"`
}

type publicConfigResponse struct {
	StoreName      string                    `json:"storeName,omitempty"`
	Currency       string                    `json:"currency"`
	Timezone       string                    `json:"timezone"`
	PaymentMethods domain.PaymentMethodFlags `json:"paymentMethods"`
	MinOrderAmount int64                     `json:"minOrderAmount"`
}

func (h *PublicHandlers) listDepartments(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, departmentsResponse{Departments: location.Departments()})
}

func (h *PublicHandlers) listCities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := location.DepartmentName(pathParam(r, "department"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("department_not_found", "department not found", http.StatusNotFound))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, citiesResponse{Department: name, Cities: location.Cities(name)})
}

func (h *PublicHandlers) listLocalities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name, ok := location.CityName(pathParam(r, "city"))
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("city_not_found", "city not found", http.StatusNotFound))
		return
	}
	localities := location.Localities(name)
	if localities == nil {
		localities = []string{}
	}
	httpx.WriteJSON(w, http.StatusOK, localitiesResponse{City: name, Localities: localities})
}

func (h *PublicHandlers) quoteShipping(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.shipping == nil {
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping service unavailable", http.StatusServiceUnavailable))
		return
	}
	query := r.URL.Query()
	quote, err := h.shipping.Quote(ctx, domain.Destination{
		City:       strings.TrimSpace(query.Get("city")),
		Department: strings.TrimSpace(query.Get("department")),
	})
	if err != nil {
		writeShippingError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, quote)
}

func (h *PublicHandlers) getConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cfg := domain.DefaultCommerceConfig()
	if h.config != nil {
		cfg = h.config.Current(ctx)
	}
	httpx.WriteJSON(w, http.StatusOK, publicConfigResponse{
		StoreName:      cfg.StoreName,
		Currency:       services.ResolveCurrency(cfg.Currency),
		Timezone:       services.ResolveTimezone(cfg.Timezone),
		PaymentMethods: cfg.PaymentMethods,
		MinOrderAmount: cfg.OrderRules.MinOrderAmount,
	})
}

func writeShippingError(ctx context.Context, w http.ResponseWriter, err error) {
	if writeCommonError(ctx, w, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrShippingInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_shipping_config", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping configuration unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("shipping_error", "failed to process shipping request", http.StatusInternalServerError))
	}
}

// pathParam returns a decoded chi URL parameter.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}
