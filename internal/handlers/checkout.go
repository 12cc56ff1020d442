package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/requestctx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

// CheckoutHandlers exposes the checkout form and order submission for a session.
type CheckoutHandlers struct {
	forms       services.CheckoutFormService
	checkout    services.CheckoutService
	limiter     rateLimiter
	idempotency func(http.Handler) http.Handler
}

// CheckoutOption customises checkout handlers.
type CheckoutOption func(*CheckoutHandlers)

// WithSubmitRateLimit bounds submissions per session per minute.
func WithSubmitRateLimit(perMinute int) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.limiter = newSimpleRateLimiter(perMinute, rateLimitWindow, nil)
	}
}

// WithSubmitIdempotency wraps the submit endpoint, typically with idempotency.Middleware.
func WithSubmitIdempotency(mw func(http.Handler) http.Handler) CheckoutOption {
	return func(h *CheckoutHandlers) {
		h.idempotency = mw
	}
}

// NewCheckoutHandlers constructs checkout handlers.
func NewCheckoutHandlers(forms services.CheckoutFormService, checkout services.CheckoutService, opts ...CheckoutOption) *CheckoutHandlers {
	h := &CheckoutHandlers{forms: forms, checkout: checkout}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/draft", h.getDraft)
	r.Patch("/draft", h.patchDraft)
	r.Get("/payment-methods", h.paymentMethods)
	r.Post("/validate", h.validate)

	submit := r.With(rateLimitMiddleware(h.limiter, requestctx.SessionID))
	if h.idempotency != nil {
		submit = submit.With(h.idempotency)
	}
	submit.Post("/submit", h.submit)

	r.Get("/status", h.status)
	r.Post("/retry", h.retry)
	r.Post("/close", h.close)
}

type draftResponse struct {
	Values domain.CheckoutFormValues `json:"values"`
	Errors services.FieldErrors      `json:"errors,omitempty"`
}

type draftPatchRequest struct {
	FirstName     *string               `json:"firstName"`
	LastName      *string               `json:"lastName"`
	Whatsapp      *string               `json:"whatsapp"`
	BackupPhone   *string               `json:"backupPhone"`
	Address       *string               `json:"address"`
	Department    *string               `json:"department"`
	City          *string               `json:"city"`
	Locality      *string               `json:"locality"`
	Landmark      *string               `json:"landmark"`
	Email         *string               `json:"email"`
	PaymentMethod *domain.PaymentMethod `json:"paymentMethod"`
	CashAmount    nullableAmount        `json:"cashAmount"`
}

// nullableAmount distinguishes an absent field from an explicit null.
type nullableAmount struct {
	set   bool
	value *int64
}

func (n *nullableAmount) UnmarshalJSON(data []byte) error {
	n.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.value = nil
		return nil
	}
	var amount domain.Amount
	if err := json.Unmarshal(data, &amount); err != nil {
		return err
	}
	value := amount.Int64()
	n.value = &value
	return nil
}

func (req draftPatchRequest) patch() services.CheckoutFormPatch {
	patch := services.CheckoutFormPatch{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Whatsapp:      req.Whatsapp,
		BackupPhone:   req.BackupPhone,
		Address:       req.Address,
		Department:    req.Department,
		City:          req.City,
		Locality:      req.Locality,
		Landmark:      req.Landmark,
		Email:         req.Email,
		PaymentMethod: req.PaymentMethod,
	}
	if req.CashAmount.set {
		patch.CashAmount = req.CashAmount.value
		patch.ClearCash = req.CashAmount.value == nil
	}
	return patch
}

func (h *CheckoutHandlers) getDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	values, err := h.forms.LoadDraft(ctx, sessionID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draftResponse{Values: values})
}

func (h *CheckoutHandlers) patchDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	var req draftPatchRequest
	if !decodeBody(w, r, &req, false) {
		return
	}
	update, err := h.forms.UpdateDraft(ctx, sessionID, req.patch())
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, draftResponse{Values: update.Values, Errors: update.Errors})
}

func (h *CheckoutHandlers) paymentMethods(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	selection, err := h.checkout.PaymentOptions(ctx, sessionID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, selection)
}

func (h *CheckoutHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	values, ok := decodeOptionalForm(w, r)
	if !ok {
		return
	}
	preview, err := h.checkout.Preview(ctx, sessionID, values)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, preview)
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	values, ok := decodeOptionalForm(w, r)
	if !ok {
		return
	}
	status, err := h.checkout.Submit(ctx, sessionID, values)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, status)
}

func (h *CheckoutHandlers) status(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.checkout.Status(r.Context(), sessionID))
}

func (h *CheckoutHandlers) retry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	status, err := h.checkout.Retry(ctx, sessionID)
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, status)
}

func (h *CheckoutHandlers) close(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w, r) {
		return
	}
	sessionID, ok := requireSessionID(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, h.checkout.Close(r.Context(), sessionID))
}

func (h *CheckoutHandlers) ready(w http.ResponseWriter, r *http.Request) bool {
	if h.forms == nil || h.checkout == nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}

// decodeOptionalForm reads explicit form values. An empty body means "use the draft".
// formRequest is a full form body whose cashAmount may be a formatted string.
type formRequest struct {
	domain.CheckoutFormValues
	CashAmount *domain.Amount `json:"cashAmount"`
}

func decodeOptionalForm(w http.ResponseWriter, r *http.Request) (*domain.CheckoutFormValues, bool) {
	var req *formRequest
	if !decodeBody(w, r, &req, true) {
		return nil, false
	}
	if req == nil {
		return nil, true
	}
	values := req.CheckoutFormValues
	values.CashAmount = nil
	if req.CashAmount != nil {
		cash := req.CashAmount.Int64()
		values.CashAmount = &cash
	}
	return &values, true
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if writeCommonError(ctx, w, err) {
		return
	}
	switch {
	case errors.Is(err, services.ErrCheckoutInvalidForm):
		fields, _ := services.FieldErrorsFrom(err)
		httpx.WriteError(ctx, w, httpx.NewError("invalid_form", "revisa los campos marcados", http.StatusUnprocessableEntity).WithFields(fields))
	case errors.Is(err, services.ErrCheckoutMinimumOrder):
		httpx.WriteError(ctx, w, httpx.NewError("minimum_order_not_met", err.Error(), http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInFlight):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_in_progress", "a submission for this session is already in progress", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutCompleted):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_completed", "the order for this session was already submitted", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutFailed):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_failed", "No pudimos registrar tu pedido. Intenta de nuevo en unos segundos.", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrCheckoutUnavailable), errors.Is(err, services.ErrCheckoutDraftUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	case errors.Is(err, services.ErrShippingUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("shipping_unavailable", "shipping configuration unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
