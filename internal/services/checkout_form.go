package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	domain "github.com/vinkcol/novacore-ecommerce-template-sub000/internal/domain"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/location"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/format"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/textutil"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

var (
	// ErrCheckoutInvalidForm wraps FieldErrors when the checkout form fails validation.
	ErrCheckoutInvalidForm = errors.New("checkout: invalid form")
	// ErrCheckoutDraftUnavailable indicates the draft store could not be read or written.
	ErrCheckoutDraftUnavailable = errors.New("checkout: draft store unavailable")
)

const (
	msgRequired        = "Este campo es obligatorio"
	msgTooLong         = "El valor es demasiado largo"
	msgInvalidPhone    = "Ingresa un celular colombiano válido (10 dígitos, inicia en 3)"
	msgInvalidEmail    = "Ingresa un correo electrónico válido"
	msgInvalidOption   = "Selecciona una opción válida"
	msgUnknownDept     = "Selecciona un departamento válido"
	msgCityNotInDept   = "La ciudad no pertenece al departamento seleccionado"
	msgLocalityInvalid = "Selecciona una localidad de Bogotá"
	msgMethodDisabled  = "Este método de pago no está disponible"
	msgCashRequired    = "Indica con cuánto vas a pagar"
)

// FieldErrors maps a form field (JSON name) to a customer-facing message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return strings.Join(parts, "; ")
}

// FieldErrorsFrom extracts the field errors carried by err, if any.
func FieldErrorsFrom(err error) (FieldErrors, bool) {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return fields, true
	}
	return nil, false
}

type invalidFormError struct {
	fields FieldErrors
}

func (e invalidFormError) Error() string {
	return ErrCheckoutInvalidForm.Error() + ": " + e.fields.Error()
}

func (e invalidFormError) Unwrap() []error {
	return []error{ErrCheckoutInvalidForm, e.fields}
}

// NewInvalidFormError wraps fields so errors.Is(err, ErrCheckoutInvalidForm) holds.
func NewInvalidFormError(fields FieldErrors) error {
	return invalidFormError{fields: fields}
}

// DefaultFormValues is the empty checkout form. Cash is preselected because it is
// the only method enabled by the default store configuration.
func DefaultFormValues() CheckoutFormValues {
	return CheckoutFormValues{PaymentMethod: domain.PaymentMethodCash}
}

// CheckoutFormServiceDeps bundles collaborators required to construct the form service.
type CheckoutFormServiceDeps struct {
	Drafts repositories.DraftRepository
	Logger func(ctx context.Context, event string, fields map[string]any)
}

type checkoutFormService struct {
	drafts   repositories.DraftRepository
	validate *validator.Validate
	logger   func(context.Context, string, map[string]any)
}

// NewCheckoutFormService wires dependencies into a CheckoutFormService implementation.
func NewCheckoutFormService(deps CheckoutFormServiceDeps) (CheckoutFormService, error) {
	if deps.Drafts == nil {
		return nil, errors.New("checkout form service: draft repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &checkoutFormService{
		drafts:   deps.Drafts,
		validate: formValidator(),
		logger:   logger,
	}, nil
}

var formValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("co_mobile", func(fl validator.FieldLevel) bool {
		return IsColombianMobile(fl.Field().String())
	})
	v.RegisterStructValidation(checkoutFormStructValidation, domain.CheckoutFormValues{})
	return v
})

// IsColombianMobile accepts ten digit numbers starting with 3, optionally
// prefixed by +57 or 57. Spaces, dashes, dots and parentheses are ignored.
func IsColombianMobile(raw string) bool {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
		case c == ' ' || c == '-' || c == '.' || c == '(' || c == ')':
		case c == '+' && len(digits) == 0:
		default:
			return false
		}
	}
	if len(digits) == 12 && digits[0] == '5' && digits[1] == '7' {
		digits = digits[2:]
	}
	return len(digits) == 10 && digits[0] == '3'
}

func checkoutFormStructValidation(sl validator.StructLevel) {
	values := sl.Current().Interface().(domain.CheckoutFormValues)
	if values.Department != "" {
		if _, ok := location.DepartmentName(values.Department); !ok {
			sl.ReportError(values.Department, "department", "Department", "department_known", "")
		} else if values.City != "" && !location.CityInDepartment(values.City, values.Department) {
			sl.ReportError(values.City, "city", "City", "city_in_department", "")
		}
	}
	if location.IsBogota(values.City) {
		switch {
		case strings.TrimSpace(values.Locality) == "":
			sl.ReportError(values.Locality, "locality", "Locality", "required", "")
		case !location.IsLocality(values.City, values.Locality):
			sl.ReportError(values.Locality, "locality", "Locality", "bogota_locality", "")
		}
	}
}

func (s *checkoutFormService) LoadDraft(ctx context.Context, sessionID string) (CheckoutFormValues, error) {
	draft, found, err := s.drafts.Load(ctx, sessionID)
	if err != nil {
		return DefaultFormValues(), fmt.Errorf("%w: %v", ErrCheckoutDraftUnavailable, err)
	}
	if !found {
		return DefaultFormValues(), nil
	}
	return draft, nil
}

func (s *checkoutFormService) UpdateDraft(ctx context.Context, sessionID string, patch CheckoutFormPatch) (DraftUpdate, error) {
	current, err := s.LoadDraft(ctx, sessionID)
	if err != nil {
		return DraftUpdate{}, err
	}
	next, touched := s.applyPatch(current, patch)
	if err := s.drafts.Save(ctx, sessionID, next); err != nil {
		s.logger(ctx, "checkout.draft.save_failed", map[string]any{"error": err.Error()})
		return DraftUpdate{Values: next}, fmt.Errorf("%w: %v", ErrCheckoutDraftUnavailable, err)
	}

	update := DraftUpdate{Values: next}
	if errs := s.fieldErrors(next); len(errs) > 0 {
		for field := range errs {
			if _, ok := touched[field]; !ok {
				delete(errs, field)
			}
		}
		if len(errs) > 0 {
			update.Errors = errs
		}
	}
	return update, nil
}

func (s *checkoutFormService) ClearDraft(ctx context.Context, sessionID string) error {
	if err := s.drafts.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckoutDraftUnavailable, err)
	}
	return nil
}

// Validate checks values against the field rules, the offered payment methods
// and, for cash, that the cash amount covers the total.
func (s *checkoutFormService) Validate(values CheckoutFormValues, rules FormRules) FieldErrors {
	errs := s.fieldErrors(values)
	if errs == nil {
		errs = FieldErrors{}
	}
	if _, failed := errs["paymentMethod"]; !failed && values.PaymentMethod != "" && rules.Methods != nil {
		allowed := false
		for _, method := range rules.Methods {
			if method == values.PaymentMethod {
				allowed = true
				break
			}
		}
		if !allowed {
			errs["paymentMethod"] = msgMethodDisabled
		}
	}
	if values.PaymentMethod == domain.PaymentMethodCash {
		switch {
		case values.CashAmount == nil:
			errs["cashAmount"] = msgCashRequired
		case *values.CashAmount < rules.Total:
			shortfall := rules.Total - *values.CashAmount
			errs["cashAmount"] = fmt.Sprintf("El efectivo no cubre el total del pedido. Faltan %s", format.Currency(shortfall, rules.Currency))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *checkoutFormService) fieldErrors(values CheckoutFormValues) FieldErrors {
	err := s.validate.Struct(values)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"form": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, exists := out[field]; exists {
			continue
		}
		out[field] = fieldMessage(fe.Tag())
	}
	return out
}

func fieldMessage(tag string) string {
	switch tag {
	case "required":
		return msgRequired
	case "max":
		return msgTooLong
	case "co_mobile":
		return msgInvalidPhone
	case "email":
		return msgInvalidEmail
	case "department_known":
		return msgUnknownDept
	case "city_in_department":
		return msgCityNotInDept
	case "bogota_locality":
		return msgLocalityInvalid
	default:
		return msgInvalidOption
	}
}

// applyPatch applies patch to current, then performs the cascading resets: a
// department change drops a city outside the new department, and a city other
// than Bogotá drops the locality.
func (s *checkoutFormService) applyPatch(current CheckoutFormValues, patch CheckoutFormPatch) (CheckoutFormValues, map[string]struct{}) {
	next := current
	touched := make(map[string]struct{})
	set := func(field string, dst *string, src *string) {
		if src == nil {
			return
		}
		*dst = stripMarkup(*src)
		touched[field] = struct{}{}
	}

	set("firstName", &next.FirstName, patch.FirstName)
	set("lastName", &next.LastName, patch.LastName)
	set("whatsapp", &next.Whatsapp, patch.Whatsapp)
	set("backupPhone", &next.BackupPhone, patch.BackupPhone)
	set("address", &next.Address, patch.Address)
	set("landmark", &next.Landmark, patch.Landmark)
	set("email", &next.Email, patch.Email)

	if patch.Department != nil {
		set("department", &next.Department, patch.Department)
		if !textutil.EqualFold(current.Department, next.Department) && next.City != "" &&
			!location.CityInDepartment(next.City, next.Department) {
			next.City = ""
		}
	}
	set("city", &next.City, patch.City)
	set("locality", &next.Locality, patch.Locality)
	if !location.IsBogota(next.City) {
		next.Locality = ""
	}

	if patch.PaymentMethod != nil {
		next.PaymentMethod = PaymentMethod(strings.TrimSpace(string(*patch.PaymentMethod)))
		touched["paymentMethod"] = struct{}{}
	}
	if patch.CashAmount != nil {
		amount := *patch.CashAmount
		next.CashAmount = &amount
		touched["cashAmount"] = struct{}{}
	}
	if patch.ClearCash || next.PaymentMethod != domain.PaymentMethodCash {
		next.CashAmount = nil
	}
	return next, touched
}

var markupPolicy = bluemonday.StrictPolicy()

// stripMarkup removes tags from free text. Entities produced by the policy are
// decoded again so "Calle 5 # 10-20 & Co" round-trips unchanged.
func stripMarkup(value string) string {
	return strings.TrimSpace(html.UnescapeString(markupPolicy.Sanitize(value)))
}

// SanitizeFormValues strips markup from every free-text field of values.
func SanitizeFormValues(values CheckoutFormValues) CheckoutFormValues {
	values.FirstName = stripMarkup(values.FirstName)
	values.LastName = stripMarkup(values.LastName)
	values.Whatsapp = stripMarkup(values.Whatsapp)
	values.BackupPhone = stripMarkup(values.BackupPhone)
	values.Address = stripMarkup(values.Address)
	values.Department = stripMarkup(values.Department)
	values.City = stripMarkup(values.City)
	values.Locality = stripMarkup(values.Locality)
	values.Landmark = stripMarkup(values.Landmark)
	values.Email = stripMarkup(values.Email)
	values.PaymentMethod = PaymentMethod(strings.TrimSpace(string(values.PaymentMethod)))
	return values
}
