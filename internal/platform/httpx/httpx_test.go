package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteErrorIncludesFieldsAndDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewError("validation_failed", "revisa el formulario\n", http.StatusUnprocessableEntity).
		WithFields(map[string]string{"phone": "celular inválido"}).
		WithDetails(map[string]any{"minimum": 50000, "status": 1})
	WriteError(context.Background(), rec, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["error"] != "validation_failed" || payload["message"] != "revisa el formulario" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload["status"] != float64(http.StatusUnprocessableEntity) {
		t.Fatalf("details must not override status, got %v", payload["status"])
	}
	fields, ok := payload["fields"].(map[string]any)
	if !ok || fields["phone"] != "celular inválido" || payload["minimum"] != float64(50000) {
		t.Fatalf("unexpected fields %+v", payload)
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ok"}`))
	if err := DecodeJSON(req, &dst, false); err != nil || dst.Name != "ok" {
		t.Fatalf("unexpected decode result %v %+v", err, dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"other":1}`))
	if err := DecodeJSON(req, &dst, false); !errors.Is(err, ErrInvalidBody) {
		t.Fatalf("expected unknown field rejection, got %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &dst, true); err != nil {
		t.Fatalf("expected empty body to be allowed, got %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	if err := DecodeJSON(req, &dst, false); !errors.Is(err, ErrInvalidBody) {
		t.Fatalf("expected empty body rejection, got %v", err)
	}
}
