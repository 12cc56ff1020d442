package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/requestctx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/services"
)

const (
	defaultSessionHeader = "X-Session-ID"
	maxSessionIDLength   = 128
)

// SessionMiddleware copies the browser session id from header into the request
// context. Malformed ids are dropped, so session routes answer session_required.
func SessionMiddleware(header string) func(http.Handler) http.Handler {
	header = strings.TrimSpace(header)
	if header == "" {
		header = defaultSessionHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessionID, ok := parseSessionID(r.Header.Get(header)); ok {
				r = r.WithContext(requestctx.WithSession(r.Context(), sessionID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func parseSessionID(raw string) (string, bool) {
	sessionID := strings.TrimSpace(raw)
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		return "", false
	}
	for _, r := range sessionID {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", false
		}
	}
	return sessionID, true
}

// requireSessionID reads the session id or writes a 400 and reports false.
func requireSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := requestctx.SessionID(r.Context())
	if sessionID == "" {
		writeSessionRequired(r.Context(), w)
		return "", false
	}
	return sessionID, true
}

func writeSessionRequired(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("session_required", "a session id header is required", http.StatusBadRequest))
}

// decodeBody decodes a JSON request body and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	if err := httpx.DecodeJSON(r, dst, allowEmpty); err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "request body must be valid JSON", http.StatusBadRequest).WithDetails(map[string]any{"reason": err.Error()}))
		return false
	}
	return true
}

// writeCommonError maps errors shared by every session scoped service.
func writeCommonError(ctx context.Context, w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, services.ErrSessionRequired):
		writeSessionRequired(ctx, w)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpx.WriteError(ctx, w, httpx.NewError("request_timeout", "request was cancelled or timed out", http.StatusServiceUnavailable))
	default:
		return false
	}
	return true
}
