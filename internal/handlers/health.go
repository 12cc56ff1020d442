package handlers

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/platform/httpx"
	"github.com/vinkcol/novacore-ecommerce-template-sub000/internal/repositories"
)

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// HealthHandlers serves liveness and readiness probes.
type HealthHandlers struct {
	build  BuildInfo
	checks repositories.HealthRepository
	clock  func() time.Time
}

// HealthOption customises HealthHandlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo reports build metadata on /healthz.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthChecks configures the dependency probes run by /readyz.
func WithHealthChecks(checks repositories.HealthRepository) HealthOption {
	return func(h *HealthHandlers) {
		h.checks = checks
	}
}

// WithHealthClock overrides the time source.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewHealthHandlers constructs the probe handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.build.StartedAt.IsZero() {
		h.build.StartedAt = h.clock()
	}
	return h
}

type healthResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version,omitempty"`
	CommitSHA   string `json:"commitSha,omitempty"`
	Environment string `json:"environment,omitempty"`
	Uptime      string `json:"uptime"`
	Timestamp   string `json:"timestamp"`
}

// Healthz reports that the process is serving.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	now := h.clock().UTC()
	httpx.WriteJSON(w, http.StatusOK, healthResponse{
		Status:      string(repositories.HealthStatusOK),
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
		Uptime:      now.Sub(h.build.StartedAt).Round(time.Second).String(),
		Timestamp:   now.Format(time.RFC3339),
	})
}

type readinessResponse struct {
	Status      string                              `json:"status"`
	Checks      map[string]repositories.HealthCheck `json:"checks,omitempty"`
	Details     []string                            `json:"details,omitempty"`
	GeneratedAt string                              `json:"generatedAt"`
}

// Readyz probes backing services. Anything but ok answers 503.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.checks == nil {
		httpx.WriteJSON(w, http.StatusOK, readinessResponse{
			Status:      string(repositories.HealthStatusOK),
			GeneratedAt: h.clock().UTC().Format(time.RFC3339),
		})
		return
	}

	report := h.checks.Collect(r.Context())
	resp := readinessResponse{
		Status:      string(report.Status),
		Checks:      report.Checks,
		GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
	}
	for name, check := range report.Checks {
		if check.Status == repositories.HealthStatusOK {
			continue
		}
		detail := strings.TrimSpace(check.Detail)
		if detail == "" {
			detail = string(check.Status)
		}
		resp.Details = append(resp.Details, name+": "+detail)
	}
	sort.Strings(resp.Details)

	status := http.StatusOK
	if report.Status != repositories.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}
	httpx.WriteJSON(w, status, resp)
}
