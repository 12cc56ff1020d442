package repositories

import (
	"context"
	"errors"
	"sync"
	"time"
)

const defaultDependencyTimeout = 1500 * time.Millisecond

// HealthStatus summarises a dependency probe.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusError    HealthStatus = "error"
)

// HealthCheck is the result of one dependency probe.
type HealthCheck struct {
	Status    HealthStatus `json:"status"`
	Detail    string       `json:"detail,omitempty"`
	LatencyMS int64        `json:"latencyMs"`
}

// HealthReport aggregates every probe; Status is the worst individual status.
type HealthReport struct {
	Status      HealthStatus           `json:"status"`
	Checks      map[string]HealthCheck `json:"checks"`
	GeneratedAt time.Time              `json:"generatedAt"`
}

// DependencyCheck probes one backing service (Firestore, Redis, Pub/Sub).
type DependencyCheck struct {
	Name    string
	Timeout time.Duration
	Check   func(context.Context) error
}

// HealthRepository runs readiness probes.
type HealthRepository interface {
	Collect(ctx context.Context) HealthReport
}

type dependencyHealthRepository struct {
	checks []DependencyCheck
	now    func() time.Time
}

// NewDependencyHealthRepository builds a HealthRepository over checks. A nil
// clock uses time.Now.
func NewDependencyHealthRepository(checks []DependencyCheck, clock func() time.Time) (HealthRepository, error) {
	if len(checks) == 0 {
		return nil, errors.New("health repository: at least one dependency check is required")
	}
	for _, check := range checks {
		if check.Name == "" || check.Check == nil {
			return nil, errors.New("health repository: dependency checks need a name and a function")
		}
	}
	if clock == nil {
		clock = time.Now
	}
	return &dependencyHealthRepository{checks: append([]DependencyCheck(nil), checks...), now: clock}, nil
}

// Collect runs all checks concurrently, each bounded by its own timeout.
func (r *dependencyHealthRepository) Collect(ctx context.Context) HealthReport {
	results := make(map[string]HealthCheck, len(r.checks))
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range r.checks {
		wg.Add(1)
		go func(check DependencyCheck) {
			defer wg.Done()
			timeout := check.Timeout
			if timeout <= 0 {
				timeout = defaultDependencyTimeout
			}
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			start := r.now()
			err := check.Check(checkCtx)
			result := HealthCheck{Status: HealthStatusOK, LatencyMS: r.now().Sub(start).Milliseconds()}
			switch {
			case err == nil:
			case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
				result.Status = HealthStatusError
				result.Detail = "timeout"
			default:
				result.Status = HealthStatusDegraded
				result.Detail = err.Error()
			}

			mu.Lock()
			results[check.Name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	status := HealthStatusOK
	for _, result := range results {
		if result.Status == HealthStatusError {
			status = HealthStatusError
			break
		}
		if result.Status == HealthStatusDegraded {
			status = HealthStatusDegraded
		}
	}
	return HealthReport{Status: status, Checks: results, GeneratedAt: r.now().UTC()}
}
