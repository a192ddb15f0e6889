package handler

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 5 * time.Second

// HealthChecker defines an interface for checking service health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthHandler manages health check endpoints.
type HealthHandler struct {
	store HealthChecker
	cache HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
// Pass nil for store or cache if they are not configured.
func NewHealthHandler(store, cache HealthChecker) *HealthHandler {
	return &HealthHandler{
		store: store,
		cache: cache,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is a liveness probe endpoint.
// It returns 200 if the server is running and checks no dependencies.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is a readiness probe endpoint.
// It returns 200 only if the lead store and cache answer a ping.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := make(map[string]string, 2)
	healthy := check(ctx, checks, "store", h.store)
	healthy = check(ctx, checks, "cache", h.cache) && healthy

	status := "ok"
	statusCode := http.StatusOK
	if !healthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, HealthResponse{
		Status: status,
		Checks: checks,
	})
}

func check(ctx context.Context, checks map[string]string, name string, c HealthChecker) bool {
	if c == nil {
		checks[name] = "not configured"
		return true
	}
	if err := c.Ping(ctx); err != nil {
		checks[name] = "error: " + err.Error()
		return false
	}
	checks[name] = "ok"
	return true
}
