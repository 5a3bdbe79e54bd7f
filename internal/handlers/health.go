package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthDependency is any backend whose connectivity the extended health
// check can probe.
type HealthDependency interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker handles health check requests
type HealthChecker struct {
	deps map[string]HealthDependency
}

// NewHealthChecker creates a health checker over named dependencies. Nil
// dependencies are skipped so partial deployments still report health.
func NewHealthChecker(deps map[string]HealthDependency) *HealthChecker {
	filtered := make(map[string]HealthDependency, len(deps))
	for name, dep := range deps {
		if dep != nil {
			filtered[name] = dep
		}
	}
	return &HealthChecker{deps: filtered}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	statusCode := http.StatusOK
	if r.URL.Query().Get("mode") == "extended" {
		checks := make(map[string]string)
		for name, dep := range h.deps {
			if err := h.check(r.Context(), dep); err != nil {
				response.Status = "unhealthy"
				checks[name] = "unhealthy: " + err.Error()
			} else {
				checks[name] = "healthy"
			}
		}
		response.Checks = checks
		if response.Status == "unhealthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) check(ctx context.Context, dep HealthDependency) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return dep.HealthCheck(ctx)
}
