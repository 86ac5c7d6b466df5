package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/Sentinel-Gate/filegate/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker verifies component health.
type HealthChecker struct {
	allocator identity.Allocator
	registry  *memory.SessionRegistry
	version   string
}

// NewHealthChecker creates a HealthChecker with optional components.
// Pass nil for components that aren't available.
func NewHealthChecker(allocator identity.Allocator, registry *memory.SessionRegistry, version string) *HealthChecker {
	return &HealthChecker{
		allocator: allocator,
		registry:  registry,
		version:   version,
	}
}

// Check performs health checks on all components.
// A full server is reported but still healthy: it is answering BUSY as designed.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)
	healthy := true

	if h.allocator != nil {
		inUse, capacity := h.allocator.InUse(), h.allocator.Capacity()
		switch {
		case capacity <= 0:
			checks["slots"] = "invalid capacity"
			healthy = false
		case inUse >= capacity:
			checks["slots"] = fmt.Sprintf("full: %d/%d", inUse, capacity)
		default:
			checks["slots"] = fmt.Sprintf("ok: %d/%d", inUse, capacity)
		}
	} else {
		checks["slots"] = "not configured"
	}

	if h.registry != nil {
		// Size() acquires the read lock; a hang here means a stuck writer.
		checks["sessions"] = fmt.Sprintf("ok: %d recorded", h.registry.Size())
	} else {
		checks["sessions"] = "not configured"
	}

	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	return HealthResponse{
		Status:  status,
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
