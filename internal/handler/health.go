package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	redis   Pinger
	ref     *Reference
	version string
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when
// preferences are kept in memory.
func NewHealthHandler(redis Pinger, ref *Reference, version string) *HealthHandler {
	return &HealthHandler{redis: redis, ref: ref, version: version}
}

// Health is a simple liveness probe.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.version})
}

// Ready reports whether Redis answers and the reference data was loaded.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status":    "ready",
		"redis":     "connected",
		"reference": "loaded",
	}
	status := http.StatusOK

	if h.redis == nil {
		response["redis"] = "disabled"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			response["status"] = "not_ready"
			response["redis"] = "disconnected"
			status = http.StatusServiceUnavailable
		}
	}

	if h.ref.LoadedAt().IsZero() {
		response["status"] = "not_ready"
		response["reference"] = "not_loaded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}
