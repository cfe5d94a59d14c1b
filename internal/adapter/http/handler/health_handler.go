package handler

import (
	"context"
	"net/http"
	"time"
)

const readinessTimeout = 3 * time.Second

// Check probes one dependency of the register.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// HealthHandler serves /health and /ready.
type HealthHandler struct {
	checks  []Check
	started time.Time
}

func NewHealthHandler(checks ...Check) *HealthHandler {
	return &HealthHandler{checks: checks, started: time.Now()}
}

// Liveness only reports that the process serves HTTP.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	})
}

// Readiness runs every check and lists the result of each, answering 503
// when any of them fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	status, code := "ready", http.StatusOK
	for _, c := range h.checks {
		if err := c.Ping(ctx); err != nil {
			results[c.Name] = err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		results[c.Name] = "ok"
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": results})
}
