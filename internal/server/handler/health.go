package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Check probes one backing service.
type Check func(ctx context.Context) error

const checkTimeout = 2 * time.Second

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	checks    map[string]Check
	tolerance float64
	started   time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. checks may be nil.
func NewHealthHandler(checks map[string]Check, tolerance float64, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		tolerance: tolerance,
		started:   time.Now(),
		logger:    logger,
	}
}

// HealthCheck reports "ok", or "degraded" with 503 when a backing service
// fails its probe.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status, code := "ok", http.StatusOK
	deps := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed",
				slog.String("dependency", name),
				slog.String("error", err.Error()),
			)
			deps[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":              status,
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"uptime_seconds":      int64(time.Since(h.started).Seconds()),
		"ephemeris_tolerance": h.tolerance,
		"dependencies":        deps,
	})
}
