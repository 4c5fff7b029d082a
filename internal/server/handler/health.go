package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/curvelabs/bondengine/internal/engine"
)

// Pinger is a connectivity probe for a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the health-check endpoint, probing each registered
// dependency.
type HealthHandler struct {
	engine *engine.Engine
	probes map[string]Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. Probes may be nil or empty.
func NewHealthHandler(eng *engine.Engine, probes map[string]Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{engine: eng, probes: probes, logger: logHandler(logger, "health")}
}

// HealthCheck reports overall status plus per-dependency results. A failing
// dependency degrades the response to 503.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.probes))
	for name, p := range h.probes {
		if err := p.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":       overall,
		"stopped":      h.engine.Stopped(),
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
