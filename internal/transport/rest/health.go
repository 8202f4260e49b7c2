package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/herasat/internal/persistence"
	"github.com/frahmantamala/herasat/internal/transport"
)

type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

type HealthResponse struct {
	Status     HealthStatus          `json:"status"`
	CheckedAt  time.Time             `json:"checked_at"`
	Components map[string]CheckEntry `json:"components"`
}

type CheckEntry struct {
	Status     HealthStatus   `json:"status"`
	Message    string         `json:"message,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CheckedAt  time.Time      `json:"checked_at"`
	DurationMs int64          `json:"duration_ms"`
}

// Pinger is the storage engine's liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter exposes the persistence history.
type StatsReporter interface {
	Stats() persistence.Stats
}

type HealthHandler struct {
	*transport.BaseHandler
	engine Pinger
	slot   StatsReporter
}

func NewHealthHandler(base *transport.BaseHandler, engine Pinger, slot StatsReporter) *HealthHandler {
	return &HealthHandler{BaseHandler: base, engine: engine, slot: slot}
}

// pingHandler just says the service is up.
func (h *HealthHandler) pingHandler(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

// healthCheckHandler checks the engine and reports slot statistics.
func (h *HealthHandler) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.engine.Ping(ctx)

	engine := CheckEntry{
		Status:     HealthHealthy,
		CheckedAt:  time.Now(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		engine.Status = HealthUnhealthy
		engine.Message = err.Error()
	}

	stats := h.slot.Stats()
	slot := CheckEntry{
		Status:    HealthHealthy,
		CheckedAt: time.Now(),
		Details: map[string]any{
			"writes":            stats.Writes,
			"last_bytes":        stats.LastBytes,
			"last_persisted_at": stats.LastPersistedAt,
			"loaded_from_slot":  stats.LoadedFromSlot,
		},
	}

	resp := HealthResponse{
		Status:     engine.Status,
		CheckedAt:  time.Now(),
		Components: map[string]CheckEntry{"sqlite": engine, "slot": slot},
	}

	statusCode := http.StatusOK
	if engine.Status == HealthUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	h.WriteJSON(w, statusCode, resp)
}
