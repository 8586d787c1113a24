// Package handlers contains HTTP handlers for the API.
package handlers

import (
	"context"
	"net/http"

	"norelock.dev/listenify/gateway/internal/services/system"
	"norelock.dev/listenify/gateway/internal/utils"
)

// HealthReporter returns the latest cached health snapshot.
type HealthReporter interface {
	GetHealth(ctx context.Context) system.SystemHealth
}

// HealthHandler handles HTTP requests related to system health.
type HealthHandler struct {
	health HealthReporter
	logger *utils.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(health HealthReporter, logger *utils.Logger) *HealthHandler {
	return &HealthHandler{
		health: health,
		logger: logger.Named("health_handler"),
	}
}

// Check answers 200 while the gateway can serve requests, a degraded
// non-critical component included, and 503 once it cannot.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	health := h.health.GetHealth(r.Context())

	statusCode := http.StatusOK
	if health.Status == system.StatusDown {
		h.logger.Warn("Reporting unhealthy", "components", len(health.Components))
		statusCode = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, statusCode, health)
}
