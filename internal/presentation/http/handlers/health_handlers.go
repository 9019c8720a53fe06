package handlers

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// HealthHandlers reports liveness.
type HealthHandlers struct {
	perfTracker *performance.Tracker
	version     string
}

// NewHealthHandlers creates health handlers.
func NewHealthHandlers(perfTracker *performance.Tracker) *HealthHandlers {
	return &HealthHandlers{perfTracker: perfTracker, version: config.Version}
}

// GetHealth handles GET /api/health.
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  h.perfTracker.Uptime().Round(time.Second).String(),
	})
}
