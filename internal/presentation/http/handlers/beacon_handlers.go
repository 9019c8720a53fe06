package handlers

import (
	"io"
	"net/http"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// BeaconHandlers serves the tracking beacon endpoint.
type BeaconHandlers struct {
	beaconService *services.BeaconService
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewBeaconHandlers creates beacon handlers with injected dependencies
func NewBeaconHandlers(beaconService *services.BeaconService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *BeaconHandlers {
	return &BeaconHandlers{
		beaconService: beaconService,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// PostBeacon handles POST /api/tracking-beacon. It always answers 200.
func (h *BeaconHandlers) PostBeacon(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		h.logger.Tracking().Warn("Beacon body unreadable", "error", err.Error())
	} else {
		h.beaconService.Receive(c.Request.Context(), body, c.ClientIP())
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// MethodNotAllowed answers any other method on the beacon route.
func (h *BeaconHandlers) MethodNotAllowed(c *gin.Context) {
	c.Header("Allow", http.MethodPost)
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
