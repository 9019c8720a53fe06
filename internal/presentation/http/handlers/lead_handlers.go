// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// maxBodyBytes bounds lead and beacon bodies.
const maxBodyBytes = 64 << 10

// LeadHandlers serves the lead submission endpoint.
type LeadHandlers struct {
	leadService *services.LeadService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewLeadHandlers creates lead handlers with injected dependencies
func NewLeadHandlers(leadService *services.LeadService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LeadHandlers {
	return &LeadHandlers{
		leadService: leadService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// PostLead handles POST /api/lead. The body is read as JSON whatever the
// Content-Type, since sendBeacon delivers text/plain.
func (h *LeadHandlers) PostLead(c *gin.Context) {
	start := time.Now()
	requestID := middleware.GetRequestID(c)
	marker := h.perfTracker.StartOperation("post_lead_request", requestID)
	defer marker.Complete()
	log := h.logger.WithRequest(logging.ChannelLead, requestID)
	log.Debug("Received lead submission", "method", c.Request.Method, "path", c.Request.URL.Path)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Warn("Lead body unreadable", "error", err.Error())
		marker.SetError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	result, err := h.leadService.Submit(c.Request.Context(), body, c.ClientIP())
	if err != nil {
		marker.SetError(err)
		status, message := leadErrorResponse(err)
		c.JSON(status, gin.H{"error": message})
		return
	}

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostLead request", "duration", time.Since(start), "requestId", requestID, "duplicate", result.Duplicate)
	c.JSON(http.StatusOK, result)
}

func leadErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidJSON):
		return http.StatusBadRequest, "Invalid JSON"
	case errors.Is(err, services.ErrInvalidPayload):
		return http.StatusBadRequest, "Invalid payload"
	case errors.Is(err, services.ErrCaptchaFailed):
		return http.StatusForbidden, "Turnstile verification failed"
	case errors.Is(err, services.ErrSubmissionInProgress):
		return http.StatusConflict, "Submission in progress"
	default:
		return http.StatusInternalServerError, "Failed to submit lead"
	}
}
