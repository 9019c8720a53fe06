package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// StoreSizer reports how many entries an in-memory store holds.
type StoreSizer interface {
	Len() int
}

// AdminHandlers contains the authenticated admin endpoints.
type AdminHandlers struct {
	adminService *services.AdminService
	stores       map[string]StoreSizer
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewAdminHandlers creates admin handlers with injected dependencies
func NewAdminHandlers(adminService *services.AdminService, stores map[string]StoreSizer, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AdminHandlers {
	return &AdminHandlers{
		adminService: adminService,
		stores:       stores,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// PostLogin handles POST /api/admin/login
func (h *AdminHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_admin_login_request", middleware.GetRequestID(c))
	defer marker.Complete()

	var loginReq struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.logger.Auth().Error("Login request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.adminService.Authenticate(loginReq.Password, c.ClientIP())
	switch {
	case errors.Is(err, services.ErrAdminDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Admin access not configured"})
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	case err != nil:
		h.logger.Auth().Error("Admin token generation failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}

	marker.SetSuccess(true)
	h.logger.Auth().Info("Admin login successful", "duration", time.Since(start))
	c.JSON(http.StatusOK, gin.H{"success": true, "token": result.Token, "expiresAt": result.ExpiresAt})
}

// GetLeads handles GET /api/admin/leads?limit=N
func (h *AdminHandlers) GetLeads(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_admin_leads_request", middleware.GetRequestID(c))
	defer marker.Complete()

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	leads, total, err := h.adminService.RecentLeads(c.Request.Context(), limit)
	if err != nil {
		h.respondArchiveError(c, err)
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"leads": leads, "count": len(leads), "total": total})
}

// GetLead handles GET /api/admin/leads/:leadId
func (h *AdminHandlers) GetLead(c *gin.Context) {
	record, err := h.adminService.FindLead(c.Request.Context(), c.Param("leadId"))
	if err != nil {
		h.respondArchiveError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": record})
}

func (h *AdminHandlers) respondArchiveError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, lead.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Lead not found"})
	case errors.Is(err, services.ErrArchiveDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Lead archive not configured"})
	default:
		h.logger.Database().Error("Lead archive query failed", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load leads"})
	}
}

// GetStats handles GET /api/admin/stats: operation timings and store sizes.
func (h *AdminHandlers) GetStats(c *gin.Context) {
	sizes := make(map[string]int, len(h.stores))
	for name, s := range h.stores {
		sizes[name] = s.Len()
	}
	c.JSON(http.StatusOK, gin.H{
		"uptime":     h.perfTracker.Uptime().Round(time.Second).String(),
		"operations": h.perfTracker.Stats(),
		"stores":     sizes,
	})
}

// GetLogLevels handles GET /api/admin/logs/levels
func (h *AdminHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, h.logger.GetChannelLevels())
}

// SetLogLevel handles POST /api/admin/logs/levels
func (h *AdminHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	level := logging.ParseLevel(req.Level)
	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to set log level", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": fmt.Sprintf("Log level for channel '%s' set to '%s'", req.Channel, strings.ToUpper(req.Level))})
}

// StreamLogs handles GET /api/admin/logs/stream as server-sent events.
// Query params channel (default all) and level (default INFO) filter the feed.
func (h *AdminHandlers) StreamLogs(c *gin.Context) {
	broadcaster := h.logger.Broadcaster()
	if broadcaster == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Log streaming not enabled"})
		return
	}

	channel := c.DefaultQuery("channel", string(logging.ChannelAll))
	if !logging.IsValidStreamChannel(channel) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown channel"})
		return
	}

	client := broadcaster.Subscribe(logging.AppliedFilters{
		Channel: logging.Channel(channel),
		Level:   logging.ParseLevel(c.DefaultQuery("level", "INFO")),
	})
	if client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Server shutting down"})
		return
	}
	defer broadcaster.Unsubscribe(client)

	h.logger.Auth().Info("Log stream opened", "clientId", client.ID, "channel", channel)

	// Lift the server write timeout where the writer allows it; otherwise
	// the stream ends at the timeout and EventSource reconnects.
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	fmt.Fprintf(c.Writer, ": connection established\n\n")
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case message, ok := <-client.Messages:
			if !ok {
				return false
			}
			fmt.Fprintf(w, "data: %s\n\n", message)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
