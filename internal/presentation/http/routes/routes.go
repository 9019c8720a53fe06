// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/AtRiskMedia/leadtrack-go/internal/application/container"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/handlers"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies(config.TrustedProxies); err != nil {
		container.Logger.System().Error("Invalid TRUSTED_PROXIES, trusting none", "error", err.Error())
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(container.Logger))
	r.Use(middleware.CORSMiddleware(config.CORSAllowedOrigins))

	// Initialize handlers
	leadHandlers := handlers.NewLeadHandlers(container.LeadService, container.Logger, container.PerfTracker)
	beaconHandlers := handlers.NewBeaconHandlers(container.BeaconService, container.Logger, container.PerfTracker)
	healthHandlers := handlers.NewHealthHandlers(container.PerfTracker)
	adminHandlers := handlers.NewAdminHandlers(container.AdminService, map[string]handlers.StoreSizer{
		"idempotency":       container.IdempotencyStore,
		"lead_rate_limit":   container.LeadRateLimiter,
		"beacon_rate_limit": container.BeaconRateLimiter,
		"login_rate_limit":  container.LoginRateLimiter,
	}, container.Logger, container.PerfTracker)

	api := r.Group("/api")
	{
		api.GET("/health", healthHandlers.GetHealth)

		api.POST("/lead", middleware.RateLimit(container.LeadRateLimiter), leadHandlers.PostLead)

		api.POST("/tracking-beacon", beaconHandlers.PostBeacon)
		api.GET("/tracking-beacon", beaconHandlers.MethodNotAllowed)
		api.PUT("/tracking-beacon", beaconHandlers.MethodNotAllowed)
		api.PATCH("/tracking-beacon", beaconHandlers.MethodNotAllowed)
		api.DELETE("/tracking-beacon", beaconHandlers.MethodNotAllowed)
	}

	adminAPI := r.Group("/api/admin")
	{
		adminAPI.POST("/login", middleware.RateLimit(container.LoginRateLimiter), adminHandlers.PostLogin)

		// Admin Authenticated endpoints
		authed := adminAPI.Group("")
		authed.Use(middleware.AdminAuth(container.AdminService.ValidateToken))
		{
			authed.GET("/leads", adminHandlers.GetLeads)
			authed.GET("/leads/:leadId", adminHandlers.GetLead)
			authed.GET("/stats", adminHandlers.GetStats)
			authed.GET("/logs/levels", adminHandlers.GetLogLevels)
			authed.POST("/logs/levels", adminHandlers.SetLogLevel)
			authed.GET("/logs/stream", adminHandlers.StreamLogs)
		}
	}

	return r
}
