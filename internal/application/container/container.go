// Package container provides dependency injection for all singleton services
package container

import (
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching/cleanup"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/captcha"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/email"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	leadpersistence "github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/webhook"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Application Services
	LeadService   *services.LeadService
	BeaconService *services.BeaconService
	AdminService  *services.AdminService

	// Instance-local stores
	IdempotencyStore  *stores.IdempotencyStore
	LeadRateLimiter   *stores.RateLimiter
	BeaconRateLimiter *stores.RateLimiter
	LoginRateLimiter  *stores.RateLimiter
	Sweeper           *cleanup.Worker

	// Infrastructure Dependencies
	DB             *database.DB
	LeadRepository lead.Repository
	EmailService   *email.NotificationService

	// Observability
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
}

// NewContainer wires every service from pkg/config. db may be nil, in which
// case leads are not archived and the admin lead endpoints answer 503.
func NewContainer(logger *logging.ChanneledLogger, db *database.DB) *Container {
	perfTracker := performance.NewTracker(performance.DefaultTrackerConfig(), logger.Perf())

	var repo lead.Repository
	if db != nil {
		repo = leadpersistence.NewSQLLeadRepository(db)
	}

	idempotency := stores.NewIdempotencyStore(config.IdempotencyTTL, nil, logger)
	leadLimiter := stores.NewRateLimiter(config.RateLimitMax, config.RateLimitWindow, nil, logger)
	beaconLimiter := stores.NewRateLimiter(config.RateLimitMax, config.RateLimitWindow, nil, logger)
	loginLimiter := stores.NewRateLimiter(5, config.RateLimitWindow, nil, logger)

	httpClient := &http.Client{Timeout: 30 * time.Second}
	emailService := email.NewServiceFromConfig(logger)

	var notifier services.LeadNotifier
	if emailService.Enabled() {
		notifier = emailService
	} else {
		logger.Startup().Warn("Lead notification email disabled", "reason", "LEAD_NOTIFY_EMAIL or provider keys unset")
	}

	leadService := services.NewLeadService(services.LeadServiceConfig{
		Idempotency:   idempotency,
		Inflight:      caching.NewKeyLock(),
		Forwarder:     webhook.NewSheetsClient(httpClient, config.SheetsWebhookURL, config.SheetsTimeout, logger),
		Verifier:      captcha.NewVerifier(httpClient, config.TurnstileSecretKey, config.TurnstileVerifyURL, logger),
		Repository:    repo,
		Notifier:      notifier,
		NotifyTimeout: config.EmailSendTimeout,
	}, logger, perfTracker)

	beaconService := services.NewBeaconService(
		beaconLimiter,
		webhook.NewSheetsClient(httpClient, config.TrackingSheetsWebhookURL, config.BeaconForwardTimeout, logger),
		nil, logger, perfTracker)

	adminService := services.NewAdminService(config.AdminPasswordHash, config.JWTSecret, config.AdminTokenTTL, repo, logger, perfTracker)

	sweeper := cleanup.NewWorker(cleanup.NewConfig(), logger,
		cleanup.Target{Name: "idempotency", Store: idempotency},
		cleanup.Target{Name: "lead_rate_limit", Store: leadLimiter},
		cleanup.Target{Name: "beacon_rate_limit", Store: beaconLimiter},
		cleanup.Target{Name: "login_rate_limit", Store: loginLimiter},
	)

	return &Container{
		LeadService:       leadService,
		BeaconService:     beaconService,
		AdminService:      adminService,
		IdempotencyStore:  idempotency,
		LeadRateLimiter:   leadLimiter,
		BeaconRateLimiter: beaconLimiter,
		LoginRateLimiter:  loginLimiter,
		Sweeper:           sweeper,
		DB:                db,
		LeadRepository:    repo,
		EmailService:      emailService,
		Logger:            logger,
		PerfTracker:       perfTracker,
	}
}

// Close releases the database connection.
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
