package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

const (
	DefaultRecentLeads = 50
	MaxRecentLeads     = 500
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin access not configured")
	ErrArchiveDisabled    = errors.New("lead archive not configured")
)

// AdminResult holds authentication result data
type AdminResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminService handles admin login and archive reads.
type AdminService struct {
	passwordHash string
	jwtSecret    string
	tokenTTL     time.Duration
	repo         lead.Repository
	now          func() time.Time
	logger       *logging.ChanneledLogger
	perfTracker  *performance.Tracker
}

// NewAdminService creates the admin service. An empty hash or secret disables login.
func NewAdminService(passwordHash, jwtSecret string, tokenTTL time.Duration, repo lead.Repository, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AdminService {
	return &AdminService{
		passwordHash: passwordHash,
		jwtSecret:    jwtSecret,
		tokenTTL:     tokenTTL,
		repo:         repo,
		now:          time.Now,
		logger:       logger,
		perfTracker:  perfTracker,
	}
}

// Enabled reports whether admin login can succeed at all.
func (a *AdminService) Enabled() bool {
	return a.passwordHash != "" && a.jwtSecret != ""
}

// Authenticate checks password and issues an admin token.
func (a *AdminService) Authenticate(password, clientIP string) (*AdminResult, error) {
	marker := a.perfTracker.StartOperation("admin_login", "")
	defer marker.Complete()

	if !a.Enabled() {
		marker.SetError(ErrAdminDisabled)
		return nil, ErrAdminDisabled
	}
	if !security.CheckPassword(a.passwordHash, password) {
		a.logger.LogAuthOperation("admin_login", clientIP, false)
		marker.SetError(ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	now := a.now()
	token, err := security.GenerateAdminToken(a.jwtSecret, a.tokenTTL, now)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("token generation failed: %w", err)
	}

	a.logger.LogAuthOperation("admin_login", clientIP, true)
	return &AdminResult{Token: token, ExpiresAt: now.Add(a.tokenTTL).UTC()}, nil
}

// ValidateToken reports whether token is a live admin token.
func (a *AdminService) ValidateToken(token string) bool {
	return security.ValidateAdminToken(token, a.jwtSecret)
}

// RecentLeads returns archived leads newest first. limit is clamped to
// [1, MaxRecentLeads]; zero means DefaultRecentLeads.
func (a *AdminService) RecentLeads(ctx context.Context, limit int) ([]*lead.Lead, int, error) {
	if a.repo == nil {
		return nil, 0, ErrArchiveDisabled
	}

	marker := a.perfTracker.StartOperation("admin_recent_leads", "")
	defer marker.Complete()

	switch {
	case limit <= 0:
		limit = DefaultRecentLeads
	case limit > MaxRecentLeads:
		limit = MaxRecentLeads
	}

	leads, err := a.repo.FindRecent(ctx, limit)
	if err != nil {
		marker.SetError(err)
		return nil, 0, err
	}
	total, err := a.repo.Count(ctx)
	if err != nil {
		marker.SetError(err)
		return nil, 0, err
	}
	if leads == nil {
		leads = []*lead.Lead{}
	}
	return leads, total, nil
}

// FindLead looks up one archived lead by its lead id.
func (a *AdminService) FindLead(ctx context.Context, leadID string) (*lead.Lead, error) {
	if a.repo == nil {
		return nil, ErrArchiveDisabled
	}
	return a.repo.FindByLeadID(ctx, leadID)
}
