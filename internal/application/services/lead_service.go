package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/captcha"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadtrack-go/pkg/tracking"
)

var (
	ErrInvalidJSON          = errors.New("invalid json")
	ErrInvalidPayload       = errors.New("invalid payload")
	ErrCaptchaFailed        = errors.New("turnstile verification failed")
	ErrForwardFailed        = errors.New("failed to submit lead")
	ErrSubmissionInProgress = errors.New("submission in progress")
)

// requiredLeadFields must be present as non-empty strings.
var requiredLeadFields = []string{"lead_id", "event_type", "submitted_at", "email", "idempotency_key"}

// LeadForwarder delivers an accepted lead to the system of record.
type LeadForwarder interface {
	Forward(ctx context.Context, payload any) error
}

// CaptchaVerifier checks a Turnstile token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (captcha.Result, error)
}

// LeadNotifier emails the site owner.
type LeadNotifier interface {
	SendLeadNotification(ctx context.Context, l *lead.Lead) error
}

// LeadResult is the body of a successful submission.
type LeadResult struct {
	Success   bool   `json:"success"`
	LeadID    string `json:"lead_id"`
	Duplicate bool   `json:"duplicate"`
}

// LeadServiceConfig wires the lead service.
type LeadServiceConfig struct {
	Idempotency   *stores.IdempotencyStore
	Inflight      *caching.KeyLock
	Forwarder     LeadForwarder
	Verifier      CaptchaVerifier
	Repository    lead.Repository // optional
	Notifier      LeadNotifier    // optional
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// LeadService accepts lead submissions: validation, captcha, idempotency,
// forwarding, then best-effort archive and owner notification.
type LeadService struct {
	idempotency   *stores.IdempotencyStore
	inflight      *caching.KeyLock
	forwarder     LeadForwarder
	verifier      CaptchaVerifier
	repo          lead.Repository
	notifier      LeadNotifier
	notifyTimeout time.Duration
	now           func() time.Time
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker

	background sync.WaitGroup
}

// NewLeadService creates the lead service.
func NewLeadService(cfg LeadServiceConfig, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LeadService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Inflight == nil {
		cfg.Inflight = caching.NewKeyLock()
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 15 * time.Second
	}
	return &LeadService{
		idempotency:   cfg.Idempotency,
		inflight:      cfg.Inflight,
		forwarder:     cfg.Forwarder,
		verifier:      cfg.Verifier,
		repo:          cfg.Repository,
		notifier:      cfg.Notifier,
		notifyTimeout: cfg.NotifyTimeout,
		now:           cfg.Now,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

// ParseLeadPayload decodes and validates a raw request body. A body that is
// not JSON yields ErrInvalidJSON; anything failing validation ErrInvalidPayload.
func ParseLeadPayload(body []byte) (tracking.LeadPayload, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return tracking.LeadPayload{}, ErrInvalidJSON
	}

	fields, ok := raw.(map[string]any)
	if !ok {
		return tracking.LeadPayload{}, ErrInvalidPayload
	}
	for _, name := range requiredLeadFields {
		s, ok := fields[name].(string)
		if !ok || s == "" {
			return tracking.LeadPayload{}, ErrInvalidPayload
		}
	}
	if !tracking.IsConversionType(fields["event_type"].(string)) {
		return tracking.LeadPayload{}, ErrInvalidPayload
	}
	email := fields["email"].(string)
	if !strings.Contains(email, "@") || len(email) < 5 {
		return tracking.LeadPayload{}, ErrInvalidPayload
	}

	var payload tracking.LeadPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		// Well-formed JSON with a wrongly typed optional field.
		return tracking.LeadPayload{}, ErrInvalidPayload
	}
	return payload, nil
}

// Submit runs the full acceptance sequence for one request body.
func (s *LeadService) Submit(ctx context.Context, body []byte, clientIP string) (*LeadResult, error) {
	marker := s.perfTracker.StartOperation("lead_submit", "")
	defer marker.Complete()

	payload, err := ParseLeadPayload(body)
	if err != nil {
		s.logger.Lead().Warn("Rejected lead submission", "reason", err.Error(), "clientIP", clientIP)
		marker.SetError(err)
		return nil, err
	}
	marker.AddMetadata("leadId", payload.LeadID)
	log := s.logger.Lead().With("leadId", payload.LeadID, "eventType", payload.EventType)

	if payload.TurnstileToken != "" {
		result, err := s.verifier.Verify(ctx, payload.TurnstileToken, clientIP)
		if err != nil || !result.Success {
			log.Warn("Turnstile verification failed", "errorCodes", result.Error(), "clientIP", clientIP)
			marker.SetError(ErrCaptchaFailed)
			return nil, ErrCaptchaFailed
		}
	}

	if prior, ok := s.idempotency.Check(payload.IdempotencyKey); ok {
		log.Info("Duplicate lead submission", "priorLeadId", prior)
		return &LeadResult{Success: true, LeadID: prior, Duplicate: true}, nil
	}

	if !s.inflight.TryLock(payload.IdempotencyKey) {
		log.Warn("Concurrent submission with same idempotency key")
		marker.SetError(ErrSubmissionInProgress)
		return nil, ErrSubmissionInProgress
	}
	defer s.inflight.Unlock(payload.IdempotencyKey)

	// Another request may have finished between Check and TryLock.
	if prior, ok := s.idempotency.Check(payload.IdempotencyKey); ok {
		return &LeadResult{Success: true, LeadID: prior, Duplicate: true}, nil
	}

	// The token is single use; the sheet never needs it.
	payload.TurnstileToken = ""

	if err := s.forwarder.Forward(ctx, payload); err != nil {
		log.Error("Lead forward failed", "error", err.Error())
		marker.SetError(err)
		return nil, ErrForwardFailed
	}

	s.idempotency.Store(payload.IdempotencyKey, payload.LeadID)

	receivedAt := s.now().UTC()
	record := lead.FromPayload(security.GenerateULID(), payload, clientIP, receivedAt)
	s.archive(ctx, record)
	s.notify(record)

	if !strings.Contains(payload.ConsentState, "marketing") {
		s.logger.Consent().Info("Lead accepted without marketing consent",
			"leadId", payload.LeadID,
			"consent", payload.ConsentState)
	}

	log.Info("Lead accepted",
		"email", logging.SanitizeEmail(payload.Email),
		"sourceType", payload.SourceType,
		"consent", payload.ConsentState)
	return &LeadResult{Success: true, LeadID: payload.LeadID, Duplicate: false}, nil
}

func (s *LeadService) archive(ctx context.Context, record *lead.Lead) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Store(context.WithoutCancel(ctx), record); err != nil {
		s.logger.LogError(logging.ChannelLead, "archive_lead", err, map[string]any{"leadId": record.LeadID})
	}
}

// notify sends the owner email in the background so the visitor never waits
// on a mail provider.
func (s *LeadService) notify(record *lead.Lead) {
	if s.notifier == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()
		if err := s.notifier.SendLeadNotification(ctx, record); err != nil {
			s.logger.Email().Warn("Lead notification not sent", "leadId", record.LeadID, "error", err.Error())
		}
	}()
}

// Wait blocks until background notifications finish or ctx ends.
func (s *LeadService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
