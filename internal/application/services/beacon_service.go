package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/beacon"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin/binding"
)

// BeaconForwarder sends a beacon row to the tracking sheet.
type BeaconForwarder interface {
	Configured() bool
	ForwardBeacon(ctx context.Context, fields map[string]any, receivedAt time.Time) error
}

// BeaconOutcome says what happened to one beacon. The HTTP answer is the
// same whatever it says.
type BeaconOutcome struct {
	Valid       bool
	RateLimited bool
	Forwarded   bool
}

// BeaconService accepts tracking beacons. It never fails the caller.
type BeaconService struct {
	limiter     *stores.RateLimiter
	forwarder   BeaconForwarder
	now         func() time.Time
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewBeaconService creates a new beacon service. limiter and forwarder may be nil.
func NewBeaconService(limiter *stores.RateLimiter, forwarder BeaconForwarder, now func() time.Time, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *BeaconService {
	if now == nil {
		now = time.Now
	}
	return &BeaconService{
		limiter:     limiter,
		forwarder:   forwarder,
		now:         now,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ParseBeacon decodes and validates a beacon body.
func ParseBeacon(body []byte) (beacon.Payload, error) {
	var p beacon.Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return beacon.Payload{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if err := binding.Validator.ValidateStruct(&p); err != nil {
		return beacon.Payload{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return p, nil
}

// Receive logs the beacon and forwards it when it is valid, the caller is
// within the rate limit, and a tracking sheet is configured.
func (s *BeaconService) Receive(ctx context.Context, body []byte, clientIP string) BeaconOutcome {
	marker := s.perfTracker.StartOperation("tracking_beacon", "")
	defer marker.Complete()

	var outcome BeaconOutcome

	if s.limiter != nil && !s.limiter.Allow(clientIP).Allowed {
		outcome.RateLimited = true
		s.logger.RateLimit().Warn("Beacon rate limited, not forwarded", "clientIP", clientIP)
		return outcome
	}

	p, err := ParseBeacon(body)
	if err != nil {
		s.logger.Tracking().Warn("Invalid beacon payload", "error", err.Error(), "clientIP", clientIP)
		marker.SetError(err)
		return outcome
	}
	outcome.Valid = true

	gclid := ""
	if p.Gclid != nil {
		gclid = *p.Gclid
	}
	s.logger.Tracking().Info("Beacon received",
		"transactionId", p.TransactionID,
		"gclid", gclid,
		"timestamp", p.Timestamp)

	if s.forwarder == nil || !s.forwarder.Configured() {
		return outcome
	}

	if err := s.forwarder.ForwardBeacon(ctx, p.Fields(), s.now()); err != nil {
		s.logger.Webhook().Warn("Beacon sheets webhook failed", "error", err.Error())
		return outcome
	}
	outcome.Forwarded = true
	return outcome
}
