package performance

import (
	"log/slog"
	"sync"
	"time"
)

// Tracker keeps the most recent completed markers and warns on slow ones.
type Tracker struct {
	mu        sync.RWMutex
	completed []*Marker
	config    *TrackerConfig
	logger    *slog.Logger
	started   time.Time
}

// TrackerConfig contains configuration options for the performance tracker
type TrackerConfig struct {
	MaxMarkers    int           `json:"maxMarkers"`    // Completed markers retained for stats
	SlowThreshold time.Duration `json:"slowThreshold"` // Completed operations slower than this are logged at warn
}

// DefaultTrackerConfig returns a sensible default configuration
func DefaultTrackerConfig() *TrackerConfig {
	return &TrackerConfig{
		MaxMarkers:    1000,
		SlowThreshold: 2 * time.Second,
	}
}

// NewTracker creates a tracker. A nil logger disables slow-operation logs.
func NewTracker(config *TrackerConfig, logger *slog.Logger) *Tracker {
	if config == nil {
		config = DefaultTrackerConfig()
	}
	return &Tracker{
		config:  config,
		logger:  logger,
		started: time.Now(),
	}
}

// StartOperation creates a marker that reports back to the tracker when
// completed.
func (t *Tracker) StartOperation(operation, requestID string) *Marker {
	return &Marker{
		Operation:  operation,
		RequestID:  requestID,
		StartTime:  time.Now(),
		Metadata:   make(map[string]any),
		Success:    true,
		onComplete: t.record,
	}
}

func (t *Tracker) record(m *Marker) {
	t.mu.Lock()
	t.completed = append(t.completed, m)
	if len(t.completed) > t.config.MaxMarkers {
		t.completed = t.completed[len(t.completed)-t.config.MaxMarkers:]
	}
	t.mu.Unlock()

	if t.logger != nil && m.Duration > t.config.SlowThreshold {
		t.logger.Warn("Slow operation",
			"operation", m.Operation,
			"requestId", m.RequestID,
			"duration", m.Duration,
			"success", m.Success)
	}
}

// Stats groups the retained markers by operation.
func (t *Tracker) Stats() map[string]OperationStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	totals := make(map[string]time.Duration)
	stats := make(map[string]OperationStats)
	for _, m := range t.completed {
		s := stats[m.Operation]
		s.Count++
		if !m.Success {
			s.Failures++
		}
		if m.Duration > s.MaxDuration {
			s.MaxDuration = m.Duration
		}
		totals[m.Operation] += m.Duration
		stats[m.Operation] = s
	}
	for op, s := range stats {
		s.AvgDuration = totals[op] / time.Duration(s.Count)
		stats[op] = s
	}
	return stats
}

// Uptime is the time since the tracker was created.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
