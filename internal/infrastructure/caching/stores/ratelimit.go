package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// RateLimitResult is the outcome of one Allow call.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RateLimiter is a sliding-window limiter keyed by client IP. Each key keeps
// the timestamps of its accepted requests inside the window.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
	logger *logging.ChanneledLogger
}

// NewRateLimiter allows max requests per window per key.
func NewRateLimiter(max int, window time.Duration, now func() time.Time, logger *logging.ChanneledLogger) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	if max < 1 {
		max = 1
	}
	if logger != nil {
		logger.RateLimit().Info("Initializing rate limiter", "max", max, "window", window)
	}
	return &RateLimiter{
		hits:   make(map[string][]time.Time),
		max:    max,
		window: window,
		now:    now,
		logger: logger,
	}
}

// Allow counts a request from key. Stale keys are swept on every call.
func (r *RateLimiter) Allow(key string) RateLimitResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	hits := r.hits[key]
	if len(hits) >= r.max {
		if r.logger != nil {
			r.logger.RateLimit().Warn("Rate limit exceeded", "clientIP", key, "count", len(hits))
		}
		return RateLimitResult{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   hits[0].Add(r.window),
		}
	}

	hits = append(hits, now)
	r.hits[key] = hits
	return RateLimitResult{
		Allowed:   true,
		Remaining: r.max - len(hits),
		ResetAt:   hits[0].Add(r.window),
	}
}

// Sweep trims every key to its window and drops empty keys. It returns the
// number of keys removed.
func (r *RateLimiter) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(r.now())
}

func (r *RateLimiter) sweepLocked(now time.Time) int {
	cutoff := now.Add(-r.window)
	removed := 0
	for key, hits := range r.hits {
		i := 0
		for i < len(hits) && !hits[i].After(cutoff) {
			i++
		}
		if i == len(hits) {
			delete(r.hits, key)
			removed++
			continue
		}
		if i > 0 {
			r.hits[key] = append([]time.Time(nil), hits[i:]...)
		}
	}
	return removed
}

// Len reports the number of tracked keys.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.hits)
}
