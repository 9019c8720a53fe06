// Package stores holds the process-local maps behind the lead API: the
// idempotency register and the per-IP rate limiter.
package stores

import (
	"sync"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

type idempotencyEntry struct {
	leadID    string
	expiresAt time.Time
}

// IdempotencyStore maps idempotency keys to the lead id first accepted for
// them. Entries expire after the configured TTL.
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	ttl     time.Duration
	now     func() time.Time
	logger  *logging.ChanneledLogger
}

// NewIdempotencyStore creates an empty store. A nil clock means time.Now.
func NewIdempotencyStore(ttl time.Duration, now func() time.Time, logger *logging.ChanneledLogger) *IdempotencyStore {
	if now == nil {
		now = time.Now
	}
	if logger != nil {
		logger.Lead().Info("Initializing idempotency store", "ttl", ttl)
	}
	return &IdempotencyStore{
		entries: make(map[string]idempotencyEntry),
		ttl:     ttl,
		now:     now,
		logger:  logger,
	}
}

// Check returns the lead id stored for key. Expired entries are swept first,
// so a key older than the TTL is never reported.
func (s *IdempotencyStore) Check(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	entry, ok := s.entries[key]
	if !ok {
		return "", false
	}
	return entry.leadID, true
}

// Store records key as processed for leadID. An existing entry is replaced.
func (s *IdempotencyStore) Store(key, leadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = idempotencyEntry{
		leadID:    leadID,
		expiresAt: s.now().Add(s.ttl),
	}
}

// Sweep drops expired entries and returns how many went.
func (s *IdempotencyStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *IdempotencyStore) sweepLocked() int {
	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
			removed++
		}
	}
	if removed > 0 && s.logger != nil {
		s.logger.Lead().Debug("Expired idempotency keys removed", "count", removed)
	}
	return removed
}

// Len reports the number of entries not yet swept.
func (s *IdempotencyStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
