package tracking

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type storedSession struct {
	ID           string `json:"id"`
	LastActivity int64  `json:"lastActivity"`
}

// SessionManager derives a stable session id with a sliding inactivity
// window. The same stored session is shared by every tracker on the backend.
type SessionManager struct {
	storage *Storage
	now     func() time.Time
	timeout time.Duration
}

// NewSessionManager builds a manager with the default 30 minute timeout.
func NewSessionManager(storage *Storage, now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{storage: storage, now: now, timeout: SessionTimeout}
}

// GetOrCreateSessionID returns the live session id, extending its window, or
// starts a new session. Every call is a write; use CurrentSessionID to test
// freshness without extending.
func (m *SessionManager) GetOrCreateSessionID() string {
	now := m.now()

	var stored storedSession
	if m.storage.GetJSON(KeySession, &stored) && stored.ID != "" && m.fresh(stored, now) {
		m.storage.SetJSON(KeySession, storedSession{ID: stored.ID, LastActivity: now.UnixMilli()})
		return stored.ID
	}

	return m.start(now)
}

// CurrentSessionID returns the live session id without touching its window.
func (m *SessionManager) CurrentSessionID() (string, bool) {
	var stored storedSession
	if !m.storage.GetJSON(KeySession, &stored) || stored.ID == "" {
		return "", false
	}
	if !m.fresh(stored, m.now()) {
		return "", false
	}
	return stored.ID, true
}

// HasActiveSession reports whether a session is live, without extending it.
func (m *SessionManager) HasActiveSession() bool {
	_, ok := m.CurrentSessionID()
	return ok
}

// ForceNewSession discards any existing session and starts a new one.
func (m *SessionManager) ForceNewSession() string {
	return m.start(m.now())
}

func (m *SessionManager) start(now time.Time) string {
	id := generateSessionID(now)
	m.storage.SetJSON(KeySession, storedSession{ID: id, LastActivity: now.UnixMilli()})
	return id
}

func (m *SessionManager) fresh(s storedSession, now time.Time) bool {
	return now.UnixMilli()-s.LastActivity < m.timeout.Milliseconds()
}

func generateSessionID(now time.Time) string {
	if id, err := uuid.NewRandom(); err == nil {
		return "sess_" + id.String()[:8]
	}
	return fmt.Sprintf("sess_%s_%s", strconv.FormatInt(now.UnixMilli(), 36), randomBase36(4))
}

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randomBase36 is advisory randomness for ids, not a security primitive.
func randomBase36(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36Alphabet[rand.Intn(len(base36Alphabet))]
	}
	return string(b)
}
