package tracking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionManager(clock *fakeClock) *SessionManager {
	return NewSessionManager(NewStorage(NewMemoryBackend(), nil), clock.Now)
}

func TestSessionManager(t *testing.T) {
	t.Run("stable within 29 minutes", func(t *testing.T) {
		clock := newFakeClock()
		m := newSessionManager(clock)

		first := m.GetOrCreateSessionID()
		clock.Advance(29 * time.Minute)
		second := m.GetOrCreateSessionID()

		assert.Equal(t, first, second)
	})

	t.Run("new id after 31 minutes idle", func(t *testing.T) {
		clock := newFakeClock()
		m := newSessionManager(clock)

		first := m.GetOrCreateSessionID()
		clock.Advance(31 * time.Minute)
		second := m.GetOrCreateSessionID()

		assert.NotEqual(t, first, second)
	})

	t.Run("window slides on every mutating read", func(t *testing.T) {
		clock := newFakeClock()
		m := newSessionManager(clock)

		id := m.GetOrCreateSessionID()
		for i := 0; i < 4; i++ {
			clock.Advance(20 * time.Minute)
			require.Equal(t, id, m.GetOrCreateSessionID())
		}
	})

	t.Run("non-mutating getters do not extend", func(t *testing.T) {
		clock := newFakeClock()
		m := newSessionManager(clock)

		id := m.GetOrCreateSessionID()
		clock.Advance(20 * time.Minute)
		current, ok := m.CurrentSessionID()
		require.True(t, ok)
		assert.Equal(t, id, current)

		clock.Advance(11 * time.Minute)
		assert.False(t, m.HasActiveSession())
		_, ok = m.CurrentSessionID()
		assert.False(t, ok)
	})

	t.Run("no session before first call", func(t *testing.T) {
		m := newSessionManager(newFakeClock())
		assert.False(t, m.HasActiveSession())
	})

	t.Run("id format", func(t *testing.T) {
		m := newSessionManager(newFakeClock())
		id := m.GetOrCreateSessionID()
		assert.True(t, strings.HasPrefix(id, "sess_"))
		assert.Len(t, id, len("sess_")+8)
	})

	t.Run("force new session", func(t *testing.T) {
		m := newSessionManager(newFakeClock())
		id := m.GetOrCreateSessionID()
		assert.NotEqual(t, id, m.ForceNewSession())
	})

	t.Run("storage unavailable still yields an id", func(t *testing.T) {
		m := NewSessionManager(NewStorage(UnavailableBackend{}, nil), newFakeClock().Now)
		assert.NotEmpty(t, m.GetOrCreateSessionID())
		assert.False(t, m.HasActiveSession())
	})
}
