package tracking

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLBackend(t *testing.T) {
	db := openTestDB(t)

	alice, err := NewSQLBackend(db, "visitor-alice")
	require.NoError(t, err)
	bob, err := NewSQLBackend(db, "visitor-bob")
	require.NoError(t, err)

	require.NoError(t, alice.Set(KeySession, `{"id":"sess_a"}`))
	require.NoError(t, alice.Set(KeySession, `{"id":"sess_b"}`))

	v, ok, err := alice.Get(KeySession)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"sess_b"}`, v)

	_, ok, err = bob.Get(KeySession)
	require.NoError(t, err)
	assert.False(t, ok, "visitors must not see each other's keys")

	require.NoError(t, alice.Remove(KeySession))
	_, ok, err = alice.Get(KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLBackendValidation(t *testing.T) {
	_, err := NewSQLBackend(nil, "v")
	assert.Error(t, err)
	_, err = NewSQLBackend(openTestDB(t), "")
	assert.Error(t, err)
}

func TestSQLBackendClosedDBIsUnavailable(t *testing.T) {
	db := openTestDB(t)
	b, err := NewSQLBackend(db, "v")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.ErrorIs(t, b.Set("k", "v"), ErrStorageUnavailable)

	s := NewStorage(b, nil)
	assert.False(t, s.Set("k", "v"))
}

func TestTrackerOverSQLBackendSurvivesRestart(t *testing.T) {
	db := openTestDB(t)
	clock := newFakeClock()

	backend, err := NewSQLBackend(db, "visitor-1")
	require.NoError(t, err)
	first := New(WithBackend(backend), WithClock(clock.Now))
	id := first.Sessions().GetOrCreateSessionID()

	backend2, err := NewSQLBackend(db, "visitor-1")
	require.NoError(t, err)
	second := New(WithBackend(backend2), WithClock(clock.Now))
	current, ok := second.Sessions().CurrentSessionID()
	require.True(t, ok)
	assert.Equal(t, id, current)
}
