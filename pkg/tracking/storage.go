package tracking

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

// ErrStorageUnavailable is what a Backend returns when persistence is denied,
// the equivalent of a browser in private mode.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Backend is raw key/value persistence that may fail.
type Backend interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Storage wraps a Backend so that no caller ever sees a storage failure.
// Failures are logged at warn and reported as absent data or false.
type Storage struct {
	backend Backend
	logger  *slog.Logger
}

// NewStorage wraps backend. A nil backend behaves as permanently unavailable.
func NewStorage(backend Backend, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = discardLogger()
	}
	return &Storage{backend: backend, logger: logger}
}

// Get returns the stored value, or false if absent or unreadable.
func (s *Storage) Get(key string) (value string, ok bool) {
	if s.backend == nil {
		return "", false
	}
	defer s.recover("get", key, func() { value, ok = "", false })

	v, found, err := s.backend.Get(key)
	if err != nil {
		s.logger.Warn("Storage read failed", "key", key, "error", err.Error())
		return "", false
	}
	return v, found
}

// Set stores value and reports whether it was persisted.
func (s *Storage) Set(key, value string) (ok bool) {
	if s.backend == nil {
		s.logger.Warn("Storage not available", "key", key)
		return false
	}
	defer s.recover("set", key, func() { ok = false })

	if err := s.backend.Set(key, value); err != nil {
		s.logger.Warn("Storage not available", "key", key, "error", err.Error())
		return false
	}
	return true
}

// Remove deletes key and reports whether the backend accepted the delete.
func (s *Storage) Remove(key string) (ok bool) {
	if s.backend == nil {
		return false
	}
	defer s.recover("remove", key, func() { ok = false })

	if err := s.backend.Remove(key); err != nil {
		s.logger.Warn("Storage remove failed", "key", key, "error", err.Error())
		return false
	}
	return true
}

// GetJSON decodes the value at key into v. Corrupt JSON is deleted so the
// next read starts clean.
func (s *Storage) GetJSON(key string, v any) bool {
	raw, ok := s.Get(key)
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("Discarding corrupt stored value", "key", key, "error", err.Error())
		s.Remove(key)
		return false
	}
	return true
}

// SetJSON encodes v and stores it under key.
func (s *Storage) SetJSON(key string, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("Failed to encode value for storage", "key", key, "error", err.Error())
		return false
	}
	return s.Set(key, string(data))
}

func (s *Storage) recover(op, key string, onPanic func()) {
	if r := recover(); r != nil {
		s.logger.Warn("Storage backend panicked", "operation", op, "key", key, "panic", r)
		onPanic()
	}
}

// MemoryBackend keeps values for the lifetime of the process.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (m *MemoryBackend) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryBackend) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// UnavailableBackend refuses every operation.
type UnavailableBackend struct{}

func (UnavailableBackend) Get(string) (string, bool, error) { return "", false, ErrStorageUnavailable }
func (UnavailableBackend) Set(string, string) error         { return ErrStorageUnavailable }
func (UnavailableBackend) Remove(string) error              { return ErrStorageUnavailable }
