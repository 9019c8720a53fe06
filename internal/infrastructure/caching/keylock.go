// Package caching provides process-local coordination for the lead API.
package caching

import "sync"

// KeyLock holds at most one owner per key. The lead service uses it so two
// concurrent submissions with the same idempotency key are not both forwarded.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]struct{}
}

// NewKeyLock creates a new instance of a KeyLock.
func NewKeyLock() *KeyLock {
	return &KeyLock{
		locks: make(map[string]struct{}),
	}
}

// TryLock attempts to acquire the lock for key without blocking.
// It returns false if the lock is already held.
func (l *KeyLock) TryLock(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.locks[key]; exists {
		return false
	}
	l.locks[key] = struct{}{}
	return true
}

// Unlock releases the lock for key.
// This should be called with `defer` by the caller that acquired it.
func (l *KeyLock) Unlock(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.locks, key)
}

// Held reports how many keys are currently locked.
func (l *KeyLock) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
