package stores

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestIdempotencyStoreHitAndExpiry(t *testing.T) {
	clk := newClock()
	s := NewIdempotencyStore(24*time.Hour, clk.Now, nil)

	_, ok := s.Check("key-1")
	assert.False(t, ok)

	s.Store("key-1", "LD-1")
	leadID, ok := s.Check("key-1")
	require.True(t, ok)
	assert.Equal(t, "LD-1", leadID)

	clk.Advance(23 * time.Hour)
	_, ok = s.Check("key-1")
	assert.True(t, ok)

	clk.Advance(time.Hour)
	_, ok = s.Check("key-1")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestIdempotencyStoreCheckSweepsOtherKeys(t *testing.T) {
	clk := newClock()
	s := NewIdempotencyStore(time.Hour, clk.Now, nil)

	s.Store("old", "LD-old")
	clk.Advance(2 * time.Hour)
	s.Store("new", "LD-new")
	require.Equal(t, 2, s.Len())

	_, ok := s.Check("unrelated")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestIdempotencyStoreSweep(t *testing.T) {
	clk := newClock()
	s := NewIdempotencyStore(time.Minute, clk.Now, nil)
	s.Store("a", "1")
	s.Store("b", "2")
	clk.Advance(time.Minute)
	s.Store("c", "3")

	assert.Equal(t, 2, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 0, s.Sweep())
}

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	clk := newClock()
	r := NewRateLimiter(10, time.Minute, clk.Now, nil)

	for i := 0; i < 10; i++ {
		res := r.Allow("203.0.113.7")
		require.True(t, res.Allowed, "request %d", i+1)
		assert.Equal(t, 9-i, res.Remaining)
	}

	res := r.Allow("203.0.113.7")
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, clk.Now().Add(time.Minute), res.ResetAt)

	other := r.Allow("198.51.100.1")
	assert.True(t, other.Allowed)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	clk := newClock()
	r := NewRateLimiter(2, time.Minute, clk.Now, nil)

	require.True(t, r.Allow("ip").Allowed)
	clk.Advance(30 * time.Second)
	require.True(t, r.Allow("ip").Allowed)
	require.False(t, r.Allow("ip").Allowed)

	// The first hit leaves the window; the second is still inside it.
	clk.Advance(31 * time.Second)
	res := r.Allow("ip")
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.False(t, r.Allow("ip").Allowed)
}

func TestRateLimiterSweepDropsIdleKeys(t *testing.T) {
	clk := newClock()
	r := NewRateLimiter(5, time.Minute, clk.Now, nil)

	r.Allow("a")
	r.Allow("b")
	require.Equal(t, 2, r.Len())

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 2, r.Sweep())
	assert.Equal(t, 0, r.Len())
}

func TestRateLimiterConcurrentAllow(t *testing.T) {
	r := NewRateLimiter(50, time.Minute, nil, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if r.Allow("shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
