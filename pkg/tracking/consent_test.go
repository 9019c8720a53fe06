package tracking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// switchableProvider flips marketing consent on demand.
type switchableProvider struct {
	marketing atomic.Bool
}

func (p *switchableProvider) GetCkyConsent() (*CkyConsent, error) {
	return &CkyConsent{Categories: CkyCategories{
		Analytics:     ptr(false),
		Advertisement: ptr(p.marketing.Load()),
	}}, nil
}

func TestConsentGateState(t *testing.T) {
	t.Run("no provider denies in production", func(t *testing.T) {
		g := NewConsentGate(nil, false, nil)
		assert.Equal(t, ConsentState{Necessary: true}, g.State())
		assert.Equal(t, "none", g.Label())
	})

	t.Run("no provider grants in dev", func(t *testing.T) {
		g := NewConsentGate(nil, true, nil)
		assert.True(t, g.HasMarketingConsent())
		assert.True(t, g.HasAnalyticsConsent())
		assert.Equal(t, "analytics+marketing", g.Label())
	})

	t.Run("reads categories from provider", func(t *testing.T) {
		g := NewConsentGate(ckyProvider(true, false), false, nil)
		s := g.State()
		assert.True(t, s.Analytics)
		assert.False(t, s.Marketing)
		assert.True(t, s.Necessary)
		assert.Equal(t, "analytics", g.Label())

		assert.Equal(t, "marketing", NewConsentGate(ckyProvider(false, true), false, nil).Label())
	})

	t.Run("missing categories default to denied", func(t *testing.T) {
		g := NewConsentGate(ConsentProviderFunc(func() (*CkyConsent, error) {
			return &CkyConsent{}, nil
		}), false, nil)
		assert.False(t, g.HasMarketingConsent())
	})

	t.Run("provider error denies", func(t *testing.T) {
		g := NewConsentGate(ConsentProviderFunc(func() (*CkyConsent, error) {
			return nil, errors.New("script crashed")
		}), true, nil)
		assert.False(t, g.HasMarketingConsent())
	})

	t.Run("provider not loaded follows dev flag", func(t *testing.T) {
		unavailable := ConsentProviderFunc(func() (*CkyConsent, error) { return nil, ErrProviderUnavailable })
		assert.True(t, NewConsentGate(unavailable, true, nil).HasMarketingConsent())
		assert.False(t, NewConsentGate(unavailable, false, nil).HasMarketingConsent())
	})

	t.Run("panicking provider denies", func(t *testing.T) {
		g := NewConsentGate(ConsentProviderFunc(func() (*CkyConsent, error) { panic("boom") }), false, nil)
		assert.NotPanics(t, func() { assert.False(t, g.HasMarketingConsent()) })
	})
}

func TestConsentGateCallbacks(t *testing.T) {
	t.Run("notify reaches subscribers until unsubscribed", func(t *testing.T) {
		g := NewConsentGate(ckyProvider(true, true), false, nil)

		var calls atomic.Int32
		unsubscribe := g.OnChange(func(s ConsentState) {
			assert.True(t, s.Marketing)
			calls.Add(1)
		})

		g.Notify()
		unsubscribe()
		unsubscribe()
		g.Notify()

		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("panicking callback does not stop others", func(t *testing.T) {
		g := NewConsentGate(nil, false, nil)
		var reached atomic.Bool
		g.OnChange(func(ConsentState) { panic("bad callback") })
		g.OnChange(func(ConsentState) { reached.Store(true) })

		assert.NotPanics(t, g.Notify)
		assert.True(t, reached.Load())
	})
}

func TestWaitForConsent(t *testing.T) {
	t.Run("already granted returns immediately", func(t *testing.T) {
		g := NewConsentGate(ckyProvider(false, true), false, nil)
		assert.True(t, g.WaitForConsent(context.Background(), CategoryMarketing, time.Millisecond))
	})

	t.Run("resolves on later grant", func(t *testing.T) {
		p := &switchableProvider{}
		g := NewConsentGate(p, false, nil)

		result := make(chan bool, 1)
		go func() { result <- g.WaitForConsent(context.Background(), CategoryMarketing, 5*time.Second) }()

		p.marketing.Store(true)
		var got bool
		require.Eventually(t, func() bool {
			g.Notify()
			select {
			case got = <-result:
				return true
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
		assert.True(t, got)
	})

	t.Run("grant notified during first read is not lost", func(t *testing.T) {
		var g *ConsentGate
		var reads atomic.Int32
		g = NewConsentGate(ConsentProviderFunc(func() (*CkyConsent, error) {
			if reads.Add(1) == 1 {
				// The visitor accepts while the initial state is being read.
				g.Notify()
				return &CkyConsent{Categories: CkyCategories{Advertisement: ptr(false)}}, nil
			}
			return &CkyConsent{Categories: CkyCategories{Advertisement: ptr(true)}}, nil
		}), false, nil)

		assert.True(t, g.WaitForConsent(context.Background(), CategoryMarketing, 500*time.Millisecond))
	})

	t.Run("times out false", func(t *testing.T) {
		g := NewConsentGate(&switchableProvider{}, false, nil)
		assert.False(t, g.WaitForConsent(context.Background(), CategoryMarketing, 20*time.Millisecond))
	})

	t.Run("context cancel returns false", func(t *testing.T) {
		g := NewConsentGate(&switchableProvider{}, false, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.False(t, g.WaitForConsent(ctx, CategoryMarketing, 0))
	})
}
