package tracking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrProviderUnavailable is returned by a ConsentProvider whose CMP script has
// not finished loading.
var ErrProviderUnavailable = errors.New("consent provider unavailable")

// ConsentState is the visitor's consent per category. Necessary is always
// true.
type ConsentState struct {
	Analytics  bool `json:"analytics"`
	Marketing  bool `json:"marketing"`
	Functional bool `json:"functional"`
	Necessary  bool `json:"necessary"`
}

// ConsentCategory names a category that can be waited on.
type ConsentCategory string

const (
	CategoryAnalytics  ConsentCategory = "analytics"
	CategoryMarketing  ConsentCategory = "marketing"
	CategoryFunctional ConsentCategory = "functional"
)

// Granted reports the state of one category.
func (s ConsentState) Granted(c ConsentCategory) bool {
	switch c {
	case CategoryAnalytics:
		return s.Analytics
	case CategoryMarketing:
		return s.Marketing
	case CategoryFunctional:
		return s.Functional
	}
	return false
}

// Label renders the state for the lead sheet: none, analytics, marketing or
// analytics+marketing.
func (s ConsentState) Label() string {
	switch {
	case s.Analytics && s.Marketing:
		return "analytics+marketing"
	case s.Analytics:
		return "analytics"
	case s.Marketing:
		return "marketing"
	}
	return "none"
}

var (
	deniedConsent  = ConsentState{Necessary: true}
	grantedConsent = ConsentState{Analytics: true, Marketing: true, Functional: true, Necessary: true}
)

// CkyConsent mirrors the object returned by CookieYes' getCkyConsent().
type CkyConsent struct {
	Categories CkyCategories `json:"categories"`
}

// CkyCategories uses CookieYes naming; Advertisement maps to marketing.
type CkyCategories struct {
	Analytics     *bool `json:"analytics"`
	Advertisement *bool `json:"advertisement"`
	Functional    *bool `json:"functional"`
	Necessary     *bool `json:"necessary"`
}

// ConsentProvider is the consent-management platform.
type ConsentProvider interface {
	GetCkyConsent() (*CkyConsent, error)
}

// ConsentProviderFunc adapts a function to ConsentProvider.
type ConsentProviderFunc func() (*CkyConsent, error)

func (f ConsentProviderFunc) GetCkyConsent() (*CkyConsent, error) { return f() }

// ConsentCallback receives the freshly read state after a consent update.
type ConsentCallback func(ConsentState)

// ConsentGate reads consent on every call and fans out change notifications.
// Without a provider it denies everything, unless built for development where
// it grants everything.
type ConsentGate struct {
	provider ConsentProvider
	dev      bool
	logger   *slog.Logger

	mu        sync.Mutex
	callbacks map[uint64]ConsentCallback
	nextID    uint64
}

// NewConsentGate builds a gate over provider, which may be nil.
func NewConsentGate(provider ConsentProvider, dev bool, logger *slog.Logger) *ConsentGate {
	if logger == nil {
		logger = discardLogger()
	}
	return &ConsentGate{
		provider:  provider,
		dev:       dev,
		logger:    logger,
		callbacks: make(map[uint64]ConsentCallback),
	}
}

// State returns the current consent state.
func (g *ConsentGate) State() ConsentState {
	if g.provider == nil {
		if g.dev {
			g.logger.Debug("Consent provider not loaded - dev mode: granting all consent")
			return grantedConsent
		}
		return deniedConsent
	}

	cky, err := g.readProvider()
	if err != nil || cky == nil {
		if err != nil && !errors.Is(err, ErrProviderUnavailable) {
			g.logger.Error("Error reading consent", "error", err.Error())
		}
		if errors.Is(err, ErrProviderUnavailable) && g.dev {
			return grantedConsent
		}
		return deniedConsent
	}

	return ConsentState{
		Analytics:  boolOr(cky.Categories.Analytics, false),
		Marketing:  boolOr(cky.Categories.Advertisement, false),
		Functional: boolOr(cky.Categories.Functional, false),
		Necessary:  true,
	}
}

func (g *ConsentGate) readProvider() (cky *CkyConsent, err error) {
	defer func() {
		if r := recover(); r != nil {
			cky, err = nil, errors.New("consent provider panicked")
		}
	}()
	return g.provider.GetCkyConsent()
}

// HasMarketingConsent gates attribution persistence.
func (g *ConsentGate) HasMarketingConsent() bool { return g.State().Marketing }

// HasAnalyticsConsent gates session analytics.
func (g *ConsentGate) HasAnalyticsConsent() bool { return g.State().Analytics }

// Label is State().Label().
func (g *ConsentGate) Label() string { return g.State().Label() }

// OnChange registers cb for consent updates and returns its cleanup.
func (g *ConsentGate) OnChange(cb ConsentCallback) (unsubscribe func()) {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.callbacks[id] = cb
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.callbacks, id)
			g.mu.Unlock()
		})
	}
}

// Notify is the consent-update event: it reads the state once and hands it
// to every registered callback. A panicking callback does not stop the rest.
func (g *ConsentGate) Notify() {
	state := g.State()

	g.mu.Lock()
	cbs := make([]ConsentCallback, 0, len(g.callbacks))
	for _, cb := range g.callbacks {
		cbs = append(cbs, cb)
	}
	g.mu.Unlock()

	for _, cb := range cbs {
		g.invoke(cb, state)
	}
}

func (g *ConsentGate) invoke(cb ConsentCallback, state ConsentState) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Consent callback error", "panic", r)
		}
	}()
	cb(state)
}

// WaitForConsent returns true as soon as category is granted, or false when
// timeout elapses or ctx ends. A zero timeout waits on ctx alone.
func (g *ConsentGate) WaitForConsent(ctx context.Context, category ConsentCategory, timeout time.Duration) bool {
	granted := make(chan struct{})
	var once sync.Once
	unsubscribe := g.OnChange(func(s ConsentState) {
		if s.Granted(category) {
			once.Do(func() { close(granted) })
		}
	})
	defer unsubscribe()

	// Subscribed before reading state so a Notify in between is not missed.
	if g.State().Granted(category) {
		return true
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-granted:
		return true
	case <-expired:
		return false
	case <-ctx.Done():
		return false
	}
}

func boolOr(b *bool, fallback bool) bool {
	if b == nil {
		return fallback
	}
	return *b
}
