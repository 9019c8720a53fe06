package tracking

import (
	"sync"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type beaconCall struct {
	url  string
	body []byte
}

// recordingBeacon captures every Send.
type recordingBeacon struct {
	mu    sync.Mutex
	calls []beaconCall
}

func (b *recordingBeacon) Send(url string, body []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, beaconCall{url: url, body: body})
	return true
}

func (b *recordingBeacon) Calls() []beaconCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]beaconCall, len(b.calls))
	copy(out, b.calls)
	return out
}

type panickingBackend struct{}

func (panickingBackend) Get(string) (string, bool, error) { panic("boom") }
func (panickingBackend) Set(string, string) error         { panic("boom") }
func (panickingBackend) Remove(string) error              { panic("boom") }

func ptr(b bool) *bool { return &b }

func ckyProvider(analytics, advertisement bool) ConsentProvider {
	return ConsentProviderFunc(func() (*CkyConsent, error) {
		return &CkyConsent{Categories: CkyCategories{
			Analytics:     ptr(analytics),
			Advertisement: ptr(advertisement),
			Functional:    ptr(false),
			Necessary:     ptr(true),
		}}, nil
	})
}
