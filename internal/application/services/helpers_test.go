package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/captcha"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func testDeps() (*logging.ChanneledLogger, *performance.Tracker) {
	return logging.NewDiscardLogger(), performance.NewTracker(nil, nil)
}

type fakeForwarder struct {
	mu       sync.Mutex
	err      error
	payloads []any
	block    chan struct{}
}

func (f *fakeForwarder) Forward(_ context.Context, payload any) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return f.err
}

func (f *fakeForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type fakeVerifier struct {
	result captcha.Result
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(context.Context, string, string) (captcha.Result, error) {
	f.calls++
	return f.result, f.err
}

type memoryRepo struct {
	mu    sync.Mutex
	leads []*lead.Lead
	err   error
}

func (r *memoryRepo) Store(_ context.Context, l *lead.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.leads = append(r.leads, l)
	return nil
}

func (r *memoryRepo) FindByLeadID(_ context.Context, id string) (*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.leads) - 1; i >= 0; i-- {
		if r.leads[i].LeadID == id {
			return r.leads[i], nil
		}
	}
	return nil, lead.ErrNotFound
}

func (r *memoryRepo) FindRecent(_ context.Context, limit int) ([]*lead.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*lead.Lead
	for i := len(r.leads) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.leads[i])
	}
	return out, nil
}

func (r *memoryRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads), nil
}

type recordingNotifier struct {
	sent chan *lead.Lead
	err  error
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan *lead.Lead, 8)}
}

func (n *recordingNotifier) SendLeadNotification(_ context.Context, l *lead.Lead) error {
	n.sent <- l
	return n.err
}

func leadBody(t *testing.T, overrides map[string]any) []byte {
	t.Helper()
	body := map[string]any{
		"lead_id":          "LD-lx1-abc",
		"event_type":       "quote_request",
		"submitted_at":     "2026-03-14T09:29:58.000Z",
		"tracking_version": "v2.0",
		"session_id":       "sess_1",
		"consent_state":    "marketing",
		"source_type":      "paid",
		"name":             "Jo Bloggs",
		"email":            "jo@example.com",
		"phone":            "07700900123",
		"value":            120,
		"currency":         "GBP",
		"page_url":         "/quote",
		"device":           "mobile",
		"idempotency_key":  "idem-1",
	}
	for k, v := range overrides {
		if v == nil {
			delete(body, k)
			continue
		}
		body[k] = v
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return raw
}
