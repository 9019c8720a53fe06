package tracking

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// ConversionResult reports what TrackConversion did.
type ConversionResult struct {
	Success        bool
	LeadID         string
	ConsentBlocked bool
}

// PhoneClickResult reports what TrackPhoneClick did.
type PhoneClickResult struct {
	Success   bool
	Duplicate bool
}

// ConversionParams are the visitor details attached to a conversion.
type ConversionParams struct {
	Email    string
	Phone    string
	Value    float64
	Currency string
}

// Tracker is the visitor-side tracking context: one per browser profile.
// Each Tracker owns its registries, so tests and embedders never share
// hidden state.
type Tracker struct {
	storage     *Storage
	consent     *ConsentGate
	sessions    *SessionManager
	attribution *Attribution
	dedup       *PhoneClickDeduper
	emitter     *Emitter
	zaraz       *Zaraz
	submitter   *LeadSubmitter
	now         func() time.Time
	currency    string
	logger      *slog.Logger
}

type trackerOptions struct {
	backend    Backend
	provider   ConsentProvider
	dev        bool
	sink       AnalyticsSink
	eventLog   EventLog
	beacon     Beacon
	httpClient *http.Client
	endpoint   string
	now        func() time.Time
	logger     *slog.Logger
	currency   string
}

// Option configures a Tracker.
type Option func(*trackerOptions)

// WithBackend sets the persistence backend; the default is in memory.
func WithBackend(b Backend) Option { return func(o *trackerOptions) { o.backend = b } }

// WithConsentProvider sets the consent-management source.
func WithConsentProvider(p ConsentProvider) Option {
	return func(o *trackerOptions) { o.provider = p }
}

// WithDevMode grants consent when no provider is loaded.
func WithDevMode(dev bool) Option { return func(o *trackerOptions) { o.dev = dev } }

// WithSink attaches an edge analytics client such as Zaraz.
func WithSink(s AnalyticsSink) Option { return func(o *trackerOptions) { o.sink = s } }

// WithEventLog sets where dataLayer events go.
func WithEventLog(l EventLog) Option { return func(o *trackerOptions) { o.eventLog = l } }

// WithBeacon sets the fallback transport for failed submissions.
func WithBeacon(b Beacon) Option { return func(o *trackerOptions) { o.beacon = b } }

// WithHTTPClient sets the client used to POST leads.
func WithHTTPClient(c *http.Client) Option { return func(o *trackerOptions) { o.httpClient = c } }

// WithEndpoint sets the absolute URL of the lead API.
func WithEndpoint(url string) Option { return func(o *trackerOptions) { o.endpoint = url } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(o *trackerOptions) { o.now = now } }

func WithLogger(l *slog.Logger) Option { return func(o *trackerOptions) { o.logger = l } }

func WithCurrency(c string) Option { return func(o *trackerOptions) { o.currency = c } }

// New builds a Tracker. With no options it keeps state in memory, denies
// consent, and drops every outbound event.
//
// The default endpoint is the site-relative DefaultLeadEndpoint, which an
// http.Client cannot reach; pass WithEndpoint with an absolute URL for
// SubmitLead to post instead of falling back to the queue and beacon.
func New(opts ...Option) *Tracker {
	o := trackerOptions{
		endpoint: DefaultLeadEndpoint,
		now:      time.Now,
		currency: DefaultCurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = NewMemoryBackend()
	}
	if o.logger == nil {
		o.logger = discardLogger()
	}
	if o.sink == nil {
		o.sink = NullSink{}
	}
	if u, err := url.Parse(o.endpoint); err != nil || !u.IsAbs() {
		o.logger.Warn("Lead endpoint is not an absolute URL - submissions will be queued", "endpoint", o.endpoint)
	}

	storage := NewStorage(o.backend, o.logger)
	sessions := NewSessionManager(storage, o.now)
	attribution := NewAttribution(storage, o.now)

	return &Tracker{
		storage:     storage,
		consent:     NewConsentGate(o.provider, o.dev, o.logger),
		sessions:    sessions,
		attribution: attribution,
		dedup:       NewPhoneClickDeduper(),
		emitter:     NewEmitter(o.eventLog, sessions, attribution, o.currency),
		zaraz:       NewZaraz(o.sink, o.currency, o.logger),
		submitter:   NewLeadSubmitter(o.httpClient, o.endpoint, storage, o.beacon, o.now, o.logger),
		now:         o.now,
		currency:    o.currency,
		logger:      o.logger,
	}
}

// Init runs the page-load sequence: capture attribution when marketing
// consent is present, flush queued leads, and capture again once consent
// arrives later. The returned func drops the consent subscription.
func (t *Tracker) Init(page Page) (unsubscribe func()) {
	if t.consent.HasMarketingConsent() {
		t.attribution.Capture(page)
	}

	t.submitter.RetryQueued()

	return t.consent.OnChange(func(state ConsentState) {
		if state.Marketing {
			t.attribution.Capture(page)
		}
	})
}

// TrackConversion pushes a conversion to the dataLayer and to Meta via the
// sink. Tag managers apply their own consent rules, so events go out either
// way; ConsentBlocked tells the caller marketing consent was missing.
func (t *Tracker) TrackConversion(page Page, conversion ConversionType, p ConversionParams) ConversionResult {
	leadID := GenerateLeadID(t.now())

	hasConsent := t.consent.HasMarketingConsent()
	if !hasConsent {
		t.logger.Debug("No marketing consent - tracking limited", "leadId", leadID)
	}

	t.emitter.PushConversion(page, conversion, ConversionEventParams{
		LeadID:   leadID,
		Email:    p.Email,
		Phone:    p.Phone,
		Value:    p.Value,
		Currency: p.Currency,
	})

	t.zaraz.TrackMetaLead(MetaLeadParams{
		Email:    p.Email,
		Phone:    p.Phone,
		Value:    p.Value,
		Currency: p.Currency,
		EventID:  leadID,
	})

	return ConversionResult{
		Success:        true,
		LeadID:         leadID,
		ConsentBlocked: !hasConsent,
	}
}

// TrackPhoneClick fires at most once per session per Tracker lifetime.
func (t *Tracker) TrackPhoneClick(page Page, value float64, currency string) PhoneClickResult {
	sessionID := t.sessions.GetOrCreateSessionID()

	if !t.dedup.ShouldFire(sessionID) {
		return PhoneClickResult{Success: false, Duplicate: true}
	}

	t.emitter.PushPhoneClick(page, value, currency)
	// Contact carries a placeholder phone; the session id dedups browser and server events.
	t.zaraz.TrackMetaContact("+phone", sessionID)

	return PhoneClickResult{Success: true, Duplicate: false}
}

// TrackFormAbandon reports formID as abandoned once the visitor has been idle
// for FormAbandonTimeout since their last input. It returns whether the event
// was pushed.
func (t *Tracker) TrackFormAbandon(page Page, formID, lastField string, lastInput time.Time) bool {
	if t.now().Sub(lastInput) < FormAbandonTimeout {
		return false
	}
	t.emitter.PushFormAbandon(page, formID, lastField)
	return true
}

// BuildPayload assembles the lead API body from input and current state.
func (t *Tracker) BuildPayload(page Page, in LeadInput) LeadPayload {
	return buildPayload(in, payloadContext{
		now:          t.now(),
		sessionID:    t.sessions.GetOrCreateSessionID(),
		consentLabel: t.consent.Label(),
		first:        t.attribution.FirstTouch(),
		last:         t.attribution.LastTouch(),
		page:         page,
		currency:     t.currency,
	})
}

// SubmitLead builds and posts a lead. False means it was queued for retry
// and a beacon copy was sent.
func (t *Tracker) SubmitLead(ctx context.Context, page Page, in LeadInput) bool {
	return t.submitter.Submit(ctx, t.BuildPayload(page, in))
}

// RetryQueued flushes queued leads through the beacon.
func (t *Tracker) RetryQueued() int { return t.submitter.RetryQueued() }

func (t *Tracker) Consent() *ConsentGate           { return t.consent }
func (t *Tracker) Sessions() *SessionManager       { return t.sessions }
func (t *Tracker) Attribution() *Attribution       { return t.attribution }
func (t *Tracker) Emitter() *Emitter               { return t.emitter }
func (t *Tracker) Zaraz() *Zaraz                   { return t.zaraz }
func (t *Tracker) Submitter() *LeadSubmitter       { return t.submitter }
func (t *Tracker) PhoneClicks() *PhoneClickDeduper { return t.dedup }

// SourceType classifies the stored attribution.
func (t *Tracker) SourceType() SourceType {
	return ClassifySourceType(t.attribution.FirstTouch(), t.attribution.LastTouch())
}
