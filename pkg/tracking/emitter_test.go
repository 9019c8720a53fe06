package tracking

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sinkCall struct {
	name  string
	props map[string]any
}

type recordingSink struct {
	tracks []sinkCall
	sets   map[string]any
	err    error
	panics bool
}

func (s *recordingSink) Track(name string, props map[string]any) error {
	if s.panics {
		panic("zaraz exploded")
	}
	s.tracks = append(s.tracks, sinkCall{name: name, props: props})
	return s.err
}

func (s *recordingSink) Set(key string, value any) error {
	if s.sets == nil {
		s.sets = make(map[string]any)
	}
	s.sets[key] = value
	return s.err
}

func newTestEmitter(t *testing.T) (*Emitter, *DataLayer, *Attribution) {
	t.Helper()
	clock := newFakeClock()
	storage := NewStorage(NewMemoryBackend(), nil)
	attribution := NewAttribution(storage, clock.Now)
	dl := NewDataLayer()
	return NewEmitter(dl, NewSessionManager(storage, clock.Now), attribution, "GBP"), dl, attribution
}

func TestEmitterEnvelope(t *testing.T) {
	e, dl, _ := newTestEmitter(t)
	page := NewPage("https://site.test/quote?step=2", "", 500)

	e.PushCalculatorStart(page)
	e.PushCalculatorStep(page, 2)

	events := dl.Events()
	require.Len(t, events, 2)
	for _, ev := range events {
		assert.Equal(t, TrackingVersion, ev["tracking_version"])
		assert.Equal(t, "/quote?step=2", ev["page_url"])
		assert.Equal(t, "mobile", ev["device"])
		assert.NotEmpty(t, ev["session_id"])
	}
	assert.Equal(t, events[0]["session_id"], events[1]["session_id"])
	assert.Equal(t, EventCalculatorStart, events[0].Name())
	assert.Equal(t, 2, events[1]["step"])
}

func TestEmitterConversion(t *testing.T) {
	e, dl, attribution := newTestEmitter(t)
	page := NewPage("https://site.test/?utm_source=google&gclid=g1", "", 1400)
	require.True(t, attribution.Capture(page))

	e.PushConversion(page, ConversionCallbackRequest, ConversionEventParams{
		LeadID: "LD-1",
		Email:  " Jo@Example.com",
		Phone:  "+44 7700 900123",
		Value:  250,
	})

	require.Equal(t, 1, dl.Len())
	ev := dl.Events()[0]
	assert.Equal(t, EventCallbackRequest, ev.Name())
	assert.Equal(t, "LD-1", ev["lead_id"])
	assert.Equal(t, "jo@example.com", ev["user_email"])
	assert.Equal(t, "+447700900123", ev["user_phone"])
	assert.Equal(t, "GBP", ev["currency"])
	assert.Equal(t, "google", ev["first_utm_source"])
	assert.Equal(t, "g1", ev["last_gclid"])
}

func TestEmitterPhoneClickCarriesNoAttribution(t *testing.T) {
	e, dl, attribution := newTestEmitter(t)
	page := NewPage("https://site.test/?utm_source=google", "", 0)
	require.True(t, attribution.Capture(page))

	e.PushPhoneClick(page, 40, "EUR")

	ev := dl.Events()[0]
	assert.Equal(t, EventPhoneClick, ev.Name())
	assert.Equal(t, "EUR", ev["currency"])
	assert.NotContains(t, ev, "first_utm_source")
}

func TestEmitterFormAbandon(t *testing.T) {
	e, dl, _ := newTestEmitter(t)
	page := NewPage("https://site.test/contact", "", 1400)

	e.PushFormAbandon(page, "contact-form", "phone")

	require.Equal(t, 1, dl.Len())
	ev := dl.Events()[0]
	assert.Equal(t, EventFormAbandon, ev.Name())
	assert.Equal(t, "contact-form", ev["form_id"])
	assert.Equal(t, "phone", ev["last_field"])
	assert.Equal(t, "/contact", ev["page_url"])
	assert.Equal(t, TrackingVersion, ev["tracking_version"])
}

func TestZaraz(t *testing.T) {
	t.Run("null sink is unavailable", func(t *testing.T) {
		z := NewZaraz(NullSink{}, "", nil)
		assert.False(t, z.Available())
		assert.False(t, z.TrackMetaLead(MetaLeadParams{Email: "a@b.com"}))
		assert.False(t, NewZaraz(nil, "", nil).TrackMetaContact("+1", "x"))
	})

	t.Run("lead event normalizes PII", func(t *testing.T) {
		sink := &recordingSink{}
		z := NewZaraz(sink, "GBP", nil)

		require.True(t, z.TrackMetaLead(MetaLeadParams{Email: "A@B.com ", Phone: "+1 555 0100", Value: 10, EventID: "LD-x"}))
		require.Len(t, sink.tracks, 1)
		call := sink.tracks[0]
		assert.Equal(t, "Lead", call.name)
		assert.Equal(t, "a@b.com", call.props["em"])
		assert.Equal(t, "+15550100", call.props["ph"])
		assert.Equal(t, "GBP", call.props["currency"])
		assert.Equal(t, "LD-x", call.props["event_id"])
	})

	t.Run("set user data", func(t *testing.T) {
		sink := &recordingSink{}
		NewZaraz(sink, "", nil).SetUserData("X@Y.com", "")
		assert.Equal(t, map[string]any{"em": "x@y.com"}, sink.sets)
	})

	t.Run("sink errors and panics are swallowed", func(t *testing.T) {
		assert.False(t, NewZaraz(&recordingSink{err: errors.New("offline")}, "", nil).TrackMetaContact("+1", "s"))

		z := NewZaraz(&recordingSink{panics: true}, "", nil)
		assert.NotPanics(t, func() { assert.False(t, z.TrackMetaContact("+1", "s")) })
	})
}
