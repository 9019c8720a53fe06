package tracking

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerInit(t *testing.T) {
	t.Run("captures with marketing consent", func(t *testing.T) {
		tr := New(WithConsentProvider(ckyProvider(false, true)))
		unsubscribe := tr.Init(NewPage("https://site.test/?utm_source=google", "", 0))
		defer unsubscribe()

		require.NotNil(t, tr.Attribution().FirstTouch())
	})

	t.Run("defers capture until consent arrives", func(t *testing.T) {
		p := &switchableProvider{}
		tr := New(WithConsentProvider(p))
		unsubscribe := tr.Init(NewPage("https://site.test/?utm_source=meta&fbclid=f", "", 0))

		assert.False(t, tr.Attribution().HasData())

		p.marketing.Store(true)
		tr.Consent().Notify()
		require.NotNil(t, tr.Attribution().LastTouch())
		assert.Equal(t, "f", tr.Attribution().LastTouch().Fbclid)
		assert.Equal(t, SourcePaid, tr.SourceType())

		unsubscribe()
		tr.Attribution().Clear()
		tr.Consent().Notify()
		assert.False(t, tr.Attribution().HasData())
	})

	t.Run("flushes queued leads", func(t *testing.T) {
		beacon := &recordingBeacon{}
		backend := NewMemoryBackend()
		storage := NewStorage(backend, nil)
		require.True(t, storage.SetJSON(KeyLeadQueue, []QueuedLead{
			{Payload: LeadPayload{LeadID: "LD-a"}},
			{Payload: LeadPayload{LeadID: "LD-b"}},
		}))

		tr := New(WithBackend(backend), WithBeacon(beacon))
		tr.Init(NewPage("https://site.test/", "", 0))

		assert.Len(t, beacon.Calls(), 2)
		assert.Empty(t, tr.Submitter().Queued())
	})
}

func TestTrackConversion(t *testing.T) {
	t.Run("without consent still emits but flags it", func(t *testing.T) {
		dl := NewDataLayer()
		sink := &recordingSink{}
		tr := New(WithEventLog(dl), WithSink(sink))

		res := tr.TrackConversion(NewPage("https://site.test/", "", 0), ConversionQuoteRequest, ConversionParams{
			Email: "a@b.com",
			Value: 99,
		})

		assert.True(t, res.Success)
		assert.True(t, res.ConsentBlocked)
		assert.Regexp(t, `^LD-\d{4}-\d{2}-\d{2}-[0-9a-z]{5}$`, res.LeadID)

		require.Equal(t, 1, dl.Len())
		assert.Equal(t, res.LeadID, dl.Events()[0]["lead_id"])
		require.Len(t, sink.tracks, 1)
		assert.Equal(t, res.LeadID, sink.tracks[0].props["event_id"])
	})

	t.Run("with consent", func(t *testing.T) {
		tr := New(WithDevMode(true))
		res := tr.TrackConversion(NewPage("https://site.test/", "", 0), ConversionContactForm, ConversionParams{Email: "a@b.com"})
		assert.False(t, res.ConsentBlocked)
	})
}

func TestTrackPhoneClick(t *testing.T) {
	clock := newFakeClock()
	dl := NewDataLayer()
	sink := &recordingSink{}
	tr := New(WithEventLog(dl), WithSink(sink), WithClock(clock.Now))
	page := NewPage("https://site.test/", "", 0)

	assert.Equal(t, PhoneClickResult{Success: true}, tr.TrackPhoneClick(page, 0, ""))
	assert.Equal(t, PhoneClickResult{Duplicate: true}, tr.TrackPhoneClick(page, 0, ""))
	assert.Equal(t, 1, dl.Len())
	require.Len(t, sink.tracks, 1)
	assert.Equal(t, "Contact", sink.tracks[0].name)

	// A new session after the idle timeout fires again.
	clock.Advance(SessionTimeout + time.Minute)
	assert.True(t, tr.TrackPhoneClick(page, 0, "").Success)
	assert.Equal(t, 2, dl.Len())
}

func TestTrackFormAbandon(t *testing.T) {
	clock := newFakeClock()
	dl := NewDataLayer()
	tr := New(WithEventLog(dl), WithClock(clock.Now))
	page := NewPage("https://site.test/quote", "", 0)
	lastInput := clock.Now()

	clock.Advance(FormAbandonTimeout - time.Second)
	assert.False(t, tr.TrackFormAbandon(page, "quote-form", "postcode", lastInput))
	assert.Zero(t, dl.Len())

	clock.Advance(time.Second)
	require.True(t, tr.TrackFormAbandon(page, "quote-form", "postcode", lastInput))
	require.Equal(t, 1, dl.Len())
	ev := dl.Events()[0]
	assert.Equal(t, EventFormAbandon, ev.Name())
	assert.Equal(t, "quote-form", ev["form_id"])
	assert.Equal(t, "postcode", ev["last_field"])
}

func TestNewWarnsOnRelativeEndpoint(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	New(WithLogger(logger))
	assert.Contains(t, buf.String(), "not an absolute URL")
	assert.Contains(t, buf.String(), DefaultLeadEndpoint)

	buf.Reset()
	New(WithLogger(logger), WithEndpoint("https://site.test/api/lead"))
	assert.Zero(t, buf.Len())
}
