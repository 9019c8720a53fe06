package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttribution(clock *fakeClock) *Attribution {
	return NewAttribution(NewStorage(NewMemoryBackend(), nil), clock.Now)
}

func TestAttributionCapture(t *testing.T) {
	t.Run("second capture keeps first touch and replaces last touch", func(t *testing.T) {
		clock := newFakeClock()
		a := newAttribution(clock)

		require.True(t, a.Capture(NewPage("https://site.test/?utm_source=google&utm_medium=cpc", "", 1200)))
		clock.Advance(time.Hour)
		require.True(t, a.Capture(NewPage("https://site.test/offer?utm_source=newsletter&utm_medium=email", "", 1200)))

		first := a.FirstTouch()
		last := a.LastTouch()
		require.NotNil(t, first)
		require.NotNil(t, last)

		assert.Equal(t, "google", first.UTMSource)
		assert.Equal(t, "cpc", first.UTMMedium)
		assert.Equal(t, "/?utm_source=google&utm_medium=cpc", first.LandingPage)

		assert.Equal(t, "newsletter", last.UTMSource)
		assert.Equal(t, "email", last.UTMMedium)
		assert.Equal(t, "/offer?utm_source=newsletter&utm_medium=email", last.LandingPage)
		assert.Greater(t, last.Timestamp, first.Timestamp)
	})

	t.Run("nothing to capture", func(t *testing.T) {
		a := newAttribution(newFakeClock())
		assert.False(t, a.Capture(NewPage("https://site.test/", "", 0)))
		assert.False(t, a.HasData())
	})

	t.Run("same-origin referrer is ignored", func(t *testing.T) {
		a := newAttribution(newFakeClock())
		assert.False(t, a.Capture(NewPage("https://site.test/b", "https://site.test/a", 0)))
	})

	t.Run("referrer-only visit sets first touch but not last", func(t *testing.T) {
		a := newAttribution(newFakeClock())
		require.True(t, a.Capture(NewPage("https://site.test/", "https://www.google.com/search?q=x", 0)))

		first := a.FirstTouch()
		require.NotNil(t, first)
		assert.Equal(t, "www.google.com", first.Referrer)
		assert.Nil(t, a.LastTouch())
	})

	t.Run("click id priority", func(t *testing.T) {
		a := newAttribution(newFakeClock())
		require.True(t, a.Capture(NewPage("https://site.test/?gclid=first", "", 0)))
		require.True(t, a.Capture(NewPage("https://site.test/?gclid=last&fbclid=fb", "", 0)))

		assert.Equal(t, "live", a.Gclid(NewPage("https://site.test/?gclid=live", "", 0)))
		assert.Equal(t, "last", a.Gclid(NewPage("https://site.test/", "", 0)))
		assert.Equal(t, "fb", a.Fbclid(NewPage("https://site.test/", "", 0)))
	})

	t.Run("clear removes both touches", func(t *testing.T) {
		a := newAttribution(newFakeClock())
		require.True(t, a.Capture(NewPage("https://site.test/?utm_source=x", "", 0)))
		a.Clear()
		assert.False(t, a.HasData())
	})

	t.Run("dataLayer fields omit empties", func(t *testing.T) {
		a := newAttribution(newFakeClock())
		require.True(t, a.Capture(NewPage("https://site.test/?utm_source=google&gclid=abc", "", 0)))

		fields := a.ForDataLayer()
		assert.Equal(t, "google", fields["first_utm_source"])
		assert.Equal(t, "abc", fields["last_gclid"])
		assert.NotContains(t, fields, "first_utm_medium")
	})
}
