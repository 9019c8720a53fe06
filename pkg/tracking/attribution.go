package tracking

import (
	"net/url"
	"strings"
	"time"
)

// AttributionParams is one touch: the tracking parameters seen on a landing,
// the external referrer host, and where and when it happened.
type AttributionParams struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	Gclid       string `json:"gclid,omitempty"`
	Gbraid      string `json:"gbraid,omitempty"`
	Wbraid      string `json:"wbraid,omitempty"`
	Fbclid      string `json:"fbclid,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
	Timestamp   int64  `json:"timestamp"`
	LandingPage string `json:"landingPage"`
}

// AttributionData pairs the first and last touch; either may be nil.
type AttributionData struct {
	First *AttributionParams `json:"first"`
	Last  *AttributionParams `json:"last"`
}

// Page is what the tracker can see of the current document.
type Page struct {
	URL           *url.URL
	Referrer      string
	ViewportWidth int
}

// NewPage parses rawURL into a Page. An unparsable URL yields an empty Page.
func NewPage(rawURL, referrer string, viewportWidth int) Page {
	u, err := url.Parse(rawURL)
	if err != nil {
		u = nil
	}
	return Page{URL: u, Referrer: referrer, ViewportWidth: viewportWidth}
}

// Path is pathname+search, the form used for landing pages and page_url.
func (p Page) Path() string {
	if p.URL == nil {
		return ""
	}
	path := p.URL.EscapedPath()
	if p.URL.RawQuery != "" {
		path += "?" + p.URL.RawQuery
	}
	return path
}

// Pathname is the path without the query string.
func (p Page) Pathname() string {
	if p.URL == nil {
		return ""
	}
	return p.URL.EscapedPath()
}

// Param returns a non-empty query parameter value.
func (p Page) Param(name string) (string, bool) {
	if p.URL == nil {
		return "", false
	}
	v := p.URL.Query().Get(name)
	return v, v != ""
}

// externalReferrer returns the referrer hostname when it differs from the
// page host. Same-origin and malformed referrers are dropped.
func (p Page) externalReferrer() string {
	if p.Referrer == "" {
		return ""
	}
	ref, err := url.Parse(p.Referrer)
	if err != nil || ref.Hostname() == "" {
		return ""
	}
	if p.URL != nil && strings.EqualFold(ref.Hostname(), p.URL.Hostname()) {
		return ""
	}
	return ref.Hostname()
}

// Attribution captures and reads first/last touch records.
type Attribution struct {
	storage *Storage
	now     func() time.Time
}

// NewAttribution builds attribution bookkeeping over storage.
func NewAttribution(storage *Storage, now func() time.Time) *Attribution {
	if now == nil {
		now = time.Now
	}
	return &Attribution{storage: storage, now: now}
}

// Capture records the page's tracking parameters. The first touch is written
// only when absent; the last touch is overwritten only when the URL carries
// parameters, so referrer-only visits never move it. Returns false when
// there was nothing to capture.
func (a *Attribution) Capture(page Page) bool {
	params, hasParams := paramsFromPage(page)
	referrer := page.externalReferrer()

	if !hasParams && referrer == "" {
		return false
	}

	params.Referrer = referrer
	params.Timestamp = a.now().UnixMilli()
	params.LandingPage = page.Path()

	if a.FirstTouch() == nil {
		a.storage.SetJSON(KeyFirstTouch, params)
	}
	if hasParams {
		a.storage.SetJSON(KeyLastTouch, params)
	}
	return true
}

func paramsFromPage(page Page) (AttributionParams, bool) {
	var p AttributionParams
	found := false
	for _, name := range TrackingParams {
		v, ok := page.Param(name)
		if !ok {
			continue
		}
		found = true
		switch name {
		case "gclid":
			p.Gclid = v
		case "gbraid":
			p.Gbraid = v
		case "wbraid":
			p.Wbraid = v
		case "fbclid":
			p.Fbclid = v
		case "utm_source":
			p.UTMSource = v
		case "utm_medium":
			p.UTMMedium = v
		case "utm_campaign":
			p.UTMCampaign = v
		case "utm_content":
			p.UTMContent = v
		case "utm_term":
			p.UTMTerm = v
		}
	}
	return p, found
}

// FirstTouch returns the stored first touch or nil.
func (a *Attribution) FirstTouch() *AttributionParams {
	return a.load(KeyFirstTouch)
}

// LastTouch returns the stored last touch or nil.
func (a *Attribution) LastTouch() *AttributionParams {
	return a.load(KeyLastTouch)
}

func (a *Attribution) load(key string) *AttributionParams {
	var p AttributionParams
	if !a.storage.GetJSON(key, &p) {
		return nil
	}
	return &p
}

// Data returns both touches.
func (a *Attribution) Data() AttributionData {
	return AttributionData{First: a.FirstTouch(), Last: a.LastTouch()}
}

// HasData reports whether any touch is stored.
func (a *Attribution) HasData() bool {
	return a.FirstTouch() != nil || a.LastTouch() != nil
}

// Clear removes both touches (GDPR deletion).
func (a *Attribution) Clear() {
	a.storage.Remove(KeyFirstTouch)
	a.storage.Remove(KeyLastTouch)
}

// Gclid prefers the live URL, then the last touch, then the first touch.
func (a *Attribution) Gclid(page Page) string {
	return a.clickID(page, "gclid", func(p *AttributionParams) string { return p.Gclid })
}

// Fbclid prefers the live URL, then the last touch, then the first touch.
func (a *Attribution) Fbclid(page Page) string {
	return a.clickID(page, "fbclid", func(p *AttributionParams) string { return p.Fbclid })
}

func (a *Attribution) clickID(page Page, name string, field func(*AttributionParams) string) string {
	if v, ok := page.Param(name); ok {
		return v
	}
	if last := a.LastTouch(); last != nil && field(last) != "" {
		return field(last)
	}
	if first := a.FirstTouch(); first != nil {
		return field(first)
	}
	return ""
}

// ForDataLayer flattens both touches into first_* and last_* fields for
// conversion events. Empty values are left out.
func (a *Attribution) ForDataLayer() map[string]any {
	first, last := a.FirstTouch(), a.LastTouch()
	out := make(map[string]any)
	put := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	if first != nil {
		put("first_utm_source", first.UTMSource)
		put("first_utm_medium", first.UTMMedium)
		put("first_utm_campaign", first.UTMCampaign)
		put("first_utm_term", first.UTMTerm)
		put("first_utm_content", first.UTMContent)
		put("first_gclid", first.Gclid)
		put("first_fbclid", first.Fbclid)
		put("first_referrer", first.Referrer)
	}
	if last != nil {
		put("last_utm_source", last.UTMSource)
		put("last_utm_medium", last.UTMMedium)
		put("last_utm_campaign", last.UTMCampaign)
		put("last_utm_term", last.UTMTerm)
		put("last_utm_content", last.UTMContent)
		put("last_gclid", last.Gclid)
		put("last_fbclid", last.Fbclid)
	}
	return out
}
