// Package tracking implements visitor-side attribution, session, consent and
// lead-delivery bookkeeping for lead-generation sites.
//
// Everything a browser tab would keep in localStorage or probe on window is an
// injected capability here: a storage Backend, a ConsentProvider, an
// AnalyticsSink, a Beacon transport and a clock. One Tracker is the context
// object for one visitor.
package tracking

import "time"

// TrackingVersion is stamped on every emitted event and lead payload.
const TrackingVersion = "v2.0"

// Storage keys. Other product variants use different prefixes and are not
// interoperable with these.
const (
	KeyFirstTouch = "sb_first_touch"
	KeyLastTouch  = "sb_last_touch"
	KeySession    = "sb_session"
	KeyLeadQueue  = "sb_lead_queue"
)

// Event names pushed to the dataLayer.
const (
	EventPhoneClick       = "phone_click"
	EventCallbackRequest  = "callback_request"
	EventQuoteRequest     = "quote_request"
	EventContactForm      = "contact_form"
	EventCalculatorStart  = "calculator_start"
	EventCalculatorStep   = "calculator_step"
	EventCalculatorOption = "calculator_option"
	EventFormAbandon      = "form_abandon"
)

// ConversionType is one of the three conversion events that carry full
// attribution and can be submitted as leads.
type ConversionType string

const (
	ConversionQuoteRequest    ConversionType = EventQuoteRequest
	ConversionCallbackRequest ConversionType = EventCallbackRequest
	ConversionContactForm     ConversionType = EventContactForm
)

// ConversionTypes lists the accepted lead event types.
var ConversionTypes = []ConversionType{
	ConversionCallbackRequest,
	ConversionQuoteRequest,
	ConversionContactForm,
}

// IsConversionType reports whether s names a conversion event.
func IsConversionType(s string) bool {
	for _, t := range ConversionTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

const (
	SessionTimeout     = 30 * time.Minute
	LeadSubmitTimeout  = 5 * time.Second
	MaxQueuedLeads     = 10
	FormAbandonTimeout = 60 * time.Second
)

// TrackingParams is the whitelist of URL parameters captured for attribution.
var TrackingParams = []string{
	"gclid",
	"gbraid",
	"wbraid",
	"fbclid",
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_content",
	"utm_term",
}

const (
	BreakpointMobile = 768
	BreakpointTablet = 1024
)

// DefaultCurrency is used when neither the caller nor the tracker sets one.
const DefaultCurrency = "GBP"

// DefaultLeadEndpoint is the site-relative lead API route.
const DefaultLeadEndpoint = "/api/lead"
