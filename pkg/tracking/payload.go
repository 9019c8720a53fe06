package tracking

import "time"

// LeadPayload is the body posted to the lead API and forwarded, unchanged,
// to the Sheets webhook.
type LeadPayload struct {
	LeadID          string  `json:"lead_id"`
	EventType       string  `json:"event_type"`
	SubmittedAt     string  `json:"submitted_at"`
	TrackingVersion string  `json:"tracking_version"`
	SessionID       string  `json:"session_id"`
	ConsentState    string  `json:"consent_state"`
	SourceType      string  `json:"source_type"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Value           float64 `json:"value"`
	Currency        string  `json:"currency"`
	PageURL         string  `json:"page_url"`
	Device          string  `json:"device"`

	FirstUTMSource   string `json:"first_utm_source"`
	FirstUTMMedium   string `json:"first_utm_medium"`
	FirstUTMCampaign string `json:"first_utm_campaign"`
	FirstUTMTerm     string `json:"first_utm_term"`
	FirstUTMContent  string `json:"first_utm_content"`
	FirstGclid       string `json:"first_gclid"`
	FirstFbclid      string `json:"first_fbclid"`
	FirstReferrer    string `json:"first_referrer"`

	LastUTMSource   string `json:"last_utm_source"`
	LastUTMMedium   string `json:"last_utm_medium"`
	LastUTMCampaign string `json:"last_utm_campaign"`
	LastUTMTerm     string `json:"last_utm_term"`
	LastUTMContent  string `json:"last_utm_content"`
	LastGclid       string `json:"last_gclid"`
	LastFbclid      string `json:"last_fbclid"`

	IdempotencyKey string `json:"idempotency_key"`
	TurnstileToken string `json:"turnstile_token,omitempty"`
}

// LeadInput is what a form hands over when a visitor converts.
type LeadInput struct {
	EventType      ConversionType
	Name           string
	Email          string
	Phone          string
	Value          float64
	Currency       string
	LeadID         string
	TurnstileToken string
}

// QueuedLead is a payload waiting for redelivery on the next page load.
type QueuedLead struct {
	Payload   LeadPayload `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// payloadContext carries the tracker state folded into a payload.
type payloadContext struct {
	now          time.Time
	sessionID    string
	consentLabel string
	first, last  *AttributionParams
	page         Page
	currency     string
}

func buildPayload(in LeadInput, pc payloadContext) LeadPayload {
	leadID := in.LeadID
	if leadID == "" {
		leadID = GenerateLeadID(pc.now)
	}
	currency := in.Currency
	if currency == "" {
		currency = pc.currency
	}

	p := LeadPayload{
		LeadID:          leadID,
		EventType:       string(in.EventType),
		SubmittedAt:     pc.now.UTC().Format("2006-01-02T15:04:05.000Z"),
		TrackingVersion: TrackingVersion,
		SessionID:       pc.sessionID,
		ConsentState:    pc.consentLabel,
		SourceType:      string(ClassifySourceType(pc.first, pc.last)),
		Name:            in.Name,
		Email:           NormalizeEmail(in.Email),
		Phone:           in.Phone,
		Value:           in.Value,
		Currency:        currency,
		PageURL:         pc.page.Pathname(),
		Device:          DeviceType(pc.page.ViewportWidth),
		IdempotencyKey:  GenerateIdempotencyKey(in.Email, string(in.EventType), pc.now),
		TurnstileToken:  in.TurnstileToken,
	}

	if f := pc.first; f != nil {
		p.FirstUTMSource = f.UTMSource
		p.FirstUTMMedium = f.UTMMedium
		p.FirstUTMCampaign = f.UTMCampaign
		p.FirstUTMTerm = f.UTMTerm
		p.FirstUTMContent = f.UTMContent
		p.FirstGclid = f.Gclid
		p.FirstFbclid = f.Fbclid
		p.FirstReferrer = f.Referrer
	}
	if l := pc.last; l != nil {
		p.LastUTMSource = l.UTMSource
		p.LastUTMMedium = l.UTMMedium
		p.LastUTMCampaign = l.UTMCampaign
		p.LastUTMTerm = l.UTMTerm
		p.LastUTMContent = l.UTMContent
		p.LastGclid = l.Gclid
		p.LastFbclid = l.Fbclid
	}
	return p
}
