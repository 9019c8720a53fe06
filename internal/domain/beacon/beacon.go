// Package beacon defines the tracking beacon body: the copy of form tracking
// data a page sends with navigator.sendBeacon just before it unloads.
package beacon

// Payload is a tracking beacon. Every field is optional; tags are checked
// with gin's validator.
type Payload struct {
	Email         string  `json:"email,omitempty" binding:"omitempty,email"`
	Phone         string  `json:"phone,omitempty"`
	TransactionID string  `json:"transactionId,omitempty"`
	Gclid         *string `json:"gclid,omitempty"`
	Fbclid        *string `json:"fbclid,omitempty"`
	UTMSource     string  `json:"utm_source,omitempty"`
	UTMMedium     string  `json:"utm_medium,omitempty"`
	UTMCampaign   string  `json:"utm_campaign,omitempty"`
	UTMContent    string  `json:"utm_content,omitempty"`
	UTMTerm       string  `json:"utm_term,omitempty"`
	Timestamp     string  `json:"timestamp,omitempty"`
	URL           string  `json:"url,omitempty" binding:"omitempty,url"`
	UserAgent     string  `json:"userAgent,omitempty"`
}

// Fields flattens the payload into a sheet row. Empty strings and null click
// ids are left out.
func (p Payload) Fields() map[string]any {
	row := make(map[string]any)
	set := func(k, v string) {
		if v != "" {
			row[k] = v
		}
	}
	set("email", p.Email)
	set("phone", p.Phone)
	set("transactionId", p.TransactionID)
	set("utm_source", p.UTMSource)
	set("utm_medium", p.UTMMedium)
	set("utm_campaign", p.UTMCampaign)
	set("utm_content", p.UTMContent)
	set("utm_term", p.UTMTerm)
	set("timestamp", p.Timestamp)
	set("url", p.URL)
	set("userAgent", p.UserAgent)
	if p.Gclid != nil {
		row["gclid"] = *p.Gclid
	}
	if p.Fbclid != nil {
		row["fbclid"] = *p.Fbclid
	}
	return row
}
