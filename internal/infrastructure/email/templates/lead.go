package templates

import (
	"fmt"
	"strings"
)

// LeadEmailProps is what the site owner sees about a new lead.
type LeadEmailProps struct {
	LeadID     string
	EventType  string
	Name       string
	Email      string
	Phone      string
	Value      float64
	Currency   string
	SourceType string
	UTMSource  string
	UTMMedium  string
	Campaign   string
	PageURL    string
	Device     string
	Consent    string
	Submitted  string
}

// LeadSubject builds the notification subject line.
func LeadSubject(p LeadEmailProps) string {
	who := p.Name
	if who == "" {
		who = p.Email
	}
	return fmt.Sprintf("New %s from %s", eventLabel(p.EventType), who)
}

// GetLeadNotificationContent renders the body of the owner notification.
func GetLeadNotificationContent(p LeadEmailProps) string {
	var b strings.Builder

	b.WriteString(GetParagraph(fmt.Sprintf("A new %s came in from your website.", eventLabel(p.EventType))))

	value := ""
	if p.Value > 0 {
		value = fmt.Sprintf("%.2f %s", p.Value, p.Currency)
	}

	b.WriteString(GetDetailsTable([]DetailRow{
		{Label: "Name", Value: p.Name},
		{Label: "Email", Value: p.Email},
		{Label: "Phone", Value: p.Phone},
		{Label: "Value", Value: value},
		{Label: "Source", Value: p.SourceType},
		{Label: "UTM source", Value: p.UTMSource},
		{Label: "UTM medium", Value: p.UTMMedium},
		{Label: "Campaign", Value: p.Campaign},
		{Label: "Page", Value: p.PageURL},
		{Label: "Device", Value: p.Device},
		{Label: "Consent", Value: p.Consent},
		{Label: "Submitted", Value: p.Submitted},
		{Label: "Lead ID", Value: p.LeadID},
	}))

	if p.Email != "" {
		b.WriteString(GetButton(ButtonProps{Text: "Reply by email", URL: "mailto:" + p.Email}))
	}
	if p.Phone != "" {
		b.WriteString(GetButton(ButtonProps{
			Text:            "Call back",
			URL:             "tel:" + strings.ReplaceAll(p.Phone, " ", ""),
			BackgroundColor: "#16a34a",
		}))
	}

	return b.String()
}

func eventLabel(eventType string) string {
	switch eventType {
	case "quote_request":
		return "quote request"
	case "callback_request":
		return "callback request"
	case "contact_form":
		return "contact form message"
	default:
		return "lead"
	}
}
