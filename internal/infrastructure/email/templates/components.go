package templates

import (
	"bytes"
	"html/template"
	"log"
	"net/url"
	"strings"
)

type ButtonProps struct {
	Text            string
	URL             string
	BackgroundColor string
	TextColor       string
}

type buttonTemplateData struct {
	BackgroundColor string
	URL             template.URL
	TextColor       string
	Text            string
}

// DetailRow is one label/value line of a details table.
type DetailRow struct {
	Label string
	Value string
}

var (
	buttonTemplate = template.Must(template.New("emailButton").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" class="btn btn-primary" style="border-collapse: separate; box-sizing: border-box; width: 100%; min-width: 100%;" width="100%">
      <tbody>
        <tr>
          <td align="left" style="font-family: Helvetica, sans-serif; font-size: 16px; vertical-align: top; padding-bottom: 16px;" valign="top">
            <a href="{{.URL}}" target="_blank" style="border: solid 2px {{.BackgroundColor}}; border-radius: 4px; box-sizing: border-box; display: inline-block; font-size: 16px; font-weight: bold; margin: 0; padding: 12px 24px; text-decoration: none; background-color: {{.BackgroundColor}}; color: {{.TextColor}};">{{.Text}}</a>
          </td>
        </tr>
      </tbody>
    </table>`))

	paragraphTemplate = template.Must(template.New("emailParagraph").Parse(`<p style="font-family: Helvetica, sans-serif; font-size: 16px; font-weight: normal; margin: 0; margin-bottom: 16px;">{{.}}</p>`))

	detailsTemplate = template.Must(template.New("emailDetails").Parse(`
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="border-collapse: collapse; width: 100%; margin-bottom: 16px;" width="100%">
      {{- range .}}
      <tr>
        <td style="font-family: Helvetica, sans-serif; font-size: 14px; color: #6b7280; padding: 6px 12px 6px 0; vertical-align: top; white-space: nowrap;">{{.Label}}</td>
        <td style="font-family: Helvetica, sans-serif; font-size: 14px; color: #111827; padding: 6px 0; vertical-align: top;">{{.Value}}</td>
      </tr>
      {{- end}}
    </table>`))
)

// GetButton renders a call-to-action link. Unsafe URLs degrade to "#".
func GetButton(props ButtonProps) string {
	sanitizedURL := sanitizeEmailURL(props.URL)
	if sanitizedURL == "" {
		log.Printf("Invalid or unsafe URL in email button: %s", props.URL)
		sanitizedURL = "#"
	}

	templateData := buttonTemplateData{
		BackgroundColor: sanitizeColor(props.BackgroundColor, "#0867ec"),
		URL:             template.URL(sanitizedURL),
		TextColor:       sanitizeColor(props.TextColor, "#ffffff"),
		Text:            props.Text,
	}

	var buf bytes.Buffer
	if err := buttonTemplate.Execute(&buf, templateData); err != nil {
		log.Printf("Error executing email button template: %v", err)
		return `<div style="color: red;">Button template error</div>`
	}
	return buf.String()
}

// GetParagraph renders escaped text as a paragraph.
func GetParagraph(text string) string {
	var buf bytes.Buffer
	if err := paragraphTemplate.Execute(&buf, text); err != nil {
		log.Printf("Error executing email paragraph template: %v", err)
		return ""
	}
	return buf.String()
}

// GetDetailsTable renders rows with empty values skipped.
func GetDetailsTable(rows []DetailRow) string {
	kept := make([]DetailRow, 0, len(rows))
	for _, row := range rows {
		if strings.TrimSpace(row.Value) != "" {
			kept = append(kept, row)
		}
	}

	var buf bytes.Buffer
	if err := detailsTemplate.Execute(&buf, kept); err != nil {
		log.Printf("Error executing email details template: %v", err)
		return ""
	}
	return buf.String()
}

// sanitizeEmailURL allows http, https, mailto and tel links only.
func sanitizeEmailURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	switch strings.ToLower(parsedURL.Scheme) {
	case "http", "https", "mailto", "tel":
		return parsedURL.String()
	default:
		return ""
	}
}

func sanitizeColor(color, fallback string) string {
	color = strings.TrimSpace(color)
	if !strings.HasPrefix(color, "#") {
		return fallback
	}

	hex := color[1:]
	if len(hex) != 3 && len(hex) != 6 {
		return fallback
	}
	for _, char := range hex {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f') || (char >= 'A' && char <= 'F')) {
			return fallback
		}
	}
	return color
}
