// Package email sends the lead notification to the site owner. Resend is the
// primary provider and Brevo the fallback.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/email/templates"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	"github.com/resendlabs/resend-go"
)

// ErrNotConfigured is returned by a provider with no API key.
var ErrNotConfigured = errors.New("email provider not configured")

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
	ReplyTo string
}

// Sender delivers one message through one provider.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendLeadNotification(ctx context.Context, l *lead.Lead) error
}

// From is the sender address shared by both providers.
type From struct {
	Email string
	Name  string
}

// ResendClient is the primary Sender using the Resend API.
type ResendClient struct {
	client *resend.Client
	from   From
}

// NewResendClient returns nil when apiKey is empty.
func NewResendClient(apiKey string, from From) *ResendClient {
	if apiKey == "" {
		return nil
	}
	return &ResendClient{client: resend.NewClient(apiKey), from: from}
}

func (c *ResendClient) Name() string { return "resend" }

// Send delivers msg via Resend. The SDK call does not take a context, so it
// runs in its own goroutine and ctx only bounds how long we wait for it.
func (c *ResendClient) Send(ctx context.Context, msg Message) error {
	if c == nil || c.client == nil {
		return ErrNotConfigured
	}

	params := &resend.SendEmailRequest{
		From:    formatFrom(c.from),
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.client.Emails.Send(params)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send email via Resend: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("resend send abandoned: %w", ctx.Err())
	}
}

// BrevoClient is the fallback Sender using Brevo's transactional REST API.
type BrevoClient struct {
	httpClient *http.Client
	apiKey     string
	endpoint   string
	from       From
}

// NewBrevoClient returns nil when apiKey is empty.
func NewBrevoClient(httpClient *http.Client, apiKey, endpoint string, from From) *BrevoClient {
	if apiKey == "" {
		return nil
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &BrevoClient{httpClient: httpClient, apiKey: apiKey, endpoint: endpoint, from: from}
}

func (c *BrevoClient) Name() string { return "brevo" }

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoRequest struct {
	Sender      brevoAddress   `json:"sender"`
	To          []brevoAddress `json:"to"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
	ReplyTo     *brevoAddress  `json:"replyTo,omitempty"`
}

// Send delivers msg via Brevo.
func (c *BrevoClient) Send(ctx context.Context, msg Message) error {
	if c == nil {
		return ErrNotConfigured
	}

	body := brevoRequest{
		Sender:      brevoAddress{Email: c.from.Email, Name: c.from.Name},
		To:          []brevoAddress{{Email: msg.To}},
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
	}
	if msg.ReplyTo != "" {
		body.ReplyTo = &brevoAddress{Email: msg.ReplyTo}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode brevo request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build brevo request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email via Brevo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("brevo returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// NotificationService renders lead notifications and tries each Sender in
// order until one succeeds.
type NotificationService struct {
	senders  []Sender
	notifyTo string
	logger   *logging.ChanneledLogger
}

// NewNotificationService skips nil senders. With no senders or no recipient,
// SendLeadNotification returns ErrNotConfigured.
func NewNotificationService(notifyTo string, logger *logging.ChanneledLogger, senders ...Sender) *NotificationService {
	s := &NotificationService{notifyTo: notifyTo, logger: logger}
	for _, sender := range senders {
		if sender == nil || isNilSender(sender) {
			continue
		}
		s.senders = append(s.senders, sender)
	}
	return s
}

// NewServiceFromConfig wires Resend and Brevo from pkg/config.
func NewServiceFromConfig(logger *logging.ChanneledLogger) *NotificationService {
	from := From{Email: config.EmailFrom, Name: config.EmailFromName}
	return NewNotificationService(config.LeadNotifyEmail, logger,
		NewResendClient(config.ResendAPIKey, from),
		NewBrevoClient(&http.Client{Timeout: config.EmailSendTimeout}, config.BrevoAPIKey, config.BrevoAPIURL, from),
	)
}

// Enabled reports whether a notification could be sent at all.
func (s *NotificationService) Enabled() bool {
	return s.notifyTo != "" && len(s.senders) > 0
}

// SendLeadNotification emails the site owner about l.
func (s *NotificationService) SendLeadNotification(ctx context.Context, l *lead.Lead) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	return s.Send(ctx, BuildLeadMessage(s.notifyTo, l))
}

// Send tries each provider in order and returns the last error when all fail.
func (s *NotificationService) Send(ctx context.Context, msg Message) error {
	var lastErr error = ErrNotConfigured
	for _, sender := range s.senders {
		start := time.Now()
		err := sender.Send(ctx, msg)
		if err == nil {
			s.logger.Email().Info("Email sent",
				"provider", sender.Name(),
				"to", logging.SanitizeEmail(msg.To),
				"duration", time.Since(start))
			return nil
		}
		s.logger.Email().Warn("Email provider failed",
			"provider", sender.Name(),
			"error", err.Error())
		lastErr = err
	}
	return fmt.Errorf("all email providers failed: %w", lastErr)
}

// BuildLeadMessage renders the owner notification for l. Replies go to the
// visitor.
func BuildLeadMessage(to string, l *lead.Lead) Message {
	props := templates.LeadEmailProps{
		LeadID:     l.LeadID,
		EventType:  l.EventType,
		Name:       l.Name,
		Email:      l.Email,
		Phone:      l.Phone,
		Value:      l.Value,
		Currency:   l.Currency,
		SourceType: l.SourceType,
		UTMSource:  firstNonEmpty(l.Payload.LastUTMSource, l.Payload.FirstUTMSource),
		UTMMedium:  firstNonEmpty(l.Payload.LastUTMMedium, l.Payload.FirstUTMMedium),
		Campaign:   firstNonEmpty(l.Payload.LastUTMCampaign, l.Payload.FirstUTMCampaign),
		PageURL:    l.PageURL,
		Device:     l.Device,
		Consent:    l.ConsentState,
		Submitted:  l.SubmittedAt,
	}
	subject := templates.LeadSubject(props)

	return Message{
		To:      to,
		Subject: subject,
		HTML: templates.GetEmailLayout(templates.EmailLayoutProps{
			Preheader: subject,
			Title:     subject,
			Content:   templates.GetLeadNotificationContent(props),
		}),
		ReplyTo: l.Email,
	}
}

func formatFrom(f From) string {
	if f.Name == "" {
		return f.Email
	}
	return fmt.Sprintf("%s <%s>", f.Name, f.Email)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// isNilSender catches typed nil pointers stored in the interface.
func isNilSender(s Sender) bool {
	switch v := s.(type) {
	case *ResendClient:
		return v == nil
	case *BrevoClient:
		return v == nil
	}
	return false
}
