// Package webhook forwards accepted leads and tracking beacons to Google
// Sheets Apps Script webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// ErrWebhookNotConfigured is returned by Forward when no URL is set.
var ErrWebhookNotConfigured = errors.New("sheets webhook not configured")

// SheetsClient posts JSON to one webhook URL.
type SheetsClient struct {
	httpClient *http.Client
	url        string
	timeout    time.Duration
	logger     *logging.ChanneledLogger
}

// NewSheetsClient creates a client for url. An empty url is allowed; Forward
// then fails with ErrWebhookNotConfigured.
func NewSheetsClient(httpClient *http.Client, url string, timeout time.Duration, logger *logging.ChanneledLogger) *SheetsClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SheetsClient{
		httpClient: httpClient,
		url:        url,
		timeout:    timeout,
		logger:     logger,
	}
}

// Configured reports whether a webhook URL is set.
func (c *SheetsClient) Configured() bool { return c.url != "" }

// Forward POSTs payload as JSON. Any non-2xx status is an error.
func (c *SheetsClient) Forward(ctx context.Context, payload any) error {
	if c.url == "" {
		return ErrWebhookNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Webhook().Error("Webhook request failed", "error", err.Error(), "duration", time.Since(start))
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Webhook().Error("Webhook rejected payload", "status", resp.StatusCode, "duration", time.Since(start))
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.Webhook().Debug("Webhook accepted payload", "status", resp.StatusCode, "duration", time.Since(start))
	return nil
}

// ForwardBeacon wraps fields with type "beacon" and an ISO receivedAt stamp
// before forwarding. Caller keys named type or receivedAt are overwritten.
func (c *SheetsClient) ForwardBeacon(ctx context.Context, fields map[string]any, receivedAt time.Time) error {
	row := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		row[k] = v
	}
	row["type"] = "beacon"
	row["receivedAt"] = receivedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	return c.Forward(ctx, row)
}
