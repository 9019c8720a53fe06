// Package captcha verifies Cloudflare Turnstile tokens.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// Result is the siteverify outcome.
type Result struct {
	Success    bool
	ErrorCodes []string
	Skipped    bool
}

// Error joins the error codes for logging.
func (r Result) Error() string { return strings.Join(r.ErrorCodes, ", ") }

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
	Action     string   `json:"action"`
}

// Verifier calls the siteverify endpoint.
type Verifier struct {
	httpClient *http.Client
	secret     string
	verifyURL  string
	logger     *logging.ChanneledLogger
}

// NewVerifier creates a verifier. With no secret every token passes.
func NewVerifier(httpClient *http.Client, secret, verifyURL string, logger *logging.ChanneledLogger) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		httpClient: httpClient,
		secret:     secret,
		verifyURL:  verifyURL,
		logger:     logger,
	}
}

// Verify checks token for the visitor at remoteIP. A transport failure is
// returned as an error alongside an unsuccessful Result.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (Result, error) {
	if v.secret == "" {
		v.logger.Captcha().Warn("TURNSTILE_SECRET_KEY not configured - skipping verification")
		return Result{Success: true, Skipped: true}, nil
	}
	if token == "" {
		return Result{Success: false, ErrorCodes: []string{"missing-input-response"}}, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("failed to build turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Captcha().Error("Turnstile verification error", "error", err.Error())
		return Result{ErrorCodes: []string{"internal-error"}}, fmt.Errorf("turnstile request failed: %w", err)
	}
	defer resp.Body.Close()

	var body siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{ErrorCodes: []string{"invalid-response"}}, fmt.Errorf("failed to decode turnstile response: %w", err)
	}

	result := Result{Success: body.Success, ErrorCodes: body.ErrorCodes}
	v.logger.Captcha().Debug("Turnstile verified",
		"success", result.Success,
		"errorCodes", result.Error(),
		"hostname", body.Hostname,
		"duration", time.Since(start))
	return result, nil
}
