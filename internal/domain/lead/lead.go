// Package lead defines the archived lead entity and its repository. The
// archive is a record of what the lead API accepted; the Sheets webhook stays
// the system of record.
package lead

import (
	"context"
	"errors"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/pkg/tracking"
)

// ErrNotFound is returned when a lead lookup matches nothing.
var ErrNotFound = errors.New("lead not found")

// Lead is one accepted submission.
type Lead struct {
	ID             string               `json:"id"` // archive ULID
	LeadID         string               `json:"leadId"`
	IdempotencyKey string               `json:"idempotencyKey"`
	EventType      string               `json:"eventType"`
	Email          string               `json:"email"`
	Name           string               `json:"name"`
	Phone          string               `json:"phone"`
	Value          float64              `json:"value"`
	Currency       string               `json:"currency"`
	SourceType     string               `json:"sourceType"`
	ConsentState   string               `json:"consentState"`
	SessionID      string               `json:"sessionId"`
	PageURL        string               `json:"pageUrl"`
	Device         string               `json:"device"`
	ClientIP       string               `json:"-"`
	SubmittedAt    string               `json:"submittedAt"`
	ReceivedAt     time.Time            `json:"receivedAt"`
	Payload        tracking.LeadPayload `json:"payload"`
}

// FromPayload builds an archive record. The Turnstile token is single use
// and never stored.
func FromPayload(id string, p tracking.LeadPayload, clientIP string, receivedAt time.Time) *Lead {
	p.TurnstileToken = ""
	return &Lead{
		ID:             id,
		LeadID:         p.LeadID,
		IdempotencyKey: p.IdempotencyKey,
		EventType:      p.EventType,
		Email:          p.Email,
		Name:           p.Name,
		Phone:          p.Phone,
		Value:          p.Value,
		Currency:       p.Currency,
		SourceType:     p.SourceType,
		ConsentState:   p.ConsentState,
		SessionID:      p.SessionID,
		PageURL:        p.PageURL,
		Device:         p.Device,
		ClientIP:       clientIP,
		SubmittedAt:    p.SubmittedAt,
		ReceivedAt:     receivedAt,
		Payload:        p,
	}
}

// Repository persists archived leads.
type Repository interface {
	Store(ctx context.Context, l *Lead) error
	FindByLeadID(ctx context.Context, leadID string) (*Lead, error)
	FindRecent(ctx context.Context, limit int) ([]*Lead, error)
	Count(ctx context.Context) (int, error)
}
