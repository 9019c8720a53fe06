package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/pkg/tracking"
)

type fakeSender struct {
	name string
	err  error
	got  []Message
}

func (f *fakeSender) Name() string { return f.name }

func (f *fakeSender) Send(_ context.Context, msg Message) error {
	f.got = append(f.got, msg)
	return f.err
}

func sampleLead() *lead.Lead {
	return lead.FromPayload("01HZX", tracking.LeadPayload{
		LeadID:         "LD-1",
		EventType:      "quote_request",
		Name:           "Jo Bloggs",
		Email:          "jo@example.com",
		Phone:          "07700 900123",
		Value:          120,
		Currency:       "GBP",
		LastUTMSource:  "google",
		SubmittedAt:    "2026-03-14T09:30:00.000Z",
		IdempotencyKey: "idem",
	}, "203.0.113.7", time.Date(2026, 3, 14, 9, 30, 1, 0, time.UTC))
}

func TestNotificationServiceFallsBack(t *testing.T) {
	primary := &fakeSender{name: "resend", err: errors.New("boom")}
	fallback := &fakeSender{name: "brevo"}
	svc := NewNotificationService("owner@example.com", logging.NewDiscardLogger(), primary, fallback)

	require.NoError(t, svc.SendLeadNotification(context.Background(), sampleLead()))
	require.Len(t, primary.got, 1)
	require.Len(t, fallback.got, 1)

	msg := fallback.got[0]
	assert.Equal(t, "owner@example.com", msg.To)
	assert.Equal(t, "jo@example.com", msg.ReplyTo)
	assert.Equal(t, "New quote request from Jo Bloggs", msg.Subject)
	assert.Contains(t, msg.HTML, "google")
}

func TestNotificationServiceStopsAtFirstSuccess(t *testing.T) {
	primary := &fakeSender{name: "resend"}
	fallback := &fakeSender{name: "brevo"}
	svc := NewNotificationService("owner@example.com", logging.NewDiscardLogger(), primary, fallback)

	require.NoError(t, svc.SendLeadNotification(context.Background(), sampleLead()))
	assert.Len(t, primary.got, 1)
	assert.Empty(t, fallback.got)
}

func TestNotificationServiceAllFail(t *testing.T) {
	cause := errors.New("brevo down")
	svc := NewNotificationService("owner@example.com", logging.NewDiscardLogger(),
		&fakeSender{name: "resend", err: errors.New("resend down")},
		&fakeSender{name: "brevo", err: cause})

	err := svc.SendLeadNotification(context.Background(), sampleLead())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestNotificationServiceNotConfigured(t *testing.T) {
	var resendClient *ResendClient
	svc := NewNotificationService("owner@example.com", logging.NewDiscardLogger(), resendClient, NewBrevoClient(nil, "", "", From{}))
	assert.False(t, svc.Enabled())
	assert.ErrorIs(t, svc.SendLeadNotification(context.Background(), sampleLead()), ErrNotConfigured)

	noRecipient := NewNotificationService("", logging.NewDiscardLogger(), &fakeSender{name: "x"})
	assert.ErrorIs(t, noRecipient.SendLeadNotification(context.Background(), sampleLead()), ErrNotConfigured)
}

func TestBrevoClientSend(t *testing.T) {
	var got brevoRequest
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewBrevoClient(srv.Client(), "xkeysib-test", srv.URL, From{Email: "noreply@example.com", Name: "Lead Desk"})
	err := c.Send(context.Background(), Message{To: "owner@example.com", Subject: "s", HTML: "<p>h</p>", ReplyTo: "jo@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "xkeysib-test", apiKey)
	assert.Equal(t, "noreply@example.com", got.Sender.Email)
	assert.Equal(t, "Lead Desk", got.Sender.Name)
	require.Len(t, got.To, 1)
	assert.Equal(t, "owner@example.com", got.To[0].Email)
	require.NotNil(t, got.ReplyTo)
	assert.Equal(t, "jo@example.com", got.ReplyTo.Email)
	assert.Equal(t, "<p>h</p>", got.HTMLContent)
}

func TestBrevoClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewBrevoClient(srv.Client(), "k", srv.URL, From{Email: "a@b.c"})
	err := c.Send(context.Background(), Message{To: "x@y.z"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestFormatFrom(t *testing.T) {
	assert.Equal(t, "Lead Desk <noreply@example.com>", formatFrom(From{Email: "noreply@example.com", Name: "Lead Desk"}))
	assert.Equal(t, "noreply@example.com", formatFrom(From{Email: "noreply@example.com"}))
}
