package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// LeadSubmitter delivers lead payloads: a POST with a timeout first, and on
// any failure a bounded local retry queue plus a beacon copy.
type LeadSubmitter struct {
	client   *http.Client
	endpoint string
	timeout  time.Duration
	storage  *Storage
	beacon   Beacon
	maxQueue int
	now      func() time.Time
	logger   *slog.Logger
}

// NewLeadSubmitter builds a submitter posting to endpoint. A nil beacon
// drops beacon copies; a nil client uses http.DefaultClient.
func NewLeadSubmitter(client *http.Client, endpoint string, storage *Storage, beacon Beacon, now func() time.Time, logger *slog.Logger) *LeadSubmitter {
	if client == nil {
		client = http.DefaultClient
	}
	if beacon == nil {
		beacon = NoopBeacon{}
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &LeadSubmitter{
		client:   client,
		endpoint: endpoint,
		timeout:  LeadSubmitTimeout,
		storage:  storage,
		beacon:   beacon,
		maxQueue: MaxQueuedLeads,
		now:      now,
		logger:   logger,
	}
}

// Submit reports whether the lead API accepted the payload. On failure the
// payload is queued and a beacon copy is fired; the caller's flow goes on.
func (s *LeadSubmitter) Submit(ctx context.Context, payload LeadPayload) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode lead payload", "leadId", payload.LeadID, "error", err.Error())
		return false
	}

	if err := s.post(ctx, body); err == nil {
		return true
	} else {
		s.logger.Error("Lead submission failed",
			"leadId", payload.LeadID,
			"email", MaskEmail(payload.Email),
			"sessionId", MaskID(payload.SessionID),
			"error", err.Error())
	}

	s.enqueue(payload)
	s.beacon.Send(s.endpoint, body)
	return false
}

func (s *LeadSubmitter) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("lead request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("lead endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func (s *LeadSubmitter) enqueue(payload LeadPayload) {
	queue := s.Queued()
	queue = append(queue, QueuedLead{Payload: payload, Timestamp: s.now().UnixMilli()})
	if len(queue) > s.maxQueue {
		queue = queue[len(queue)-s.maxQueue:]
	}
	s.storage.SetJSON(KeyLeadQueue, queue)
}

// Queued returns the payloads awaiting redelivery, oldest first.
func (s *LeadSubmitter) Queued() []QueuedLead {
	var queue []QueuedLead
	if !s.storage.GetJSON(KeyLeadQueue, &queue) {
		return nil
	}
	return queue
}

// RetryQueued beacons every queued payload and clears the queue. Delivery is
// assumed, not confirmed; a beacon has no response to inspect. Returns how
// many payloads were handed to the beacon.
func (s *LeadSubmitter) RetryQueued() int {
	queue := s.Queued()
	if len(queue) == 0 {
		return 0
	}

	s.logger.Debug("Retrying queued leads", "count", len(queue))
	for _, item := range queue {
		body, err := json.Marshal(item.Payload)
		if err != nil {
			continue
		}
		s.beacon.Send(s.endpoint, body)
	}

	s.storage.Remove(KeyLeadQueue)
	return len(queue)
}
