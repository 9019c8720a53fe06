package logging

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// SSEWriter is an io.Writer placed behind a channel's slog handler that
// forwards each record to a LogBroadcaster.
type SSEWriter struct {
	broadcaster *LogBroadcaster
	channel     Channel
}

// NewSSEWriter creates a writer for one channel.
func NewSSEWriter(b *LogBroadcaster, channel Channel) *SSEWriter {
	return &SSEWriter{broadcaster: b, channel: channel}
}

// Write accepts one JSON or text record. Text records are forwarded as a
// bare message at info.
func (w *SSEWriter) Write(p []byte) (int, error) {
	var raw map[string]any
	if err := json.Unmarshal(p, &raw); err != nil {
		w.broadcaster.Submit(LogEntry{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Channel:   string(w.channel),
			Level:     slog.LevelInfo.String(),
			Message:   strings.TrimSpace(string(p)),
		})
		return len(p), nil
	}

	w.broadcaster.Submit(LogEntry{
		Timestamp: getString(raw, slog.TimeKey),
		Channel:   string(w.channel),
		Level:     getString(raw, slog.LevelKey),
		Message:   getString(raw, slog.MessageKey),
		RequestID: getString(raw, "requestId"),
		LeadID:    getString(raw, "leadId"),
	})
	return len(p), nil
}

func getString(data map[string]any, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}
