package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level slog.Level) (*ChanneledLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := NewChanneledLogger(&LoggerConfig{
		Output:       &buf,
		JSONFormat:   true,
		DefaultLevel: level,
	})
	require.NoError(t, err)
	return logger, &buf
}

func TestChannelAttribute(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)
	logger.Lead().Info("Lead accepted", "leadId", "LD-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lead", entry["channel"])
	assert.Equal(t, "LD-1", entry["leadId"])
}

func TestWithRequestAddsRequestID(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)
	logger.WithRequest(ChannelLead, "req-42").Warn("Lead body unreadable")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "lead", entry["channel"])
	assert.Equal(t, "req-42", entry["requestId"])
}

func TestSetChannelLevel(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)

	logger.Webhook().Debug("hidden")
	assert.Zero(t, buf.Len())

	require.NoError(t, logger.SetChannelLevel(ChannelWebhook, slog.LevelDebug))
	logger.Webhook().Debug("shown")
	logger.Email().Debug("still hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.NotContains(t, buf.String(), "still hidden")

	levels := logger.GetChannelLevels()
	assert.Equal(t, "DEBUG", levels["webhook"])
	assert.Equal(t, "INFO", levels["email"])

	assert.Error(t, logger.SetChannelLevel(Channel("nope"), slog.LevelDebug))
}

func TestUnknownChannelFallsBackToSystem(t *testing.T) {
	logger, buf := newBufferLogger(t, slog.LevelInfo)
	logger.GetChannel(Channel("nope")).Info("routed")
	assert.Contains(t, buf.String(), `"channel":"system"`)
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewChanneledLogger(&LoggerConfig{
		OutputToFile: true,
		LogDirectory: dir,
		Output:       &bytes.Buffer{},
		DefaultLevel: slog.LevelInfo,
	})
	require.NoError(t, err)
	logger.Auth().Warn("Authentication operation failed")
	require.NoError(t, logger.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "auth.log"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Authentication operation failed")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestSanitizers(t *testing.T) {
	assert.Equal(t, "j****@example.com", SanitizeEmail("jo@example.com"))
	assert.Equal(t, "****", SanitizeEmail("nope"))
	assert.Equal(t, "sess****3456", SanitizeSessionID("sess_abcdef123456"))
	assert.Equal(t, "********", SanitizeSessionID("short"))

	q := sanitizeQuery("SELECT *\n\tFROM leads")
	assert.Equal(t, "SELECT * FROM leads", q)
	assert.True(t, strings.HasSuffix(sanitizeQuery(strings.Repeat("x", 600)), "..."))
}
