package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(INFO, &buf)

	l.Info("event tracked", "event_type", "app_opened", "inserted", true)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "event tracked", entry["msg"])
	assert.Equal(t, "app_opened", entry["event_type"])
	assert.Equal(t, "true", entry["inserted"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(WARN, &buf)

	l.Debug("dropped")
	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestLogger_RedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(INFO, &buf)

	l.Info("skip", "user_email", "john.doe@example.com")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "jo***@example.com", entry["user_email"])
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactIdentity(t *testing.T) {
	assert.Equal(t, "anon:abcd***", RedactIdentity("anon:abcd1234"))
	assert.Equal(t, "anon:***", RedactIdentity("anon:ab"))
	assert.Equal(t, "user_1", RedactIdentity("user_1"))
	assert.Equal(t, "jo***@example.com", RedactIdentity("john@example.com"))
}
