package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeRedactsSecrets(t *testing.T) {
	l := Nop()

	got := l.sanitize([]interface{}{"api_key", "sk-123", "course_id", "c1", "Authorization", "Bearer x", "dangling"})
	assert.Equal(t, []interface{}{"api_key", "[REDACTED]", "course_id", "c1", "Authorization", "[REDACTED]", "dangling"}, got)
}

func TestSanitizeDisabled(t *testing.T) {
	t.Setenv("LOG_REDACTION_ENABLED", "off")
	l, err := New("development")
	assert.NoError(t, err)

	kv := []interface{}{"token", "abc"}
	assert.Equal(t, kv, l.sanitize(kv))
}
