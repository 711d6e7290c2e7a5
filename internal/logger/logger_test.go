package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactMasksSecretKeys(t *testing.T) {
	got := redact([]interface{}{"user", "alice", "access_token", "abc", "otp_code", "123456", "dangling"})

	assert.Equal(t, []interface{}{"user", "alice", "access_token", "[REDACTED]", "otp_code", "[REDACTED]", "dangling"}, got)
}

func TestNewFallsBackToDevelopment(t *testing.T) {
	log, err := New("")
	assert.NoError(t, err)
	assert.NotNil(t, log.SugaredLogger)

	log.With("scope", "block-1").Debug("ready")
}
