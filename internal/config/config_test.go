package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "CHAT_REPLY_DELAY", "CHAT_SESSION_TTL", "CHAT_SWEEP_INTERVAL",
		"CHAT_PLAYBOOK_FILE", "CHAT_DEFAULT_PLAYBOOK", "CHAT_RATE_LIMIT",
		"CHAT_RATE_BURST", "CHAT_SUBSCRIBER_BUFFER", "LOG_LEVEL", "LOG_DEVELOPMENT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 500*time.Millisecond, cfg.Chat.ReplyDelay)
	assert.Equal(t, 30*time.Minute, cfg.Chat.SessionTTL)
	assert.Equal(t, "sponsorship", cfg.Chat.DefaultPlaybook)
	assert.Equal(t, 2.0, cfg.Chat.RateLimit)
	assert.Equal(t, 5, cfg.Chat.RateBurst)
	assert.Equal(t, 32, cfg.Chat.SubscriberBuffer)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Development)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CHAT_REPLY_DELAY", "0s")
	t.Setenv("CHAT_RATE_BURST", "0")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, time.Duration(0), cfg.Chat.ReplyDelay)
	assert.Equal(t, 1, cfg.Chat.RateBurst)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PORT":             "80 80",
		"CHAT_REPLY_DELAY": "soon",
		"CHAT_RATE_LIMIT":  "fast",
		"LOG_DEVELOPMENT":  "maybe",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsNegativeDelay(t *testing.T) {
	t.Setenv("CHAT_REPLY_DELAY", "-1s")
	_, err := Load()
	require.Error(t, err)
}
