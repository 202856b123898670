// config/config_test.go
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, defaultsUsed, err := Load(filepath.Join(t.TempDir(), "missing.toml"), true)
	require.NoError(t, err)
	require.True(t, defaultsUsed)

	require.Equal(t, InfoLevel, cfg.Log.Level)
	require.Equal(t, ":8080", cfg.Server.ListenAddr)
	require.Equal(t, 20, cfg.DB.SenderHourlyCap)
	require.Equal(t, []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}, cfg.Identity.HeaderOrder)
	require.Equal(t, "_whatupb_rate_limit", cfg.Identity.HashSalt)
	require.Equal(t, 5, cfg.RateLimit.MaxRequests)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 8*time.Second, cfg.Moderation.Perspective.Timeout)
	require.Equal(t, 0.55, cfg.Moderation.Perspective.Thresholds["TOXICITY"])
	require.Equal(t, 0.50, cfg.Moderation.Perspective.Thresholds["THREAT"])
	require.Equal(t, 256, cfg.Audit.QueueSize)
}

func TestLoad_MissingFileWithoutDefaults(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not found")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"

[rate_limit]
max_requests = 3

[moderation.perspective]
detect_language = true
`)

	cfg, defaultsUsed, err := Load(path, false)
	require.NoError(t, err)
	require.False(t, defaultsUsed)

	require.Equal(t, DebugLevel, cfg.Log.Level)
	require.Equal(t, 3, cfg.RateLimit.MaxRequests)
	require.True(t, cfg.Moderation.Perspective.DetectLanguage)
	// Untouched sections keep their defaults.
	require.Equal(t, ":8080", cfg.Server.ListenAddr)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "verbose"
`)
	_, _, err := Load(path, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid log.level")
}

func TestLoad_ValidationFailures(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errText string
	}{
		{
			name:    "zero rate limit",
			content: "[rate_limit]\nmax_requests = 0\n",
			errText: "rate_limit.max_requests",
		},
		{
			name:    "negative sender cap",
			content: "[database]\nsender_hourly_cap = -1\n",
			errText: "sender_hourly_cap",
		},
		{
			name:    "threshold out of range",
			content: "[moderation.perspective.thresholds]\nTOXICITY = 1.5\n",
			errText: "out of range",
		},
		{
			name:    "empty header order",
			content: "[identity]\nheader_order = []\n",
			errText: "identity.header_order",
		},
		{
			name:    "zero audit queue",
			content: "[audit]\nqueue_size = 0\n",
			errText: "audit.queue_size",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, _, err := Load(path, false)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.errText)
		})
	}
}

func TestLoad_SecretsFromEnv(t *testing.T) {
	t.Setenv("TURNSTILE_SECRET_KEY", "env-turnstile")
	t.Setenv("PERSPECTIVE_API_KEY", "env-perspective")

	cfg, _, err := Load(filepath.Join(t.TempDir(), "missing.toml"), true)
	require.NoError(t, err)
	require.Equal(t, "env-turnstile", cfg.Captcha.Secret)
	require.Equal(t, "env-perspective", cfg.Moderation.Perspective.APIKey)
}

func TestLoad_FileSecretWinsOverEnv(t *testing.T) {
	t.Setenv("TURNSTILE_SECRET_KEY", "env-turnstile")
	path := writeConfig(t, `
[captcha]
secret = "file-turnstile"
`)

	cfg, _, err := Load(path, false)
	require.NoError(t, err)
	require.Equal(t, "file-turnstile", cfg.Captcha.Secret)
}

func TestLogLevel_ToSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, DebugLevel.ToSlogLevel())
	require.Equal(t, slog.LevelInfo, InfoLevel.ToSlogLevel())
	require.Equal(t, slog.LevelWarn, WarnLevel.ToSlogLevel())
	require.Equal(t, slog.LevelError, ErrorLevel.ToSlogLevel())
}
