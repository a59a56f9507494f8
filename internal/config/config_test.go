package config

import (
	"os"
	"path/filepath"
	"testing"

	"whatsenquiry/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `{"database":{"path":"/tmp/enquiries.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/enquiries.db", cfg.Database.Path)
	assert.Equal(t, constants.DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, constants.DefaultServerReadTimeoutSec, cfg.Server.ReadTimeoutSec)
	assert.Equal(t, constants.DefaultRetryBackoffMs, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, constants.DefaultMaxBackoffMs, cfg.Retry.MaxBackoffMs)
	assert.Equal(t, constants.DefaultMaxAttempts, cfg.Retry.MaxAttempts)
	assert.Equal(t, constants.DefaultProviderTimeoutSec, cfg.GreenAPI.TimeoutSec)
}

func TestLoadConfigRetrySettings(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"path": "/tmp/enquiries.db"},
		"retry": {"initialBackoffMs": 50, "maxBackoffMs": 2000, "maxAttempts": 7}
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Retry.InitialBackoffMs)
	assert.Equal(t, 2000, cfg.Retry.MaxBackoffMs)
	assert.Equal(t, 7, cfg.Retry.MaxAttempts)
}

func TestLoadConfigMissingDBPath(t *testing.T) {
	path := writeConfig(t, `{}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingDBPath)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfigInvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigSendRepliesRequiresProvider(t *testing.T) {
	path := writeConfig(t, `{
		"database": {"path": "/tmp/enquiries.db"},
		"greenApi": {"sendReplies": true}
	}`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingProviderURL)

	path = writeConfig(t, `{
		"database": {"path": "/tmp/enquiries.db"},
		"greenApi": {"sendReplies": true, "apiBaseUrl": "https://api.green-api.com"}
	}`)

	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingInstanceID)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("WHATSENQUIRY_DB_PATH", "/tmp/override.db")
	t.Setenv("GREENAPI_API_URL", "https://api.green-api.com")
	t.Setenv("GREENAPI_INSTANCE_ID", "1101")
	t.Setenv("WHATSENQUIRY_WEBHOOK_SECRET", "env-secret")
	t.Setenv("WHATSENQUIRY_LOG_LEVEL", "debug")
	t.Setenv("PORT", "9999")

	path := writeConfig(t, `{"database":{"path":"/tmp/enquiries.db"}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
	assert.Equal(t, "https://api.green-api.com", cfg.GreenAPI.APIBaseURL)
	assert.Equal(t, "1101", cfg.GreenAPI.InstanceID)
	assert.Equal(t, "env-secret", cfg.Server.WebhookSecret)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Server.Port)
}

func TestLoadConfigInvalidPortEnvIgnored(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	path := writeConfig(t, `{"database":{"path":"/tmp/enquiries.db"},"server":{"port":8095}}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8095, cfg.Server.Port)
}
