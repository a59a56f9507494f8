package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/models"
	"whatsenquiry/internal/security"
)

var (
	ErrMissingDBPath      = models.ConfigError{Message: "missing database path"}
	ErrMissingProviderURL = models.ConfigError{Message: "missing Green API base URL"}
	ErrMissingInstanceID  = models.ConfigError{Message: "missing Green API instance ID"}
)

// LoadConfig reads the JSON config file, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.GreenAPI.SendReplies {
		if c.GreenAPI.APIBaseURL == "" {
			return ErrMissingProviderURL
		}
		if c.GreenAPI.InstanceID == "" {
			return ErrMissingInstanceID
		}
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeoutSec
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultMaxAttempts
	}

	if c.GreenAPI.TimeoutSec <= 0 {
		c.GreenAPI.TimeoutSec = constants.DefaultProviderTimeoutSec
	}
	if c.GreenAPI.RetryCount <= 0 {
		c.GreenAPI.RetryCount = constants.DefaultProviderRetryCount
	}
	if c.GreenAPI.BreakerFailures <= 0 {
		c.GreenAPI.BreakerFailures = constants.DefaultProviderBreakerFailures
	}
	if c.GreenAPI.BreakerResetSec <= 0 {
		c.GreenAPI.BreakerResetSec = constants.DefaultProviderBreakerResetSec
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("GREENAPI_API_URL"); url != "" {
		c.GreenAPI.APIBaseURL = url
	}
	if id := os.Getenv("GREENAPI_INSTANCE_ID"); id != "" {
		c.GreenAPI.InstanceID = id
	}
	if path := os.Getenv("WHATSENQUIRY_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}

	// SECURITY: Webhook secrets should be set via environment variables
	if secret := os.Getenv("WHATSENQUIRY_WEBHOOK_SECRET"); secret != "" {
		c.Server.WebhookSecret = secret
	}
	if level := os.Getenv("WHATSENQUIRY_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
}
