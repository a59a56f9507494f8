package models

// ConfigError indicates an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}

type ServerConfig struct {
	Port             int    `json:"port"`
	ReadTimeoutSec   int    `json:"readTimeoutSec"`
	WriteTimeoutSec  int    `json:"writeTimeoutSec"`
	IdleTimeoutSec   int    `json:"idleTimeoutSec"`
	WebhookSecret    string `json:"webhookSecret"`
	WebhookSignature string `json:"webhookSignatureHeader"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

// GreenAPIConfig configures the outbound provider client used for
// canned reply-option responses. The API token comes from the
// GREENAPI_API_TOKEN environment variable, never from the file.
type GreenAPIConfig struct {
	APIBaseURL      string `json:"apiBaseUrl"`
	InstanceID      string `json:"instanceId"`
	TimeoutSec      int    `json:"timeoutSec"`
	RetryCount      int    `json:"retryCount"`
	SendReplies     bool   `json:"sendReplies"`
	BreakerFailures int    `json:"breakerFailures"`
	BreakerResetSec int    `json:"breakerResetSec"`
}

type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}

type Config struct {
	LogLevel string         `json:"logLevel"`
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	GreenAPI GreenAPIConfig `json:"greenApi"`
	Retry    RetryConfig    `json:"retry"`
	Tracing  TracingConfig  `json:"tracing"`
}
