package constants

// Default server configuration values
const (
	DefaultServerPort            = 8090
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default retry configuration values
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultMaxAttempts           = 5
	DefaultDatabaseRetryAttempts = 3
)

// Default outbound provider (Green API) values
const (
	DefaultProviderTimeoutSec      = 10
	DefaultProviderRetryCount      = 3
	DefaultProviderBreakerFailures = 5
	DefaultProviderBreakerResetSec = 30
	DefaultNotifyTimeoutSec        = 5
)

// Validation bounds
const (
	MinMobileNumberDigits = 7
	MaxMobileNumberDigits = 15
	MaxMessageIDLength    = 128
	MaxStaffNameLength    = 128
	MaxDisplayNameLength  = 256
	MaxMessageTextLength  = 4096
	MaxWebhookBodyBytes   = 1 << 20
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
	DefaultMessageIDLength = 8
)

// Encryption settings
const (
	EncryptionSalt       = "whatsenquiry-enquiry-store-v1"
	EncryptionLookupSalt = "whatsenquiry-lookup-v1"
)

// WebSocket notification hub
const (
	NotifyHubBufferSize   = 16
	NotifyWriteTimeoutSec = 5
)
