package service

// Standardized structured log field names. Keeping these consistent
// makes the JSON logs queryable across components.
const (
	// Identity fields
	LogFieldEnquiryID = "enquiry_id"
	LogFieldMessageID = "message_id"
	LogFieldChatID    = "chat_id"
	LogFieldMobile    = "mobile_number"
	LogFieldStaff     = "staff"

	// Component fields
	LogFieldService   = "service"
	LogFieldComponent = "component"
	LogFieldOperation = "operation"
	LogFieldMethod    = "method"

	// Event fields
	LogFieldEvent       = "event"
	LogFieldWebhookType = "webhook_type"
	LogFieldOutcome     = "outcome"

	// Performance fields
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// HTTP fields
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Tracing fields
	LogFieldRequestID = "request_id"
	LogFieldTraceID   = "trace_id"
)
