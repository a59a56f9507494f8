package models

// Provider webhook event classification.
type ProviderEventType string

const (
	EventTypeMessage ProviderEventType = "message"
	EventTypeStatus  ProviderEventType = "status"
	EventTypeUnknown ProviderEventType = "unknown"
)

// Green API webhook type discriminators we recognize. Anything else is
// treated as a status/heartbeat event and ignored.
const (
	WebhookTypeIncomingMessage = "incomingMessageReceived"
	WebhookTypeOutgoingMessage = "outgoingMessageReceived"
)

// NameCandidate is one (field, value) pair from the sender block of a
// webhook payload. Candidates are kept in priority order.
type NameCandidate struct {
	Field string
	Value string
}

// InboundMessage is the canonical form of one webhook delivery. It is
// ephemeral: built by the payload normalizer, consumed by the ingestion
// pipeline, never persisted as-is.
type InboundMessage struct {
	EventType      ProviderEventType
	TypeWebhook    string
	ChatID         string
	MessageID      string
	Text           string
	CandidateNames []NameCandidate
}

// IsMessage reports whether the delivery carries message data worth
// running through the pipeline.
func (m *InboundMessage) IsMessage() bool {
	return m != nil && m.EventType == EventTypeMessage
}
