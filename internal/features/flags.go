package features

import (
	"sync"
	"time"
)

// Flag represents a feature flag with metadata
type Flag struct {
	Name        string    `json:"name"`
	Enabled     bool      `json:"enabled"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Flag names used by the ingestion pipeline.
const (
	// FlagStrictMessageID rejects webhook messages that carry no
	// provider message id instead of writing without dedup protection.
	FlagStrictMessageID = "strict_message_id"
	// FlagReplyResponses sends canned responses to recognized reply
	// options via the outbound provider client.
	FlagReplyResponses = "reply_responses"
	// FlagRealtimeNotifications publishes enquiry-created events to
	// connected WebSocket clients.
	FlagRealtimeNotifications = "realtime_notifications"
	// FlagWebhookSignature enforces HMAC verification of webhook bodies.
	FlagWebhookSignature = "webhook_signature"
)

// FlagManager manages feature flags with thread-safe operations
type FlagManager struct {
	flags map[string]*Flag
	mu    sync.RWMutex
}

// NewFlagManager creates a manager pre-populated with the pipeline
// defaults.
func NewFlagManager() *FlagManager {
	fm := &FlagManager{
		flags: make(map[string]*Flag),
	}
	fm.Register(FlagStrictMessageID, true, "reject webhook messages without a provider message id")
	fm.Register(FlagReplyResponses, false, "send canned responses for recognized reply options")
	fm.Register(FlagRealtimeNotifications, true, "publish enquiry-created events over WebSocket")
	fm.Register(FlagWebhookSignature, false, "require HMAC signature on webhook deliveries")
	return fm
}

// Register adds or replaces a flag definition.
func (fm *FlagManager) Register(name string, enabled bool, description string) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	fm.flags[name] = &Flag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
		UpdatedAt:   time.Now(),
	}
}

// IsEnabled reports whether the named flag is on. Unknown flags are off.
func (fm *FlagManager) IsEnabled(name string) bool {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	flag, ok := fm.flags[name]
	return ok && flag.Enabled
}

// SetEnabled toggles a known flag. Unknown names are ignored.
func (fm *FlagManager) SetEnabled(name string, enabled bool) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if flag, ok := fm.flags[name]; ok {
		flag.Enabled = enabled
		flag.UpdatedAt = time.Now()
	}
}

// All returns a snapshot of every flag, for the diagnostic endpoint.
func (fm *FlagManager) All() map[string]Flag {
	fm.mu.RLock()
	defer fm.mu.RUnlock()
	out := make(map[string]Flag, len(fm.flags))
	for name, flag := range fm.flags {
		out[name] = *flag
	}
	return out
}
