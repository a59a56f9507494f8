package ingest

import (
	"strings"

	"whatsenquiry/internal/errors"
	"whatsenquiry/internal/models"
)

// Identity is the resolved sender of an inbound message.
type Identity struct {
	// MobileNumber is the digits-only number extracted from the chat id.
	MobileNumber string
	// DisplayName is the name shown in the enquiry list. Falls back to a
	// number-derived label when the provider sends no usable name.
	DisplayName string
	// RawSenderName is the name exactly as the provider sent it, empty
	// when no candidate was usable. Kept for provenance.
	RawSenderName string
}

// ResolveIdentity derives the sender identity from a normalized message.
// The mobile number comes from the chat id with everything from the @
// stripped and non-digits dropped; an empty result means the message
// cannot be attributed to anyone and is rejected.
func ResolveIdentity(msg *models.InboundMessage) (Identity, error) {
	mobile := MobileFromChatID(msg.ChatID)
	if mobile == "" {
		return Identity{}, errors.New(errors.ErrCodeUnresolvableIdentity, "no mobile number could be derived from chat id").
			WithContext("chat_id", msg.ChatID)
	}

	raw := firstUsableName(msg.CandidateNames)
	display := raw
	if display == "" {
		// Free-tier provider plans omit sender names entirely.
		display = "WhatsApp User " + mobile
	}

	return Identity{
		MobileNumber:  mobile,
		DisplayName:   display,
		RawSenderName: raw,
	}, nil
}

// MobileFromChatID extracts the digits-only mobile number from a chat id
// such as "918106811285@c.us". Returns "" when no digits remain.
func MobileFromChatID(chatID string) string {
	number := chatID
	if idx := strings.Index(number, "@"); idx >= 0 {
		number = number[:idx]
	}

	var b strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// firstUsableName walks the candidates in priority order and returns the
// first one that is non-empty after trimming. The literal string "null"
// is treated as absent; some provider plans send it instead of omitting
// the field.
func firstUsableName(candidates []models.NameCandidate) string {
	for _, c := range candidates {
		name := strings.TrimSpace(c.Value)
		if name != "" && name != "null" {
			return name
		}
	}
	return ""
}
