package privacy

import (
	"strings"

	"whatsenquiry/internal/constants"
)

// MaskPhoneNumber masks a phone number showing only the last 4 digits
// Example: "918106811285" -> "********1285"
func MaskPhoneNumber(phone string) string {
	if phone == "" {
		return ""
	}

	keep := constants.DefaultPhoneMaskLength
	if strings.HasPrefix(phone, "+") {
		if len(phone) <= keep+1 {
			return "+" + strings.Repeat("*", len(phone)-1)
		}
		return "+" + strings.Repeat("*", len(phone)-1-keep) + phone[len(phone)-keep:]
	}

	if len(phone) <= keep {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-keep) + phone[len(phone)-keep:]
}

// MaskChatID masks a chat ID to show structure but hide sensitive parts
// Example: "918106811285@c.us" -> "********1285@c.us"
func MaskChatID(chatID string) string {
	if chatID == "" {
		return ""
	}

	if idx := strings.Index(chatID, "@"); idx >= 0 {
		return MaskPhoneNumber(chatID[:idx]) + chatID[idx:]
	}

	return MaskPhoneNumber(chatID)
}

// MaskMessageID masks a provider message id, keeping a short suffix for
// log correlation.
func MaskMessageID(messageID string) string {
	if messageID == "" {
		return ""
	}

	keep := constants.DefaultMessageIDLength
	if len(messageID) <= keep {
		return strings.Repeat("*", len(messageID))
	}
	return strings.Repeat("*", len(messageID)-keep) + messageID[len(messageID)-keep:]
}

// MaskSensitiveFields masks known sensitive keys in a log field map
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "mobile_number", "phone", "phone_number":
			if s, ok := v.(string); ok {
				masked[k] = MaskPhoneNumber(s)
			} else {
				masked[k] = v
			}
		case "chat_id", "chatId":
			if s, ok := v.(string); ok {
				masked[k] = MaskChatID(s)
			} else {
				masked[k] = v
			}
		case "message_id", "messageId":
			if s, ok := v.(string); ok {
				masked[k] = MaskMessageID(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}
	return masked
}
