package privacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		expected string
	}{
		{"empty", "", ""},
		{"standard number", "918106811285", "********1285"},
		{"with plus prefix", "+918106811285", "+********1285"},
		{"short number", "123", "***"},
		{"exactly keep length", "1234", "****"},
		{"short with plus", "+123", "+***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPhoneNumber(tt.phone))
		})
	}
}

func TestMaskChatID(t *testing.T) {
	tests := []struct {
		name     string
		chatID   string
		expected string
	}{
		{"empty", "", ""},
		{"whatsapp chat id", "918106811285@c.us", "********1285@c.us"},
		{"group chat id", "918106811285@g.us", "********1285@g.us"},
		{"bare number", "918106811285", "********1285"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskChatID(tt.chatID))
		})
	}
}

func TestMaskMessageID(t *testing.T) {
	assert.Equal(t, "", MaskMessageID(""))
	assert.Equal(t, "**", MaskMessageID("m1"))
	assert.Equal(t, "********34567890", MaskMessageID("ABCDEF1234567890"))
}

func TestMaskSensitiveFields(t *testing.T) {
	fields := map[string]interface{}{
		"mobile_number": "918106811285",
		"chat_id":       "918106811285@c.us",
		"message_id":    "ABCDEF1234567890",
		"enquiry_id":    int64(7),
		"outcome":       "created",
	}

	masked := MaskSensitiveFields(fields)
	assert.Equal(t, "********1285", masked["mobile_number"])
	assert.Equal(t, "********1285@c.us", masked["chat_id"])
	assert.Equal(t, "********34567890", masked["message_id"])
	assert.Equal(t, int64(7), masked["enquiry_id"])
	assert.Equal(t, "created", masked["outcome"])

	// Original map is untouched.
	assert.Equal(t, "918106811285", fields["mobile_number"])

	assert.Nil(t, MaskSensitiveFields(nil))
}

func TestMaskSensitiveFieldsNonStringValues(t *testing.T) {
	fields := map[string]interface{}{
		"mobile_number": 918106811285,
	}
	masked := MaskSensitiveFields(fields)
	assert.Equal(t, 918106811285, masked["mobile_number"])
}
