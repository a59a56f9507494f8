package ingest

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/errors"
	"whatsenquiry/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDirectMessageFormat(t *testing.T) {
	body := `{
		"chatId": "918106811285@c.us",
		"senderName": "John Doe",
		"message": {
			"textMessage": {"text": "Hi I am interested!"},
			"idMessage": "m1"
		}
	}`

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.True(t, msg.IsMessage())
	assert.Equal(t, "918106811285@c.us", msg.ChatID)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, "Hi I am interested!", msg.Text)
	require.Len(t, msg.CandidateNames, 1)
	assert.Equal(t, "John Doe", msg.CandidateNames[0].Value)
}

func TestNormalizeIncomingMessageData(t *testing.T) {
	body := `{
		"typeWebhook": "incomingMessageReceived",
		"messageData": {
			"textMessage": {"text": "Hi I am interested!"},
			"idMessage": "m1"
		},
		"senderData": {
			"chatId": "918106811285@c.us",
			"senderName": "John Doe",
			"pushName": "JD"
		}
	}`

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)

	assert.True(t, msg.IsMessage())
	assert.Equal(t, models.WebhookTypeIncomingMessage, msg.TypeWebhook)
	assert.Equal(t, "918106811285@c.us", msg.ChatID)
	assert.Equal(t, "m1", msg.MessageID)
	assert.Equal(t, "Hi I am interested!", msg.Text)

	require.Len(t, msg.CandidateNames, 4)
	assert.Equal(t, "senderName", msg.CandidateNames[0].Field)
	assert.Equal(t, "John Doe", msg.CandidateNames[0].Value)
	assert.Equal(t, "pushName", msg.CandidateNames[2].Field)
	assert.Equal(t, "JD", msg.CandidateNames[2].Value)
}

func TestNormalizeIncomingMessageDataDirectText(t *testing.T) {
	body := `{
		"typeWebhook": "incomingMessageReceived",
		"messageData": {
			"text": "interested",
			"idMessage": "m2"
		},
		"senderData": {"chatId": "15551234567@c.us"}
	}`

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)

	assert.True(t, msg.IsMessage())
	assert.Equal(t, "interested", msg.Text)
	assert.Equal(t, "m2", msg.MessageID)
}

func TestNormalizeIncomingDirectMessageBlock(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantMessageID string
	}{
		{
			name: "idMessage field",
			body: `{
				"typeWebhook": "incomingMessageReceived",
				"message": {"textMessage": {"text": "interested"}, "idMessage": "m3"},
				"senderData": {"chatId": "15551234567@c.us", "chatName": "Jane"}
			}`,
			wantMessageID: "m3",
		},
		{
			name: "id fallback field",
			body: `{
				"typeWebhook": "incomingMessageReceived",
				"message": {"textMessage": {"text": "interested"}, "id": "m4"},
				"senderData": {"chatId": "15551234567@c.us"}
			}`,
			wantMessageID: "m4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Normalize([]byte(tt.body))
			require.NoError(t, err)
			assert.True(t, msg.IsMessage())
			assert.Equal(t, tt.wantMessageID, msg.MessageID)
			assert.Equal(t, "15551234567@c.us", msg.ChatID)
		})
	}
}

func TestNormalizeFlattenedTextFormat(t *testing.T) {
	body := `{
		"typeWebhook": "incomingMessageReceived",
		"text": "I'm interested",
		"idMessage": "m5",
		"senderData": {"chatId": "15551234567@c.us", "notifyName": "NN"}
	}`

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)

	assert.True(t, msg.IsMessage())
	assert.Equal(t, "I'm interested", msg.Text)
	assert.Equal(t, "m5", msg.MessageID)
}

func TestNormalizeOutgoingSelfMessage(t *testing.T) {
	body := `{
		"typeWebhook": "outgoingMessageReceived",
		"idMessage": "m6",
		"messageData": {
			"textMessageData": {"textMessage": "interested in loan"}
		},
		"senderData": {
			"chatId": "918106811285@c.us",
			"sender": "918106811285@c.us"
		}
	}`

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)

	assert.True(t, msg.IsMessage())
	assert.Equal(t, models.WebhookTypeOutgoingMessage, msg.TypeWebhook)
	assert.Equal(t, "m6", msg.MessageID)
	assert.Equal(t, "interested in loan", msg.Text)

	// The sender candidate has the @c.us suffix stripped so it can act
	// as a last-resort display name.
	require.Len(t, msg.CandidateNames, 4)
	assert.Equal(t, "sender", msg.CandidateNames[3].Field)
	assert.Equal(t, "918106811285", msg.CandidateNames[3].Value)
}

func TestNormalizeStatusEvents(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"state change", `{"typeWebhook": "stateInstanceChanged", "stateInstance": "authorized"}`},
		{"outgoing status", `{"typeWebhook": "outgoingMessageStatus", "status": "delivered"}`},
		{"empty object", `{}`},
		{"message data without text", `{
			"typeWebhook": "incomingMessageReceived",
			"messageData": {"idMessage": "m7"},
			"senderData": {"chatId": "15551234567@c.us"}
		}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Normalize([]byte(tt.body))
			require.NoError(t, err)
			assert.False(t, msg.IsMessage())
			assert.Equal(t, models.EventTypeStatus, msg.EventType)
		})
	}
}

func TestNormalizeInvalidJSON(t *testing.T) {
	msg, err := Normalize([]byte("not json"))
	assert.Nil(t, msg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedPayload))
}

func TestNormalizeTruncatesLongTextOnRuneBoundary(t *testing.T) {
	// 3-byte runes so the byte cap lands mid-rune.
	long := strings.Repeat("日", 2000)
	body := fmt.Sprintf(`{
		"typeWebhook": "incomingMessageReceived",
		"messageData": {"textMessage": {"text": %q}, "idMessage": "m9"},
		"senderData": {"chatId": "918106811285@c.us"}
	}`, long)

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)
	require.NotNil(t, msg)

	assert.LessOrEqual(t, len(msg.Text), constants.MaxMessageTextLength)
	assert.True(t, utf8.ValidString(msg.Text))
	assert.Equal(t, strings.Repeat("日", constants.MaxMessageTextLength/3), msg.Text)
}

func TestNormalizeToleratesStringTextMessage(t *testing.T) {
	// Some payloads encode textMessage as a bare string instead of an
	// object.
	body := `{
		"typeWebhook": "incomingMessageReceived",
		"messageData": {"textMessage": "interested", "idMessage": "m8"},
		"senderData": {"chatId": "15551234567@c.us"}
	}`

	msg, err := Normalize([]byte(body))
	require.NoError(t, err)
	assert.True(t, msg.IsMessage())
	assert.Equal(t, "interested", msg.Text)
}
