package ingest

import (
	"testing"

	"whatsenquiry/internal/errors"
	"whatsenquiry/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMobileFromChatID(t *testing.T) {
	tests := []struct {
		name   string
		chatID string
		want   string
	}{
		{"standard chat id", "918106811285@c.us", "918106811285"},
		{"no suffix", "918106811285", "918106811285"},
		{"plus prefix dropped", "+918106811285@c.us", "918106811285"},
		{"mixed characters", "91-810 681(1285)@c.us", "918106811285"},
		{"empty", "", ""},
		{"no digits", "abc@c.us", ""},
		{"only suffix", "@c.us", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MobileFromChatID(tt.chatID))
		})
	}
}

func TestResolveIdentityNamePriority(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.NameCandidate
		wantName   string
		wantRaw    string
	}{
		{
			name: "first candidate wins",
			candidates: []models.NameCandidate{
				{Field: "senderName", Value: "John Doe"},
				{Field: "chatName", Value: "Chat"},
			},
			wantName: "John Doe",
			wantRaw:  "John Doe",
		},
		{
			name: "skips empty candidates",
			candidates: []models.NameCandidate{
				{Field: "senderName", Value: ""},
				{Field: "chatName", Value: "  "},
				{Field: "pushName", Value: "JD"},
			},
			wantName: "JD",
			wantRaw:  "JD",
		},
		{
			name: "literal null is absent",
			candidates: []models.NameCandidate{
				{Field: "senderName", Value: "null"},
				{Field: "chatName", Value: "Jane"},
			},
			wantName: "Jane",
			wantRaw:  "Jane",
		},
		{
			name: "trims whitespace",
			candidates: []models.NameCandidate{
				{Field: "senderName", Value: "  John  "},
			},
			wantName: "John",
			wantRaw:  "John",
		},
		{
			name:       "falls back to number label",
			candidates: nil,
			wantName:   "WhatsApp User 918106811285",
			wantRaw:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ResolveIdentity(&models.InboundMessage{
				ChatID:         "918106811285@c.us",
				CandidateNames: tt.candidates,
			})
			require.NoError(t, err)
			assert.Equal(t, "918106811285", id.MobileNumber)
			assert.Equal(t, tt.wantName, id.DisplayName)
			assert.Equal(t, tt.wantRaw, id.RawSenderName)
		})
	}
}

func TestResolveIdentityUnresolvable(t *testing.T) {
	tests := []struct {
		name   string
		chatID string
	}{
		{"empty chat id", ""},
		{"no digits", "group-chat@g.us"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveIdentity(&models.InboundMessage{ChatID: tt.chatID})
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeUnresolvableIdentity))
		})
	}
}
