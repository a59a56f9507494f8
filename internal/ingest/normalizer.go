package ingest

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"whatsenquiry/internal/constants"
	"whatsenquiry/internal/errors"
	"whatsenquiry/internal/models"
)

// webhookEnvelope covers every Green API payload shape we have observed
// in production. Providers are inconsistent about where the message text
// and sender info live, so every location is optional and the normalizer
// probes them in a fixed order.
type webhookEnvelope struct {
	TypeWebhook string            `json:"typeWebhook"`
	ChatID      string            `json:"chatId"`
	SenderName  string            `json:"senderName"`
	Text        string            `json:"text"`
	IDMessage   string            `json:"idMessage"`
	Message     *messageBlock     `json:"message"`
	MessageData *messageDataBlock `json:"messageData"`
	SenderData  *senderDataBlock  `json:"senderData"`
}

type messageBlock struct {
	TextMessage textContainer `json:"textMessage"`
	IDMessage   string        `json:"idMessage"`
	ID          string        `json:"id"`
}

type messageDataBlock struct {
	TextMessage     textContainer `json:"textMessage"`
	Text            string        `json:"text"`
	TextMessageData struct {
		TextMessage string `json:"textMessage"`
	} `json:"textMessageData"`
	IDMessage string `json:"idMessage"`
}

type senderDataBlock struct {
	ChatID            string `json:"chatId"`
	SenderName        string `json:"senderName"`
	ChatName          string `json:"chatName"`
	PushName          string `json:"pushName"`
	NotifyName        string `json:"notifyName"`
	SenderContactName string `json:"senderContactName"`
	Sender            string `json:"sender"`
}

// textContainer tolerates both {"textMessage": {"text": "..."}} and
// {"textMessage": "..."} encodings.
type textContainer struct {
	Text string `json:"text"`
}

func (t *textContainer) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		t.Text = plain
		return nil
	}
	type alias textContainer
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		// Unexpected shape (array, number). Treat as no text rather
		// than failing the whole delivery.
		t.Text = ""
		return nil
	}
	t.Text = a.Text
	return nil
}

// Normalize parses a raw webhook body into the canonical InboundMessage.
// A body that is not valid JSON is the only error case; a valid JSON body
// that does not carry message data comes back as a status event, never an
// error, because the webhook must acknowledge everything the provider
// sends.
func Normalize(body []byte) (*models.InboundMessage, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMalformedPayload, "webhook body is not valid JSON")
	}

	msg := normalizeEnvelope(&env)
	msg.Text = truncateText(msg.Text, constants.MaxMessageTextLength)
	return msg, nil
}

// truncateText caps s at max bytes without splitting a UTF-8 rune.
func truncateText(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func normalizeEnvelope(env *webhookEnvelope) *models.InboundMessage {
	switch {
	case env.Message != nil && env.ChatID != "" && env.TypeWebhook == "":
		// Direct message format: everything at the top level.
		return &models.InboundMessage{
			EventType:   models.EventTypeMessage,
			TypeWebhook: models.WebhookTypeIncomingMessage,
			ChatID:      env.ChatID,
			MessageID:   env.Message.IDMessage,
			Text:        env.Message.TextMessage.Text,
			CandidateNames: []models.NameCandidate{
				{Field: "senderName", Value: env.SenderName},
			},
		}

	case env.TypeWebhook == models.WebhookTypeIncomingMessage && env.MessageData != nil:
		text := env.MessageData.TextMessage.Text
		if text == "" {
			text = env.MessageData.Text
		}
		msg := &models.InboundMessage{
			EventType:      eventTypeForText(text),
			TypeWebhook:    env.TypeWebhook,
			MessageID:      env.MessageData.IDMessage,
			Text:           text,
			CandidateNames: incomingNameCandidates(env.SenderData),
		}
		if env.SenderData != nil {
			msg.ChatID = env.SenderData.ChatID
		}
		return msg

	case env.TypeWebhook == models.WebhookTypeIncomingMessage && env.Message != nil:
		messageID := env.Message.IDMessage
		if messageID == "" {
			messageID = env.Message.ID
		}
		msg := &models.InboundMessage{
			EventType:      eventTypeForText(env.Message.TextMessage.Text),
			TypeWebhook:    env.TypeWebhook,
			MessageID:      messageID,
			Text:           env.Message.TextMessage.Text,
			CandidateNames: incomingNameCandidates(env.SenderData),
		}
		if env.SenderData != nil {
			msg.ChatID = env.SenderData.ChatID
		}
		return msg

	case env.TypeWebhook == models.WebhookTypeIncomingMessage && env.Text != "":
		// Flattened format: text and id at the top level.
		msg := &models.InboundMessage{
			EventType:      models.EventTypeMessage,
			TypeWebhook:    env.TypeWebhook,
			MessageID:      env.IDMessage,
			Text:           env.Text,
			CandidateNames: incomingNameCandidates(env.SenderData),
		}
		if env.SenderData != nil {
			msg.ChatID = env.SenderData.ChatID
		}
		return msg

	case env.TypeWebhook == models.WebhookTypeOutgoingMessage && env.MessageData != nil:
		// Self-message: text is nested under textMessageData and the
		// message id sits at the envelope level.
		msg := &models.InboundMessage{
			EventType:      eventTypeForText(env.MessageData.TextMessageData.TextMessage),
			TypeWebhook:    env.TypeWebhook,
			MessageID:      env.IDMessage,
			Text:           env.MessageData.TextMessageData.TextMessage,
			CandidateNames: outgoingNameCandidates(env.SenderData),
		}
		if env.SenderData != nil {
			msg.ChatID = env.SenderData.ChatID
		}
		return msg

	default:
		// State changes, delivery receipts, unrecognized shapes.
		return &models.InboundMessage{
			EventType:   models.EventTypeStatus,
			TypeWebhook: env.TypeWebhook,
		}
	}
}

func eventTypeForText(text string) models.ProviderEventType {
	if text == "" {
		return models.EventTypeStatus
	}
	return models.EventTypeMessage
}

func incomingNameCandidates(sd *senderDataBlock) []models.NameCandidate {
	if sd == nil {
		return nil
	}
	return []models.NameCandidate{
		{Field: "senderName", Value: sd.SenderName},
		{Field: "chatName", Value: sd.ChatName},
		{Field: "pushName", Value: sd.PushName},
		{Field: "notifyName", Value: sd.NotifyName},
	}
}

func outgoingNameCandidates(sd *senderDataBlock) []models.NameCandidate {
	if sd == nil {
		return nil
	}
	return []models.NameCandidate{
		{Field: "senderName", Value: sd.SenderName},
		{Field: "chatName", Value: sd.ChatName},
		{Field: "senderContactName", Value: sd.SenderContactName},
		{Field: "sender", Value: strings.TrimSuffix(sd.Sender, "@c.us")},
	}
}
