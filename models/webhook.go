package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

/************************************************
/**** MARK: WHATSAPP MESSAGE TYPES ****/
/************************************************/
const WA_MESSAGE_TYPE_TEXT = "text"
const WA_MESSAGE_TYPE_BUTTON = "button"
const WA_MESSAGE_TYPE_REACTION = "reaction"
const WA_MESSAGE_TYPE_IMAGE = "image"
const WA_MESSAGE_TYPE_DOCUMENT = "document"
const WA_MESSAGE_TYPE_AUDIO = "audio"
const WA_MESSAGE_TYPE_STICKER = "sticker"
const WA_MESSAGE_TYPE_VIDEO = "video"

const WA_STATUS_READ = "read"

// WebhookUpdate is the body WhatsApp Cloud API posts to the webhook.
type WebhookUpdate struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []WebhookStatus  `json:"statuses"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	From      string        `json:"from"`
	ID        string        `json:"id"`
	Timestamp UnixTimestamp `json:"timestamp"`
	Type      string        `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Button *struct {
		Payload string `json:"payload"`
		Text    string `json:"text"`
	} `json:"button,omitempty"`
}

type WebhookStatus struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	Timestamp   UnixTimestamp `json:"timestamp"`
	RecipientID string        `json:"recipient_id"`
}

// UnixTimestamp accepts both "1700000000" and 1700000000; WhatsApp sends strings.
type UnixTimestamp int64

func (t *UnixTimestamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "" || raw == "null" {
		*t = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*t = 0
			return nil
		}
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid unix timestamp %q", raw)
	}
	*t = UnixTimestamp(v)
	return nil
}

func (t UnixTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(t), 10))
}
