package services

import (
	"fmt"
	"strings"
	"time"

	"wawebhook/models"
)

type EntryKind int

const (
	EntryEmpty EntryKind = iota
	EntryReadReceipt
	EntryUnsupported
	EntryMessage
)

func (k EntryKind) String() string {
	switch k {
	case EntryReadReceipt:
		return "read_receipt"
	case EntryUnsupported:
		return "unsupported"
	case EntryMessage:
		return "message"
	default:
		return "empty"
	}
}

// IncomingMessage is the first message of an entry, flattened.
type IncomingMessage struct {
	Text          string
	UserName      string
	PhoneNumber   string
	PhoneNumberID string
	WaMessageID   string
	Type          string
	Timestamp     time.Time
}

type Classification struct {
	Kind    EntryKind
	Message *IncomingMessage
	// Recipient is the phone whose delivered messages were read (EntryReadReceipt).
	Recipient string
}

// MessageTypes splits provider message types into the ones answered and the
// ones acknowledged and dropped. Anything in neither list is dropped too.
type MessageTypes struct {
	Supported   []string
	Unsupported []string
}

func (t MessageTypes) IsSupported(typ string) bool {
	return containsFold(t.Supported, typ)
}

func (t MessageTypes) IsUnsupported(typ string) bool {
	return containsFold(t.Unsupported, typ)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

// ClassifyEntry looks at changes[0] only; multi-change entries are not iterated.
func ClassifyEntry(entry models.WebhookEntry, types MessageTypes) (Classification, error) {
	if len(entry.Changes) == 0 {
		return Classification{Kind: EntryEmpty}, nil
	}
	value := entry.Changes[0].Value

	if len(value.Messages) == 0 || len(value.Contacts) == 0 {
		if len(value.Statuses) > 0 && value.Statuses[0].Status == models.WA_STATUS_READ {
			return Classification{
				Kind:      EntryReadReceipt,
				Recipient: value.Statuses[0].RecipientID,
			}, nil
		}
		return Classification{Kind: EntryEmpty}, nil
	}

	msg := value.Messages[0]
	var text *string
	if msg.Text != nil {
		text = &msg.Text.Body
	}
	if msg.Button != nil {
		text = &msg.Button.Text
	}

	in := &IncomingMessage{
		UserName:      value.Contacts[0].Profile.Name,
		PhoneNumber:   msg.From,
		PhoneNumberID: value.Metadata.PhoneNumberID,
		WaMessageID:   msg.ID,
		Type:          msg.Type,
		Timestamp:     time.Unix(int64(msg.Timestamp), 0).UTC(),
	}

	if !types.IsSupported(msg.Type) {
		return Classification{Kind: EntryUnsupported, Message: in}, nil
	}

	if text == nil || strings.TrimSpace(*text) == "" {
		return Classification{}, fmt.Errorf("%w: message %s of type %s", ErrMissingText, msg.ID, msg.Type)
	}
	in.Text = *text

	return Classification{Kind: EntryMessage, Message: in}, nil
}
