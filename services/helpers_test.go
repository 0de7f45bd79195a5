package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"wawebhook/config"
	"wawebhook/db"
	"wawebhook/logger"
	"wawebhook/models"
	"wawebhook/repositories"
	"wawebhook/tools"

	"github.com/jinzhu/gorm"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

var testTypes = MessageTypes{
	Supported:   []string{"text", "button"},
	Unsupported: []string{"reaction", "image", "document", "audio", "sticker", "video"},
}

func newTestRepos(t *testing.T) (*repositories.Repositories, *gorm.DB) {
	t.Helper()

	gdb, err := db.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	gdb.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { _ = gdb.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repositories.New(gdb), gdb
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestProcessor(repos *repositories.Repositories, messenger Messenger, opts ...ProcessorOption) *Processor {
	conf := config.ProcessingConfig{
		ConcatenationWaitSec: 30,
		SupportedTypes:       testTypes.Supported,
		UnsupportedTypes:     testTypes.Unsupported,
	}
	base := []ProcessorOption{
		WithClock(func() time.Time { return testNow }),
		WithSleep(noSleep),
	}
	return NewProcessor(repos, messenger, nil, conf, logger.NewNop(), append(base, opts...)...)
}

type sentMessage struct {
	PhoneNumber   string
	PhoneNumberID string
	Text          string
}

type fakeMessenger struct {
	mu       sync.Mutex
	failRead map[string]bool
	sendErr  error
	reads    []string
	sent     []sentMessage
}

func (f *fakeMessenger) MarkAsRead(_ context.Context, _ string, waMessageID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads = append(f.reads, waMessageID)
	return !f.failRead[waMessageID]
}

func (f *fakeMessenger) SendMessage(_ context.Context, phoneNumber, phoneNumberID, text string) (*tools.MessageCallback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{PhoneNumber: phoneNumber, PhoneNumberID: phoneNumberID, Text: text})
	return &tools.MessageCallback{MessagingProduct: "whatsapp"}, nil
}

func (f *fakeMessenger) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, s := range f.sent {
		out = append(out, s.Text)
	}
	return out
}

var errBoom = errors.New("boom")

type jsonMap = map[string]any

// messageEntry builds one webhook entry carrying a single message.
func messageEntry(from, waMessageID, typ, text string, ts time.Time) jsonMap {
	msg := jsonMap{
		"from":      from,
		"id":        waMessageID,
		"timestamp": strconv.FormatInt(ts.Unix(), 10),
		"type":      typ,
	}
	switch typ {
	case "text":
		msg["text"] = jsonMap{"body": text}
	case "button":
		msg["button"] = jsonMap{"payload": "p", "text": text}
	}
	return jsonMap{
		"id": "entry-" + waMessageID,
		"changes": []jsonMap{{
			"field": "messages",
			"value": jsonMap{
				"messaging_product": "whatsapp",
				"metadata":          jsonMap{"display_phone_number": "15550000000", "phone_number_id": "pnid-1"},
				"contacts":          []jsonMap{{"wa_id": from, "profile": jsonMap{"name": "Ana"}}},
				"messages":          []jsonMap{msg},
			},
		}},
	}
}

func readEntry(recipient string) jsonMap {
	return jsonMap{
		"id": "entry-status",
		"changes": []jsonMap{{
			"field": "messages",
			"value": jsonMap{
				"messaging_product": "whatsapp",
				"metadata":          jsonMap{"phone_number_id": "pnid-1"},
				"statuses": []jsonMap{{
					"id":           "wamid.status",
					"status":       "read",
					"timestamp":    "1700000000",
					"recipient_id": recipient,
				}},
			},
		}},
	}
}

func decodeUpdate(t *testing.T, entries ...jsonMap) models.WebhookUpdate {
	t.Helper()

	b, err := json.Marshal(jsonMap{"object": "whatsapp_business_account", "entry": entries})
	if err != nil {
		t.Fatalf("marshal update: %v", err)
	}
	var update models.WebhookUpdate
	if err := json.Unmarshal(b, &update); err != nil {
		t.Fatalf("unmarshal update: %v", err)
	}
	return update
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}) int {
	t.Helper()

	var n int
	if err := gdb.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func messageByWaID(t *testing.T, gdb *gorm.DB, waMessageID string) models.Message {
	t.Helper()

	var m models.Message
	if err := gdb.Where("wa_message_id = ?", waMessageID).First(&m).Error; err != nil {
		t.Fatalf("load message %s: %v", waMessageID, err)
	}
	return m
}

func statusOf(t *testing.T, repos *repositories.Repositories, messageID int64) string {
	t.Helper()

	status, err := repos.Messages.GetMessageStatus(messageID)
	if err != nil {
		t.Fatalf("GetMessageStatus() error: %v", err)
	}
	return status
}
