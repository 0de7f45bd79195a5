// Package repositories holds the typed queries over the webhook tables.
// Every call runs one statement (or a short sequence) on the pooled gorm
// handle; nothing holds a transaction across calls.
package repositories

import (
	"time"

	"github.com/jinzhu/gorm"
)

type Repositories struct {
	Users             *UserRepository
	Sessions          *SessionRepository
	Messages          *MessageRepository
	MessageStatuses   *MessageStatusRepository
	MessageProcessing *MessageProcessingRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:             NewUserRepository(db),
		Sessions:          NewSessionRepository(db),
		Messages:          NewMessageRepository(db),
		MessageStatuses:   NewMessageStatusRepository(db),
		MessageProcessing: NewMessageProcessingRepository(db),
	}
}

// dbTime normalizes timestamps before they hit the store: UTC, whole seconds.
// SQLite compares datetimes as text, so every stored value must share one layout.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
