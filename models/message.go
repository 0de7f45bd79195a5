package models

import "time"

// Message is one inbound user message and, once answered, the bot reply.
// ConcatenatedMessageID points to the message this one was folded into.
type Message struct {
	ID                    int64      `gorm:"column:message_id;primary_key;AUTO_INCREMENT" json:"message_id"`
	SessionID             int64      `gorm:"column:session_id;not null;index" json:"session_id"`
	ReceivedTimestamp     time.Time  `gorm:"column:received_timestamp;not null" json:"received_timestamp"`
	RepliedTimestamp      *time.Time `gorm:"column:replied_timestamp" json:"replied_timestamp"`
	UserMessage           string     `gorm:"column:user_message;size:4096" json:"user_message"`
	BotMessage            *string    `gorm:"column:bot_message;size:4096" json:"bot_message"`
	WaMessageID           string     `gorm:"column:wa_message_id;size:256;index" json:"wa_message_id"`
	ConcatenatedMessageID *int64     `gorm:"column:concatenated_message_id" json:"concatenated_message_id"`
}

func (Message) TableName() string { return "messages" }
