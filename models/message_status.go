package models

import "time"

/************************************************
/**** MARK: MESSAGE STATUS ****/
/************************************************/
const MESSAGE_STATUS_PROCESSING = "processing"
const MESSAGE_STATUS_READ = "read"
const MESSAGE_STATUS_DELIVERED = "delivered"
const MESSAGE_STATUS_CONCATENATED = "concatenated"
const MESSAGE_STATUS_OPENED = "opened"
const MESSAGE_STATUS_FAILED_TO_SEND = "failed_to_send"

// MessageStatus is mutated in place; there is one row per message.
type MessageStatus struct {
	ID        int64     `gorm:"column:status_id;primary_key;AUTO_INCREMENT" json:"status_id"`
	MessageID int64     `gorm:"column:message_id;not null;index" json:"message_id"`
	Status    string    `gorm:"column:status;size:32;not null" json:"status"`
	Timestamp time.Time `gorm:"column:timestamp" json:"timestamp"`
}

func (MessageStatus) TableName() string { return "message_statuses" }
