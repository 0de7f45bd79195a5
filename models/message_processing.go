package models

// MessageProcessing marks a message as in flight. Rows are deleted as soon as
// the message is answered, failed or folded into a later message.
type MessageProcessing struct {
	ID        int64 `gorm:"column:message_processing_id;primary_key;AUTO_INCREMENT" json:"message_processing_id"`
	SessionID int64 `gorm:"column:session_id;not null;index" json:"session_id"`
	MessageID int64 `gorm:"column:message_id;not null;index" json:"message_id"`
}

func (MessageProcessing) TableName() string { return "message_processing" }
