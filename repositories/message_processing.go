package repositories

import (
	"fmt"
	"time"

	"wawebhook/models"

	"github.com/jinzhu/gorm"
)

// ProcessingMessage is a message currently in flight for a session.
type ProcessingMessage struct {
	MessageID             int64
	UserMessage           string
	ReceivedTimestamp     time.Time
	ConcatenatedMessageID *int64
}

type MessageProcessingRepository struct {
	db *gorm.DB
}

func NewMessageProcessingRepository(db *gorm.DB) *MessageProcessingRepository {
	return &MessageProcessingRepository{db: db}
}

func (r *MessageProcessingRepository) IsMessageProcessing(messageID int64) (bool, error) {
	var count int
	err := r.db.Model(&models.MessageProcessing{}).
		Where("message_id = ?", messageID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check processing of message %d: %w", messageID, err)
	}
	return count > 0, nil
}

// GetProcessingMessages lists in-flight messages of a non-archived session,
// ordered by received_timestamp then message_id so the last element is the
// same for every reader.
func (r *MessageProcessingRepository) GetProcessingMessages(sessionID int64) ([]ProcessingMessage, error) {
	var messages []models.Message
	err := r.db.
		Select("messages.*").
		Joins("JOIN message_processing mp ON mp.message_id = messages.message_id").
		Joins("JOIN sessions s ON s.session_id = mp.session_id").
		Where("mp.session_id = ? AND s.is_archived = ?", sessionID, false).
		Order("messages.received_timestamp asc").
		Order("messages.message_id asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("get processing messages of session %d: %w", sessionID, err)
	}

	// a retried batch may have inserted the same message twice
	seen := make(map[int64]bool, len(messages))
	out := make([]ProcessingMessage, 0, len(messages))
	for _, m := range messages {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, ProcessingMessage{
			MessageID:             m.ID,
			UserMessage:           m.UserMessage,
			ReceivedTimestamp:     m.ReceivedTimestamp,
			ConcatenatedMessageID: m.ConcatenatedMessageID,
		})
	}
	return out, nil
}

func (r *MessageProcessingRepository) CreateProcessingMessage(messageID, sessionID int64) error {
	row := models.MessageProcessing{
		SessionID: sessionID,
		MessageID: messageID,
	}
	if err := r.db.Create(&row).Error; err != nil {
		return fmt.Errorf("create processing row of message %d: %w", messageID, err)
	}
	return nil
}

func (r *MessageProcessingRepository) DeleteProcessingMessage(messageID int64) error {
	err := r.db.Where("message_id = ?", messageID).Delete(&models.MessageProcessing{}).Error
	if err != nil {
		return fmt.Errorf("delete processing row of message %d: %w", messageID, err)
	}
	return nil
}
