package repositories

import (
	"fmt"
	"time"

	"wawebhook/models"

	"github.com/jinzhu/gorm"
)

type MessageStatusRepository struct {
	db *gorm.DB
}

func NewMessageStatusRepository(db *gorm.DB) *MessageStatusRepository {
	return &MessageStatusRepository{db: db}
}

// GetMessageStatusID returns the status row of the message, creating it with
// status when missing. An existing row keeps its current status.
func (r *MessageStatusRepository) GetMessageStatusID(messageID int64, status string, ts time.Time) (int64, error) {
	id, found, err := r.FindStatusID(messageID)
	if err != nil {
		return 0, err
	}
	if found {
		return id, nil
	}
	return r.CreateMessageStatus(messageID, status, ts)
}

func (r *MessageStatusRepository) FindStatusID(messageID int64) (int64, bool, error) {
	var status models.MessageStatus
	err := r.db.Where("message_id = ?", messageID).Order("status_id asc").First(&status).Error
	if gorm.IsRecordNotFoundError(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find status of message %d: %w", messageID, err)
	}
	return status.ID, true, nil
}

func (r *MessageStatusRepository) CreateMessageStatus(messageID int64, status string, ts time.Time) (int64, error) {
	row := models.MessageStatus{
		MessageID: messageID,
		Status:    status,
		Timestamp: dbTime(ts),
	}
	if err := r.db.Create(&row).Error; err != nil {
		return 0, fmt.Errorf("create status of message %d: %w", messageID, err)
	}
	return row.ID, nil
}

func (r *MessageStatusRepository) UpdateMessageStatus(statusID int64, status string) error {
	err := r.db.Model(&models.MessageStatus{}).
		Where("status_id = ?", statusID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("update status %d to %s: %w", statusID, status, err)
	}
	return nil
}
