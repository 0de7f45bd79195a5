package repositories

import (
	"fmt"
	"time"

	"wawebhook/models"

	"github.com/jinzhu/gorm"
)

// DialogTurn is one answered exchange of a session, oldest first.
type DialogTurn struct {
	UserMessage string
	BotMessage  *string
}

// DeliveredMessage is a message waiting for the user's read receipt.
type DeliveredMessage struct {
	MessageID int64
	StatusID  int64
	UserID    int64
}

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// GetMessage finds a message by provider id among non-archived sessions.
// Returns nil when there is none.
func (r *MessageRepository) GetMessage(waMessageID string) (*models.Message, error) {
	var message models.Message
	err := r.db.
		Select("messages.*").
		Joins("JOIN sessions ON sessions.session_id = messages.session_id").
		Where("messages.wa_message_id = ? AND sessions.is_archived = ?", waMessageID, false).
		First(&message).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", waMessageID, err)
	}
	return &message, nil
}

// GetMessageStatus returns "" when the message has no status row yet.
func (r *MessageRepository) GetMessageStatus(messageID int64) (string, error) {
	var status models.MessageStatus
	err := r.db.Where("message_id = ?", messageID).Order("status_id asc").First(&status).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get status of message %d: %w", messageID, err)
	}
	return status.Status, nil
}

func (r *MessageRepository) CreateMessage(sessionID int64, received time.Time, text, waMessageID string) (int64, error) {
	message := models.Message{
		SessionID:         sessionID,
		ReceivedTimestamp: dbTime(received),
		UserMessage:       text,
		WaMessageID:       waMessageID,
	}
	if err := r.db.Create(&message).Error; err != nil {
		return 0, fmt.Errorf("create message: %w", err)
	}
	return message.ID, nil
}

// GetMessageHistory lists the finished turns of a session in arrival order.
func (r *MessageRepository) GetMessageHistory(sessionID int64) ([]DialogTurn, error) {
	var turns []DialogTurn
	err := r.db.Table("messages m").
		Select("m.user_message, m.bot_message").
		Joins("JOIN message_statuses ms ON ms.message_id = m.message_id").
		Where("m.session_id = ? AND ms.status IN (?)", sessionID, []string{
			models.MESSAGE_STATUS_DELIVERED,
			models.MESSAGE_STATUS_OPENED,
			models.MESSAGE_STATUS_CONCATENATED,
		}).
		Order("m.received_timestamp asc").
		Order("m.message_id asc").
		Scan(&turns).Error
	if err != nil {
		return nil, fmt.Errorf("get history of session %d: %w", sessionID, err)
	}
	return turns, nil
}

// GetUserDeliveredMessages lists delivered messages of every user with that phone.
func (r *MessageRepository) GetUserDeliveredMessages(phoneNumber string) ([]DeliveredMessage, error) {
	var rows []DeliveredMessage
	err := r.db.Table("message_statuses ms").
		Select("ms.message_id, ms.status_id, u.user_id").
		Joins("JOIN messages m ON m.message_id = ms.message_id").
		Joins("JOIN sessions s ON s.session_id = m.session_id").
		Joins("JOIN users u ON u.user_id = s.user_id").
		Where("u.phone_number = ? AND ms.status = ?", phoneNumber, models.MESSAGE_STATUS_DELIVERED).
		Order("ms.message_id asc").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("get delivered messages of %s: %w", phoneNumber, err)
	}
	return rows, nil
}

// GetUserWaMessageIDs lists the provider ids of every message the user sent.
func (r *MessageRepository) GetUserWaMessageIDs(userID int64) ([]string, error) {
	var ids []string
	err := r.db.Table("messages m").
		Joins("JOIN sessions s ON s.session_id = m.session_id").
		Where("s.user_id = ?", userID).
		Order("m.message_id asc").
		Pluck("m.wa_message_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("get provider ids of user %d: %w", userID, err)
	}
	return ids, nil
}

func (r *MessageRepository) SetRepliedTimestamp(messageID int64, replied time.Time) error {
	return r.update(messageID, "replied_timestamp", dbTime(replied))
}

func (r *MessageRepository) SetBotMessage(messageID int64, text string) error {
	return r.update(messageID, "bot_message", text)
}

func (r *MessageRepository) SetConcatenatedMessageID(messageID, targetID int64) error {
	return r.update(messageID, "concatenated_message_id", targetID)
}

func (r *MessageRepository) update(messageID int64, column string, value interface{}) error {
	err := r.db.Model(&models.Message{}).
		Where("message_id = ?", messageID).
		Update(column, value).Error
	if err != nil {
		return fmt.Errorf("set %s on message %d: %w", column, messageID, err)
	}
	return nil
}
