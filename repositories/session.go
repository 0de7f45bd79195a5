package repositories

import (
	"fmt"
	"time"

	"wawebhook/models"

	"github.com/jinzhu/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// GetActiveSession returns the live session of (userID, channel) at now, or nil.
func (r *SessionRepository) GetActiveSession(userID int64, channel string, now time.Time) (*models.Session, error) {
	var session models.Session
	err := r.db.
		Where("user_id = ? AND communication_channel = ? AND is_archived = ? AND end_time > ?",
			userID, channel, false, dbTime(now)).
		Order("end_time desc").
		Order("session_id desc").
		First(&session).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) CreateSession(userID int64, start, end time.Time, channel string) (int64, error) {
	session := models.Session{
		UserID:               userID,
		StartTime:            dbTime(start),
		EndTime:              dbTime(end),
		CommunicationChannel: channel,
	}
	if err := r.db.Create(&session).Error; err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	return session.ID, nil
}

func (r *SessionRepository) ExtendSession(sessionID int64, end time.Time) error {
	err := r.db.Model(&models.Session{}).
		Where("session_id = ?", sessionID).
		Update("end_time", dbTime(end)).Error
	if err != nil {
		return fmt.Errorf("extend session %d: %w", sessionID, err)
	}
	return nil
}

// HasRepliedMessages reports whether the session already produced a bot reply.
func (r *SessionRepository) HasRepliedMessages(sessionID int64) (bool, error) {
	var count int
	err := r.db.Model(&models.Message{}).
		Where("session_id = ? AND bot_message IS NOT NULL", sessionID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count replied messages: %w", err)
	}
	return count > 0, nil
}

// ArchiveUserSessions flips is_archived on every session of the user.
func (r *SessionRepository) ArchiveUserSessions(userID int64, archived bool) (int64, error) {
	res := r.db.Model(&models.Session{}).
		Where("user_id = ?", userID).
		Update("is_archived", archived)
	if res.Error != nil {
		return 0, fmt.Errorf("archive sessions of user %d: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}
