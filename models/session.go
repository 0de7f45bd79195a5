package models

import "time"

/************************************************
/**** MARK: COMMUNICATION CHANNEL ****/
/************************************************/
const CHANNEL_WHATSAPP = "whatsapp"

// Session is one continuous conversation of a user on a channel.
// At most one non-archived session with end_time > now exists per (user, channel).
type Session struct {
	ID                   int64     `gorm:"column:session_id;primary_key;AUTO_INCREMENT" json:"session_id"`
	UserID               int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	StartTime            time.Time `gorm:"column:start_time" json:"start_time"`
	EndTime              time.Time `gorm:"column:end_time;index" json:"end_time"`
	IsArchived           bool      `gorm:"column:is_archived;not null;default:false" json:"is_archived"`
	CommunicationChannel string    `gorm:"column:communication_channel;size:32" json:"communication_channel"`
}

func (Session) TableName() string { return "sessions" }
