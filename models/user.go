package models

// User is the WhatsApp contact talking to the bot.
// Identity key is (phone_number, phone_number_id); rows are never deleted.
type User struct {
	ID            int64   `gorm:"column:user_id;primary_key;AUTO_INCREMENT" json:"user_id"`
	UserName      *string `gorm:"column:user_name;size:256" json:"user_name"`
	PhoneNumber   string  `gorm:"column:phone_number;size:64;not null;unique_index:idx_user_phone" json:"phone_number"`
	PhoneNumberID string  `gorm:"column:phone_number_id;size:128;not null;unique_index:idx_user_phone" json:"phone_number_id"`
}

func (User) TableName() string { return "users" }
