package repositories

import (
	"fmt"
	"strings"

	"wawebhook/models"

	"github.com/jinzhu/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserID returns the id of the user identified by (phone, phoneNumberID),
// creating it on first sight. A concurrent insert of the same pair loses on the
// unique index and falls back to reading the winner's row.
func (r *UserRepository) GetUserID(userName, phoneNumber, phoneNumberID string) (int64, bool, error) {
	user, err := r.FindUser(phoneNumber, phoneNumberID)
	if err != nil {
		return 0, false, err
	}
	if user != nil {
		if user.UserName == nil && strings.TrimSpace(userName) != "" {
			if err := r.db.Model(&models.User{}).
				Where("user_id = ?", user.ID).
				Update("user_name", userName).Error; err != nil {
				return 0, false, fmt.Errorf("update user name: %w", err)
			}
		}
		return user.ID, false, nil
	}

	id, createErr := r.CreateUser(userName, phoneNumber, phoneNumberID)
	if createErr == nil {
		return id, true, nil
	}

	user, err = r.FindUser(phoneNumber, phoneNumberID)
	if err != nil {
		return 0, false, err
	}
	if user == nil {
		return 0, false, createErr
	}
	return user.ID, false, nil
}

// FindUser returns nil when the pair is unknown.
func (r *UserRepository) FindUser(phoneNumber, phoneNumberID string) (*models.User, error) {
	var user models.User
	err := r.db.
		Where("phone_number = ? AND phone_number_id = ?", phoneNumber, phoneNumberID).
		First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) CreateUser(userName, phoneNumber, phoneNumberID string) (int64, error) {
	user := models.User{
		PhoneNumber:   phoneNumber,
		PhoneNumberID: phoneNumberID,
	}
	if name := strings.TrimSpace(userName); name != "" {
		user.UserName = &name
	}
	if err := r.db.Create(&user).Error; err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return user.ID, nil
}

// GetUserIDsByPhoneNumber lists every user with that phone, across business numbers.
func (r *UserRepository) GetUserIDsByPhoneNumber(phoneNumber string) ([]int64, error) {
	var ids []int64
	err := r.db.Model(&models.User{}).
		Where("phone_number = ?", phoneNumber).
		Order("user_id asc").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list users by phone: %w", err)
	}
	return ids, nil
}

func (r *UserRepository) GetPhoneNumberID(userID int64) (string, error) {
	var user models.User
	err := r.db.Where("user_id = ?", userID).First(&user).Error
	if gorm.IsRecordNotFoundError(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get phone_number_id: %w", err)
	}
	return user.PhoneNumberID, nil
}
