package services

import (
	"context"
	"errors"

	"wawebhook/logger"
	"wawebhook/repositories"
	"wawebhook/tools"
)

var ErrUserNotFound = errors.New("user not found")

// CacheForgetter is the slice of the delivered cache archive needs.
type CacheForgetter interface {
	Forget(ctx context.Context, waMessageIDs ...string) error
}

type ArchiveService struct {
	repos *repositories.Repositories
	cache CacheForgetter
	log   *logger.Logger
}

// NewArchiveService builds the admin archive service; cache may be nil.
func NewArchiveService(repos *repositories.Repositories, cache CacheForgetter, log *logger.Logger) *ArchiveService {
	return &ArchiveService{repos: repos, cache: cache, log: log.With("component", "ArchiveService")}
}

// ArchiveUserSessions archives every session of every user with that phone
// number, on any business number. Returns the number of archived sessions.
func (s *ArchiveService) ArchiveUserSessions(ctx context.Context, phoneNumber string) (int64, error) {
	phone, err := tools.NormalizePhone(phoneNumber)
	if err != nil {
		return 0, err
	}

	userIDs, err := s.repos.Users.GetUserIDsByPhoneNumber(phone)
	if err != nil {
		return 0, err
	}
	if len(userIDs) == 0 {
		return 0, ErrUserNotFound
	}

	var total int64
	for _, userID := range userIDs {
		n, err := s.repos.Sessions.ArchiveUserSessions(userID, true)
		if err != nil {
			return total, err
		}
		total += n
		s.forget(ctx, userID)
	}
	s.log.Info("User sessions archived", "phone_number", phone, "users", len(userIDs), "sessions", total)
	return total, nil
}

func (s *ArchiveService) forget(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	ids, err := s.repos.Messages.GetUserWaMessageIDs(userID)
	if err != nil {
		s.log.Warn("Failed to list messages to forget", "user_id", userID, "error", err)
		return
	}
	if err := s.cache.Forget(ctx, ids...); err != nil {
		s.log.Warn("Failed to forget delivered messages", "user_id", userID, "error", err)
	}
}
