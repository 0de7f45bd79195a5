package services

import (
	"time"

	"wawebhook/repositories"
)

// SessionWindow is the rolling inactivity window of a (user, channel) conversation.
const SessionWindow = 24 * time.Hour

type SessionInfo struct {
	SessionID    int64
	IsNewSession bool
}

type SessionResolver struct {
	sessions *repositories.SessionRepository
	now      func() time.Time
}

func NewSessionResolver(sessions *repositories.SessionRepository, now func() time.Time) *SessionResolver {
	if now == nil {
		now = time.Now
	}
	return &SessionResolver{sessions: sessions, now: now}
}

// Resolve returns the active session of the user on channel, creating one when
// none is live, and pushes its end to ts + SessionWindow.
// A session stays "new" until it has produced a bot reply.
func (r *SessionResolver) Resolve(userID int64, ts time.Time, channel string) (SessionInfo, error) {
	active, err := r.sessions.GetActiveSession(userID, channel, r.now())
	if err != nil {
		return SessionInfo{}, err
	}

	if active == nil {
		id, err := r.sessions.CreateSession(userID, ts, ts.Add(SessionWindow), channel)
		if err != nil {
			return SessionInfo{}, err
		}
		return SessionInfo{SessionID: id, IsNewSession: true}, nil
	}

	if err := r.sessions.ExtendSession(active.ID, ts.Add(SessionWindow)); err != nil {
		return SessionInfo{}, err
	}
	replied, err := r.sessions.HasRepliedMessages(active.ID)
	if err != nil {
		return SessionInfo{}, err
	}
	return SessionInfo{SessionID: active.ID, IsNewSession: !replied}, nil
}
