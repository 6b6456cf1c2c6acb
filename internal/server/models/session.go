package models

import "time"

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

type Session struct {
	ID        string
	UserID    string
	Status    SessionStatus
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Live reports whether the session is active and unexpired at now.
func (s *Session) Live(now time.Time) bool {
	return s.Status == SessionActive && now.Before(s.ExpiresAt)
}
