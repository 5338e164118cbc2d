package persistence

import "bot-arena-go/internal/session"

// SessionRepository stores the one serialized session of the process.
type SessionRepository interface {
	// SaveSession replaces the stored session.
	SaveSession(s *session.Session) error

	// LoadSession returns the stored session, or (nil, nil) when nothing was saved yet.
	LoadSession() (*session.Session, error)

	Close() error
}
