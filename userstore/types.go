package userstore

import (
	"errors"
	"time"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("user already exists")
)

type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  []byte
	WalletAddress *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Session is a server side session. A session without UserID is a guest session.
type Session struct {
	ID            string
	UserID        string
	Email         string
	WalletAddress *string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (s *Session) Authenticated() bool {
	return len(s.UserID) > 0
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
