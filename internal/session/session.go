// Package session tracks live login sessions so a token can be revoked
// before it expires.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get for an unknown or expired session.
var ErrNotFound = errors.New("session: not found")

// Session is one login.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// New returns a session for userID valid for ttl.
func New(userID int64, username string, ttl time.Duration) Session {
	return Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		ExpiresAt: time.Now().Add(ttl).UTC(),
	}
}

// Expired reports whether s is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store persists sessions.
type Store interface {
	Put(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}
