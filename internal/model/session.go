package model

import (
	"time"

	"github.com/google/uuid"
)

// Session is a time-bounded authentication grant in the `sessions` table.
// A session is valid iff Terminated is false and ExpiresAt is in the
// future.  IPHash stores a SHA3-256 digest of the client address observed
// at login; the raw address is never persisted.
type Session struct {
	ID         uuid.UUID // sessions.session_id
	UserID     uuid.UUID // sessions.user_id
	IPHash     string    // sessions.ip_hash
	ExpiresAt  time.Time // sessions.expires_at
	Terminated bool      // sessions.is_terminated
	CreatedAt  time.Time // sessions.created_at
}

// Valid reports whether the session still authorizes requests at the given
// instant.
func (s Session) Valid(now time.Time) bool {
	return !s.Terminated && s.ExpiresAt.After(now)
}
