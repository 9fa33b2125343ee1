package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents an identity record in the `users` table.  Accounts are
// soft-deleted through the Active flag; rows are never removed while other
// tables reference them.
//
// Fields:
//
//	ID           – primary key (UUID, generated at creation).
//	Email        – unique, stored lowercase.
//	PasswordHash – argon2id PHC string, opaque to everything but the verifier.
//	ContactNo    – unique contact number.
//	ProfileImage – optional reference to an externally stored image.
//	Active       – soft-delete flag.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	ContactNo    string
	ProfileImage *uuid.UUID
	Active       bool
	CreatedAt    time.Time
}

// UserPermission maps a user to a granted permission slug; the pair is
// unique in the `user_permissions` table.
type UserPermission struct {
	UserID         uuid.UUID
	PermissionSlug string
}
