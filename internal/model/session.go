package model

import "time"

// Session models a row of the `sessions` table. The ID is the opaque token
// handed to the browser in the session cookie; nothing about the owner can
// be derived from it.
//
// Fields:
//  ID        – random token, primary key.
//  UserID    – owner of the session (cascade deleted with the user).
//  ExpiresAt – absolute expiry; pushed forward by sliding renewal.
//  CreatedAt – timestamp of creation.
type Session struct {
	ID        string    // sessions.id
	UserID    uint64    // sessions.user_id
	ExpiresAt time.Time // sessions.expires_at
	CreatedAt time.Time // sessions.created_at
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
