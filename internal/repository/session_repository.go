package repository

import (
	"context"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
)

// SessionRepo persists opaque session tokens. The token itself is the
// primary key; nothing else identifies the browser.
type SessionRepo struct{ q Querier }

// NewSessionRepo returns a SessionRepo bound to q.
func NewSessionRepo(q Querier) *SessionRepo { return &SessionRepo{q: q} }

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?,?,?,?)",
		s.ID, s.UserID, s.ExpiresAt, s.CreatedAt)
	return translate(err)
}

// Get fetches a session by token, expired or not.
func (r *SessionRepo) Get(ctx context.Context, id string) (*model.Session, error) {
	var s model.Session
	err := r.q.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, created_at FROM sessions WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// UpdateExpiry pushes the expiry of one session.
func (r *SessionRepo) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := r.q.ExecContext(ctx, "UPDATE sessions SET expires_at=? WHERE id=?", expiresAt, id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// Delete removes one session. Unknown ids are ignored.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, "DELETE FROM sessions WHERE id=?", id)
	return err
}

// DeleteByUser removes every session of a user.
func (r *SessionRepo) DeleteByUser(ctx context.Context, userID uint64) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM sessions WHERE user_id=?", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteExpired removes every session whose expiry is at or before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
