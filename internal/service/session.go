package service

import (
	"context"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/metrics"
	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
	"github.com/iliyamo/party-logger/internal/utils"
)

const (
	// SessionTTL is the lifetime of a new or renewed session.
	SessionTTL = 30 * 24 * time.Hour
	// SessionRenewWindow is the remaining lifetime below which a session
	// is pushed back to SessionTTL on validation.
	SessionRenewWindow = 15 * 24 * time.Hour

	sessionTokenBytes = 20
)

// SessionManager issues, validates and revokes opaque session tokens.
// Expiry is detected lazily on validation; PurgeExpired is only a startup
// cleanup.
type SessionManager struct {
	store  repository.Store
	logger *log.Logger
	now    Clock
}

// NewSessionManager returns a SessionManager over store.
func NewSessionManager(store repository.Store, logger *log.Logger, now Clock) *SessionManager {
	return &SessionManager{store: store, logger: logger, now: now}
}

// GenerateToken returns 20 random bytes as unpadded base64url.
func (m *SessionManager) GenerateToken() (string, error) {
	return utils.RandomToken(sessionTokenBytes)
}

// Create opens a session for userID expiring SessionTTL from now.
func (m *SessionManager) Create(ctx context.Context, userID uint64) (*model.Session, error) {
	token, err := m.GenerateToken()
	if err != nil {
		return nil, unexpected("generate session token", err)
	}
	now := stamp(m.now)
	s := &model.Session{ID: token, UserID: userID, ExpiresAt: now.Add(SessionTTL), CreatedAt: now}
	if err := m.store.Sessions().Create(ctx, s); err != nil {
		return nil, unexpected("create session", err)
	}
	metrics.SessionEvents.WithLabelValues("created").Inc()
	return s, nil
}

// Validate resolves token to its session and owner. It never fails: an
// unknown, expired or orphaned token, and any store error, yield nil, nil.
// A session inside the renew window gets its expiry pushed to now +
// SessionTTL and the returned session carries the new expiry, so the
// caller must re-issue the cookie.
func (m *SessionManager) Validate(ctx context.Context, token string) (*model.Session, *model.User) {
	if token == "" {
		return nil, nil
	}
	s, err := m.store.Sessions().Get(ctx, token)
	if err != nil {
		if !isNotFound(err) {
			m.logger.Errorf("session: lookup failed: %v", err)
		}
		return nil, nil
	}

	now := stamp(m.now)
	if s.Expired(now) {
		m.drop(ctx, token, "expired")
		return nil, nil
	}

	u, err := m.store.Users().GetByID(ctx, s.UserID)
	if err != nil {
		if isNotFound(err) {
			m.drop(ctx, token, "orphaned")
		} else {
			m.logger.Errorf("session: owner lookup failed: %v", err)
		}
		return nil, nil
	}
	if !u.IsActive {
		m.drop(ctx, token, "inactive_user")
		return nil, nil
	}

	if !now.Before(s.ExpiresAt.Add(-SessionRenewWindow)) {
		renewed := now.Add(SessionTTL)
		if err := m.store.Sessions().UpdateExpiry(ctx, token, renewed); err != nil {
			// the session is still valid until its old expiry
			m.logger.Warnf("session: renewal failed: %v", err)
		} else {
			s.ExpiresAt = renewed
			metrics.SessionEvents.WithLabelValues("renewed").Inc()
		}
	}
	return s, u
}

func (m *SessionManager) drop(ctx context.Context, token, reason string) {
	if err := m.store.Sessions().Delete(ctx, token); err != nil {
		m.logger.Warnf("session: delete failed: %v", err)
		return
	}
	metrics.SessionEvents.WithLabelValues(reason).Inc()
}

// Invalidate deletes one session. Unknown tokens are not an error.
func (m *SessionManager) Invalidate(ctx context.Context, token string) error {
	if err := m.store.Sessions().Delete(ctx, token); err != nil {
		return unexpected("delete session", err)
	}
	metrics.SessionEvents.WithLabelValues("invalidated").Inc()
	return nil
}

// InvalidateUser deletes every session of userID.
func (m *SessionManager) InvalidateUser(ctx context.Context, userID uint64) error {
	n, err := deleteUserSessions(ctx, m.store, userID)
	if err != nil {
		return err
	}
	metrics.SessionEvents.WithLabelValues("invalidated").Add(float64(n))
	return nil
}

// deleteUserSessions removes the sessions of userID through tx, so callers
// can tie it to the account change that requires it.
func deleteUserSessions(ctx context.Context, tx repository.Store, userID uint64) (int64, error) {
	n, err := tx.Sessions().DeleteByUser(ctx, userID)
	if err != nil {
		return 0, unexpected("delete user sessions", err)
	}
	return n, nil
}

// PurgeExpired removes sessions that are already past their expiry.
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.store.Sessions().DeleteExpired(ctx, stamp(m.now))
	if err != nil {
		return 0, unexpected("purge sessions", err)
	}
	return n, nil
}
