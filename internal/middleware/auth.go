package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/utils"
)

// SessionCookie is the name of the cookie carrying the session token.
const SessionCookie = "session"

// SessionValidator resolves a session token. It never fails; unknown
// tokens yield nil, nil.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (*model.Session, *model.User)
}

// UserLoader loads a user with role and permissions by id.
type UserLoader interface {
	Get(ctx context.Context, id uint64) (*model.User, error)
}

// AuthConfig wires Authenticate.
type AuthConfig struct {
	Sessions     SessionValidator
	Users        UserLoader
	JWTSecret    string
	SecureCookie bool
}

// Authenticate resolves the caller on every request and never rejects one.
// A valid session cookie wins: the user and session are stored in the
// context and the cookie is re-issued with the current expiry. An invalid
// cookie is deleted. Without a cookie, an HS256 bearer token for an active
// user is accepted. Anything else leaves the request anonymous.
func Authenticate(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
				ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
				s, u := cfg.Sessions.Validate(ctx, ck.Value)
				cancel()
				if s != nil && u != nil {
					c.Set(ContextUser, u)
					c.Set(ContextSession, s)
					SetSessionCookie(c, s, cfg.SecureCookie)
					return next(c)
				}
				ClearSessionCookie(c, cfg.SecureCookie)
			}

			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if raw, ok := strings.CutPrefix(auth, "Bearer "); ok && cfg.JWTSecret != "" {
				if id, err := utils.ParseAccessToken(cfg.JWTSecret, raw); err == nil {
					ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
					u, err := cfg.Users.Get(ctx, id)
					cancel()
					if err == nil && u.IsActive {
						c.Set(ContextUser, u)
					}
				}
			}
			return next(c)
		}
	}
}

// SetSessionCookie writes the session cookie for s.
func SetSessionCookie(c echo.Context, s *model.Session, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
