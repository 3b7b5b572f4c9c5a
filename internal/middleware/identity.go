package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/model"
)

// Context keys set by Authenticate.
const (
	ContextUser    = "user"
	ContextSession = "session"
)

// CurrentUser returns the authenticated user, nil for anonymous requests.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ContextUser).(*model.User)
	return u
}

// CurrentSession returns the session behind the request. Requests
// authenticated by a bearer token have none.
func CurrentSession(c echo.Context) *model.Session {
	s, _ := c.Get(ContextSession).(*model.Session)
	return s
}

// userID renders the current user for rate limit keys, "anon" when nobody
// is signed in.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
