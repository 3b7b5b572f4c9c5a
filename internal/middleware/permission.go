package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/permission"
)

// wantsHTML reports a browser page load, which is redirected rather than
// answered with JSON.
func wantsHTML(c echo.Context) bool {
	r := c.Request()
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}

// RequireAuth rejects anonymous requests with 401, or redirects page loads
// to /login.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, "/login")
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required", "kind": "unauthenticated"})
			}
			return next(c)
		}
	}
}

// RequirePermission admits users holding at least one of perms. Anonymous
// callers get the RequireAuth treatment; signed-in users without the
// permission get 403, or a redirect to / for page loads. Permissions are
// read from the user loaded for this request, never from a cache.
func RequirePermission(perms ...string) echo.MiddlewareFunc {
	auth := RequireAuth()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return auth(func(c echo.Context) error {
			if !permission.HasAnyPermission(CurrentUser(c), perms...) {
				if wantsHTML(c) {
					return c.Redirect(http.StatusFound, "/")
				}
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "kind": "permission_denied"})
			}
			return next(c)
		})
	}
}
