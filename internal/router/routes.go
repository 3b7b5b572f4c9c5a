package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-logger/internal/handler"
	"github.com/iliyamo/party-logger/internal/middleware"
	"github.com/iliyamo/party-logger/internal/permission"
)

// registerAuth maps login, logout and the identity endpoints. Only login is
// reachable anonymously, behind the token bucket.
func registerAuth(e *echo.Echo, a *handler.AuthHandler, opt Options) {
	e.POST("/login", a.Login, middleware.NewTokenBucket(opt.RateLimit, opt.Redis))
	e.POST("/logout", a.Logout, middleware.RequireAuth())
	e.GET("/api/me", a.Me, middleware.RequireAuth())
	e.POST("/api/auth/token", a.Token, middleware.RequireAuth())
}

func registerDirectory(g *echo.Group, h *handler.DirectoryHandler) {
	view := middleware.RequirePermission(permission.ViewStudents)
	g.GET("/students", h.ListStudents, view)
	g.GET("/students/:studentId", h.GetStudent, view)
	g.POST("/students", h.CreateStudent, middleware.RequirePermission(permission.ManageStudents))

	g.GET("/guests", h.ListGuests, middleware.RequirePermission(permission.ViewGuests))
	g.POST("/guests", h.CreateGuest, middleware.RequirePermission(permission.ManageGuests))
}

// registerTickets maps the check-in desk. manage_tickets grants every
// ticket operation.
func registerTickets(g *echo.Group, h *handler.TicketHandler) {
	t := g.Group("/tickets")
	issue := middleware.RequirePermission(permission.CreateTickets, permission.ManageTickets)
	t.GET("", h.Status, issue)
	t.POST("/create", h.Create, issue)
	t.POST("/leave", h.Leave, issue)
	t.POST("/delete", h.Delete, middleware.RequirePermission(permission.DeleteTickets, permission.ManageTickets))
}

// registerReports maps stats and logs. The cache sits after the permission
// check so a cached body is never served to a caller without view_stats.
func registerReports(g *echo.Group, h *handler.ReportHandler, cache echo.MiddlewareFunc) {
	stats := middleware.RequirePermission(permission.ViewStats)
	g.GET("/stats", h.Dashboard, stats, cache)
	g.GET("/stats/hourly", h.Hourly, stats, cache)
	g.GET("/logs", h.ListLogs, middleware.RequirePermission(permission.ViewLogs))
}

func registerAdmin(g *echo.Group, a *handler.AdminHandler, p *handler.PartyHandler) {
	g.Use(middleware.RequirePermission(permission.AdminPanel))

	g.GET("/users", a.ListUsers)
	g.GET("/roles", a.ListRoles)
	g.GET("/permissions", a.ListPermissions)

	users := middleware.RequirePermission(permission.ManageUsers)
	g.POST("/users", a.CreateUser, users)
	g.PUT("/users/:id", a.UpdateUser, users)
	g.POST("/users/:id/password", a.ResetPassword, users)
	g.DELETE("/users/:id", a.DeleteUser, users)

	g.PUT("/roles/:id/permissions", a.SetRolePermissions, middleware.RequirePermission(permission.ManageRoles))

	g.GET("/parties", p.List)
	g.GET("/parties/active", p.Active)
	g.GET("/parties/:id", p.Get)
	g.POST("/parties", p.Create)
	g.PUT("/parties/:id", p.Update)
	g.DELETE("/parties/:id", p.Delete)
	g.POST("/parties/:id/activate", p.Activate)
	g.POST("/parties/:id/close", p.Close)
	g.POST("/parties/:id/stats", p.RefreshStats)
}
