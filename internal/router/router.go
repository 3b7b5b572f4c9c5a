// Package router builds the echo instance: the global middleware chain
// and every route with the permission it requires.
package router

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/party-logger/internal/config"
	"github.com/iliyamo/party-logger/internal/handler"
	"github.com/iliyamo/party-logger/internal/metrics"
	"github.com/iliyamo/party-logger/internal/middleware"
	"github.com/iliyamo/party-logger/internal/service"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Users    *service.UserService
	Sessions *service.SessionManager
	Students *service.StudentService
	Guests   *service.GuestService
	Tickets  *service.TicketManager
	Parties  *service.PartyController
	Stats    *service.StatsAggregator
	Logs     *service.LogService
	Now      service.Clock
}

// Options configures New.
type Options struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	// Redis backs the login limiter and the stats cache; nil disables both.
	Redis  *redis.Client
	DB     handler.Pinger
	Logger *log.Logger
}

// New returns a ready echo instance serving svc.
func New(svc Services, opt Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	if opt.Logger != nil {
		e.Logger = opt.Logger
	}
	e.Validator = handler.NewValidator()
	if svc.Now == nil {
		svc.Now = service.SystemClock
	}

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				c.Logger().Errorf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			c.Logger().Infof("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.Authenticate(middleware.AuthConfig{
		Sessions:     svc.Sessions,
		Users:        svc.Users,
		JWTSecret:    opt.Config.JWTSecret,
		SecureCookie: opt.Config.IsProd(),
	}))

	e.GET("/healthz", handler.Health(opt.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerAuth(e, handler.NewAuthHandler(opt.Config, svc.Users, svc.Sessions, svc.Now), opt)

	api := e.Group("/api", middleware.RequireAuth())
	registerDirectory(api, handler.NewDirectoryHandler(svc.Students, svc.Guests))
	registerTickets(api, handler.NewTicketHandler(svc.Tickets))
	registerReports(api, handler.NewReportHandler(svc.Stats, svc.Logs), middleware.NewRedisCache(opt.Cache, opt.Redis))
	registerAdmin(api.Group("/admin"), handler.NewAdminHandler(svc.Users), handler.NewPartyHandler(svc.Parties, svc.Stats))
	return e
}
