package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/config"
	"github.com/iliyamo/party-logger/internal/database"
	"github.com/iliyamo/party-logger/internal/queue"
	"github.com/iliyamo/party-logger/internal/repository"
	"github.com/iliyamo/party-logger/internal/repository/memory"
	"github.com/iliyamo/party-logger/internal/router"
	"github.com/iliyamo/party-logger/internal/service"
)

func main() {
	cfg := config.Load()

	logger := log.New("partylogger")
	logger.SetHeader("${time_rfc3339} ${level} ${prefix}")
	if cfg.IsProd() {
		logger.SetLevel(log.INFO)
	} else {
		logger.SetLevel(log.DEBUG)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store repository.Store
		opts  = router.Options{
			Config:    cfg,
			RateLimit: config.LoadRateLimitConfig(),
			Cache:     config.LoadCacheConfig(),
			Logger:    logger,
		}
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using the in-memory store; data is lost on restart")
		store = memory.New()
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			logger.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = repository.NewSQLStore(db)
		opts.DB = db
	}

	if rdb := config.NewRedisClient(config.LoadRedisConfig()); rdb != nil {
		defer rdb.Close()
		opts.Redis = rdb
	}

	var events service.EventPublisher
	if cfg.EventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, logger)
		defer pub.Close()
		events = pub

		consumer := &queue.Consumer{URL: cfg.AMQPURL, Dir: cfg.EventLogDir, Logger: logger}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("checkin-consumer: %v", err)
			}
		}()
	}

	loc := cfg.Location()
	now := service.SystemClock
	svc := router.Services{Now: now}
	svc.Sessions = service.NewSessionManager(store, logger, now)
	svc.Users = service.NewUserService(store, logger, cfg.BcryptCost)
	svc.Tickets = service.NewTicketManager(store, logger, now, events)
	svc.Students = service.NewStudentService(store, logger)
	svc.Guests = service.NewGuestService(store, svc.Tickets, logger)
	svc.Parties = service.NewPartyController(store, logger, now)
	svc.Stats = service.NewStatsAggregator(store, logger, loc)
	svc.Logs = service.NewLogService(store, logger, loc)

	bootCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	created, err := svc.Users.EnsureAdmin(bootCtx, service.BootstrapAdmin{
		Username: cfg.AdminUsername,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
	})
	if err != nil {
		cancel()
		logger.Fatalf("bootstrap: %v", err)
	}
	if created {
		logger.Infof("bootstrap: created admin account %q", cfg.AdminUsername)
	}
	if n, err := svc.Sessions.PurgeExpired(bootCtx); err != nil {
		logger.Warnf("sessions: purge expired: %v", err)
	} else if n > 0 {
		logger.Infof("sessions: purged %d expired sessions", n)
	}
	cancel()

	e := router.New(svc, opts)

	go func() {
		addr := ":" + cfg.Port
		logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
