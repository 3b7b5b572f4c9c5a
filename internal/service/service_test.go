package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
	"github.com/iliyamo/party-logger/internal/repository/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type env struct {
	ctx      context.Context
	store    *memory.Store
	clock    *fakeClock
	logger   *log.Logger
	sessions *SessionManager
	tickets  *TicketManager
	parties  *PartyController
	users    *UserService
	students *StudentService
	guests   *GuestService
	stats    *StatsAggregator
	logs     *LogService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 11, 8, 21, 4, 0, 0, time.UTC)}
	store := memory.New()
	store.SetClock(clk.Now)
	logger := log.New("test")
	logger.SetOutput(io.Discard)

	e := &env{ctx: context.Background(), store: store, clock: clk, logger: logger}
	e.sessions = NewSessionManager(store, logger, clk.Now)
	e.tickets = NewTicketManager(store, logger, clk.Now, nil)
	e.parties = NewPartyController(store, logger, clk.Now)
	e.users = NewUserService(store, logger, 4)
	e.students = NewStudentService(store, logger)
	e.guests = NewGuestService(store, e.tickets, logger)
	e.stats = NewStatsAggregator(store, logger, time.UTC)
	e.logs = NewLogService(store, logger, time.UTC)
	return e
}

// seedAdmin bootstraps the catalog and returns the admin account.
func (e *env) seedAdmin(t *testing.T) *model.User {
	t.Helper()
	if _, err := e.users.EnsureAdmin(e.ctx, BootstrapAdmin{Username: "admin", Email: "admin@example.org", Password: "change-me-now"}); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	u, err := e.store.Users().GetByLogin(e.ctx, "admin")
	if err != nil {
		t.Fatalf("load admin: %v", err)
	}
	return u
}

func (e *env) addStudent(t *testing.T, number uint64, first, last string, member bool) *model.Student {
	t.Helper()
	s, err := e.students.Create(e.ctx, model.Student{StudentID: number, FirstName: first, LastName: last, Speciality: "CS", IsMember: member})
	if err != nil {
		t.Fatalf("create student %d: %v", number, err)
	}
	return s
}

func (e *env) addParty(t *testing.T, name string) *model.Party {
	t.Helper()
	p, err := e.parties.Create(e.ctx, PartyInput{Name: name, Date: e.clock.Now()}, 1)
	if err != nil {
		t.Fatalf("create party %q: %v", name, err)
	}
	return p
}

func wantKind(t *testing.T, err error, want Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("error kind = %s (%v), want %s", got, err, want)
	}
}

// brokenTickets fails every ticket listing, for the soft-fail paths.
type brokenTickets struct {
	repository.TicketRepository
}

var errStoreDown = errors.New("store down")

func (brokenTickets) ListByParty(context.Context, *uint64) ([]model.Ticket, error) {
	return nil, errStoreDown
}

func (brokenTickets) ListAll(context.Context) ([]model.Ticket, error) {
	return nil, errStoreDown
}

type brokenStore struct {
	repository.Store
}

func (s brokenStore) Tickets() repository.TicketRepository {
	return brokenTickets{s.Store.Tickets()}
}

// faultyStore injects write failures that also apply inside WithTx, so a
// test can check that the rest of the transaction is rolled back.
type faultyStore struct {
	repository.Store
	sessionsDown bool
	logsDown     bool
}

func (s faultyStore) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	return s.Store.WithTx(ctx, func(tx repository.Store) error {
		return fn(faultyStore{Store: tx, sessionsDown: s.sessionsDown, logsDown: s.logsDown})
	})
}

func (s faultyStore) Sessions() repository.SessionRepository {
	if s.sessionsDown {
		return failingSessions{s.Store.Sessions()}
	}
	return s.Store.Sessions()
}

func (s faultyStore) Logs() repository.LogRepository {
	if s.logsDown {
		return failingLogs{s.Store.Logs()}
	}
	return s.Store.Logs()
}

type failingSessions struct {
	repository.SessionRepository
}

func (failingSessions) DeleteByUser(context.Context, uint64) (int64, error) {
	return 0, errStoreDown
}

type failingLogs struct {
	repository.LogRepository
}

func (failingLogs) Append(context.Context, *model.Log) error { return errStoreDown }

func TestErrorKinds(t *testing.T) {
	wrapped := unexpected("load thing", errStoreDown)
	if KindOf(wrapped) != KindUnexpected {
		t.Fatalf("kind = %s", KindOf(wrapped))
	}
	if !errors.Is(wrapped, errStoreDown) {
		t.Fatal("cause lost")
	}
	c := conflict("dup")
	if unexpected("outer", c) != c {
		t.Fatal("typed error was rewrapped")
	}
	if KindOf(errors.New("plain")) != KindUnexpected {
		t.Fatal("plain errors must read as unexpected")
	}
}
