// Package memory is an in-process repository.Store. It emulates the unique
// constraints of the MySQL schema and runs WithTx under a single lock on a
// copy of the data, so transactions are serializable and roll back cleanly.
// It backs STORE_DRIVER=memory and the package tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
	"github.com/iliyamo/party-logger/internal/repository"
)

type state struct {
	seq       uint64
	users     map[uint64]model.User
	roles     map[uint64]model.Role
	perms     map[uint64]model.Permission
	rolePerms map[uint64]map[uint64]struct{}
	sessions  map[string]model.Session
	students  map[uint64]model.Student
	guests    map[uint64]model.Guest
	parties   map[uint64]model.Party
	stats     map[uint64]model.PartyStats
	tickets   map[uint64]model.Ticket
	logs      []model.Log
}

func newState() *state {
	return &state{
		users:     map[uint64]model.User{},
		roles:     map[uint64]model.Role{},
		perms:     map[uint64]model.Permission{},
		rolePerms: map[uint64]map[uint64]struct{}{},
		sessions:  map[string]model.Session{},
		students:  map[uint64]model.Student{},
		guests:    map[uint64]model.Guest{},
		parties:   map[uint64]model.Party{},
		stats:     map[uint64]model.PartyStats{},
		tickets:   map[uint64]model.Ticket{},
	}
}

func (st *state) nextID() uint64 {
	st.seq++
	return st.seq
}

func (st *state) clone() *state {
	c := newState()
	c.seq = st.seq
	copyMap(c.users, st.users)
	copyMap(c.roles, st.roles)
	copyMap(c.perms, st.perms)
	for k, v := range st.rolePerms {
		set := make(map[uint64]struct{}, len(v))
		copyMap(set, v)
		c.rolePerms[k] = set
	}
	copyMap(c.sessions, st.sessions)
	copyMap(c.students, st.students)
	copyMap(c.guests, st.guests)
	copyMap(c.parties, st.parties)
	copyMap(c.stats, st.stats)
	copyMap(c.tickets, st.tickets)
	c.logs = append([]model.Log(nil), st.logs...)
	return c
}

func copyMap[K comparable, V any](dst, src map[K]V) {
	for k, v := range src {
		dst[k] = v
	}
}

type holder struct{ st *state }

// Store is the in-process repository.Store. Use New.
type Store struct {
	mu   *sync.Mutex
	h    *holder
	inTx bool
	now  func() time.Time
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store. Roles and permissions are seeded by the
// service layer, exactly as on MySQL.
func New() *Store {
	return &Store{
		mu:  &sync.Mutex{},
		h:   &holder{st: newState()},
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// SetClock replaces the clock used for created_at/updated_at columns.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

// do runs fn against the current state, holding the lock unless the
// caller already holds it through WithTx.
func (s *Store) do(ctx context.Context, fn func(*state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return fn(s.h.st)
}

// WithTx runs fn on a private copy of the data and publishes the copy only
// when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	view := &Store{mu: s.mu, h: &holder{st: s.h.st.clone()}, inTx: true, now: s.now}
	if err := fn(view); err != nil {
		return err
	}
	s.h.st = view.h.st
	return nil
}

func (s *Store) Users() repository.UserRepository { return userRepo{s} }
func (s *Store) Roles() repository.RoleRepository { return roleRepo{s} }
func (s *Store) Sessions() repository.SessionRepository { return sessionRepo{s} }
func (s *Store) Students() repository.StudentRepository { return studentRepo{s} }
func (s *Store) Guests() repository.GuestRepository { return guestRepo{s} }
func (s *Store) Parties() repository.PartyRepository { return partyRepo{s} }
func (s *Store) Tickets() repository.TicketRepository { return ticketRepo{s} }
func (s *Store) Logs() repository.LogRepository { return logRepo{s} }

func copyID(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
