package repository

import (
	"context"
	"time"

	"github.com/iliyamo/party-logger/internal/model"
)

// Store is the unit of work handed to services. Repositories obtained from
// a Store passed to a WithTx callback share that transaction.
type Store interface {
	Users() UserRepository
	Roles() RoleRepository
	Sessions() SessionRepository
	Students() StudentRepository
	Guests() GuestRepository
	Parties() PartyRepository
	Tickets() TicketRepository
	Logs() LogRepository

	// WithTx runs fn inside one transaction. The transaction commits when
	// fn returns nil and rolls back otherwise. Nested calls reuse the
	// outer transaction.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// UserRepository reads and writes the users table. Every read loads the
// user's role together with its permissions.
type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
	// GetByLogin matches login against username or email.
	GetByLogin(ctx context.Context, login string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Count(ctx context.Context) (int, error)
	// Update writes username, email, names, role and active flag.
	Update(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	Delete(ctx context.Context, id uint64) error
}

// RoleRepository covers roles, the permission catalog and the join table.
type RoleRepository interface {
	List(ctx context.Context) ([]model.Role, error)
	GetByID(ctx context.Context, id uint64) (*model.Role, error)
	GetByName(ctx context.Context, name string) (*model.Role, error)
	Create(ctx context.Context, r *model.Role) error
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	// EnsurePermission inserts p unless a permission with that name exists;
	// p.ID is set either way.
	EnsurePermission(ctx context.Context, p *model.Permission) error
	// SetPermissions replaces the role's permission set by name. Unknown
	// names yield ErrNotFound.
	SetPermissions(ctx context.Context, roleID uint64, names []string) error
}

// SessionRepository reads and writes the sessions table.
type SessionRepository interface {
	Create(ctx context.Context, s *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID uint64) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// StudentRepository reads and writes the students table.
type StudentRepository interface {
	// List returns students ordered by last name. A non-empty search
	// matches names or the student number prefix.
	List(ctx context.Context, search string) ([]model.Student, error)
	GetByID(ctx context.Context, id uint64) (*model.Student, error)
	GetByStudentNumber(ctx context.Context, number uint64) (*model.Student, error)
	ListByIDs(ctx context.Context, ids []uint64) ([]model.Student, error)
	Create(ctx context.Context, s *model.Student) error
	Count(ctx context.Context) (int, error)
}

// GuestRepository reads and writes the guests table.
type GuestRepository interface {
	// List returns guests with their guarantor joined.
	List(ctx context.Context) ([]model.Guest, error)
	GetByID(ctx context.Context, id uint64) (*model.Guest, error)
	Create(ctx context.Context, g *model.Guest) error
	Count(ctx context.Context) (int, error)
}

// PartyRepository reads and writes parties and their stats snapshot.
type PartyRepository interface {
	Create(ctx context.Context, p *model.Party) error
	GetByID(ctx context.Context, id uint64) (*model.Party, error)
	// GetActive returns the party that is active and not closed, or
	// ErrNotFound.
	GetActive(ctx context.Context) (*model.Party, error)
	List(ctx context.Context) ([]model.Party, error)
	Update(ctx context.Context, p *model.Party) error
	DeactivateAll(ctx context.Context) error
	SetState(ctx context.Context, id uint64, active, closed bool, endTime *time.Time) error
	Delete(ctx context.Context, id uint64) error
	GetStats(ctx context.Context, partyID uint64) (*model.PartyStats, error)
	UpsertStats(ctx context.Context, s *model.PartyStats) error
}

// TicketRepository reads and writes the tickets table.
type TicketRepository interface {
	// Find returns the ticket of one holder in one party scope.
	Find(ctx context.Context, key model.TicketKey) (*model.Ticket, error)
	Create(ctx context.Context, t *model.Ticket) error
	SetExit(ctx context.Context, id uint64, exitAt time.Time) error
	Delete(ctx context.Context, id uint64) error
	// ListByParty returns the tickets scoped to partyID; nil selects the
	// tickets issued while no party was active.
	ListByParty(ctx context.Context, partyID *uint64) ([]model.Ticket, error)
	ListAll(ctx context.Context) ([]model.Ticket, error)
}

// LogFilter narrows LogRepository.List. Zero values mean "no filter".
type LogFilter struct {
	PartyID *uint64
	Limit   int
}

// LogRepository appends to and reads the audit log.
type LogRepository interface {
	Append(ctx context.Context, l *model.Log) error
	// List returns the newest entries first with students and guests joined.
	List(ctx context.Context, f LogFilter) ([]model.LogEntry, error)
}
