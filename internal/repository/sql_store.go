package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of *sql.DB and *sql.Tx used by the repositories,
// so the same code runs inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore is the MySQL Store. The zero value is not usable; call
// NewSQLStore.
type SQLStore struct {
	db *sql.DB
	q  Querier
	tx bool
}

// NewSQLStore returns a Store backed by db.
func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db, q: db} }

func (s *SQLStore) Users() UserRepository { return &UserRepo{q: s.q} }
func (s *SQLStore) Roles() RoleRepository { return &RoleRepo{q: s.q} }
func (s *SQLStore) Sessions() SessionRepository { return &SessionRepo{q: s.q} }
func (s *SQLStore) Students() StudentRepository { return &StudentRepo{q: s.q} }
func (s *SQLStore) Guests() GuestRepository { return &GuestRepo{q: s.q} }
func (s *SQLStore) Parties() PartyRepository { return &PartyRepo{q: s.q} }
func (s *SQLStore) Tickets() TicketRepository { return &TicketRepo{q: s.q} }
func (s *SQLStore) Logs() LogRepository { return &LogRepo{q: s.q} }

// WithTx begins a serializable transaction and runs fn against a Store bound
// to it. A panic inside fn rolls back and is re-raised.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.tx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&SQLStore{db: s.db, q: tx, tx: true}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", translate(err))
	}
	committed = true
	return nil
}

// expectRow turns "no row matched" into ErrNotFound. The DSN sets
// clientFoundRows so matched rows count even when no column changed.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
