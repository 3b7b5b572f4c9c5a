// Package repository defines the storage contracts of the application and
// their MySQL implementation. Repositories are pure data access: they do
// not enforce business rules beyond what the schema itself guarantees.
//
// The sentinel values below let higher layers tell failure scenarios
// apart without inspecting driver errors.
package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a row addressed by key does not exist.
// Services translate this into a not_found error (HTTP 404).
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique
// constraint, e.g. a second ticket for the same student in one party or a
// taken username. Services translate this into a conflict (HTTP 409).
var ErrDuplicate = errors.New("duplicate")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}
	return err
}
