// Package service holds the business logic of PartyLogger: sessions,
// ticket lifecycle, party activation, statistics and the directory of
// users, students and guests. Services are stateless; everything they know
// comes from the injected repository.Store and clock.
package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/party-logger/internal/repository"
)

// Kind classifies a service error for the HTTP layer.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindPermissionDenied Kind = "permission_denied"
	KindValidation       Kind = "validation_error"
	KindUnauthenticated  Kind = "unauthenticated"
	KindUnexpected       Kind = "unexpected"
)

// Error is the error type returned by every service operation. Message is
// safe to show to users; Err keeps the cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindUnexpected for foreign errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// unexpected hides err behind a generic message. Errors that already carry
// a kind pass through unchanged so they survive WithTx.
func unexpected(op string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindUnexpected, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// isNotFound reports a missing row.
func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }

// isDuplicate reports a unique constraint violation.
func isDuplicate(err error) bool { return errors.Is(err, repository.ErrDuplicate) }
