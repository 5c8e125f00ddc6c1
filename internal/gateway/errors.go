// Package gateway defines the error taxonomy shared by the registry, the
// query safety engine, and the dialect adapters. Callers match on the
// sentinel errors with errors.Is, or extract detail with errors.As.
package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure classes.
var (
	// ErrUnknownDatabase is returned when a requested database name is not
	// configured in the registry.
	ErrUnknownDatabase = errors.New("sqlgate: unknown database")

	// ErrAmbiguousDatabase is returned when no database name was given but
	// more than one database is connected.
	ErrAmbiguousDatabase = errors.New("sqlgate: ambiguous database")

	// ErrNoDatabaseConfigured is returned when the registry is empty.
	ErrNoDatabaseConfigured = errors.New("sqlgate: no database configured")

	// ErrStatementRejected is returned when the safety gate refuses a
	// statement before it reaches the backend.
	ErrStatementRejected = errors.New("sqlgate: statement rejected")

	// ErrInvalidIdentifier is returned when a user-supplied identifier
	// fails the allow-list check.
	ErrInvalidIdentifier = errors.New("sqlgate: invalid identifier")

	// ErrTableNotFound is returned when a table does not exist in the
	// catalog at introspection time.
	ErrTableNotFound = errors.New("sqlgate: table not found")

	// ErrIndexesUnavailable is returned when a backend cannot report index
	// metadata for an existing table.
	ErrIndexesUnavailable = errors.New("sqlgate: indexes unavailable")

	// ErrQueryTimeout is returned when an execution exceeds the configured
	// query timeout. Timed-out statements are never retried.
	ErrQueryTimeout = errors.New("sqlgate: query timeout")

	// ErrBackend wraps failures reported by the underlying engine.
	ErrBackend = errors.New("sqlgate: backend error")
)

// UnknownDatabaseError reports a database name that is not configured,
// together with the names that are.
type UnknownDatabaseError struct {
	Name      string
	Available []string
}

func (e *UnknownDatabaseError) Error() string {
	return fmt.Sprintf("database '%s' not found, available: %s",
		e.Name, strings.Join(e.Available, ", "))
}

func (e *UnknownDatabaseError) Is(err error) bool { return err == ErrUnknownDatabase }

// AmbiguousDatabaseError reports that the caller must pick one of several
// connected databases.
type AmbiguousDatabaseError struct {
	Available []string
}

func (e *AmbiguousDatabaseError) Error() string {
	return fmt.Sprintf("multiple databases connected, specify one of: %s",
		strings.Join(e.Available, ", "))
}

func (e *AmbiguousDatabaseError) Is(err error) bool { return err == ErrAmbiguousDatabase }

// StatementRejectedError names the keyword that caused the safety gate to
// refuse a statement.
type StatementRejectedError struct {
	Keyword string
	Reason  string
}

func (e *StatementRejectedError) Error() string {
	if e.Keyword != "" {
		return fmt.Sprintf("statement rejected: %s (keyword %s)", e.Reason, e.Keyword)
	}
	return fmt.Sprintf("statement rejected: %s", e.Reason)
}

func (e *StatementRejectedError) Is(err error) bool { return err == ErrStatementRejected }

// InvalidIdentifierError reports an identifier that failed sanitization.
type InvalidIdentifierError struct {
	Name   string
	Reason string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid identifier '%s': %s", e.Name, e.Reason)
}

func (e *InvalidIdentifierError) Is(err error) bool { return err == ErrInvalidIdentifier }

// TableNotFoundError reports a table missing from the catalog.
type TableNotFoundError struct {
	Table string
}

func (e *TableNotFoundError) Error() string {
	return fmt.Sprintf("table '%s' not found", e.Table)
}

func (e *TableNotFoundError) Is(err error) bool { return err == ErrTableNotFound }

// QueryTimeoutError reports that an execution was cancelled at the
// configured deadline.
type QueryTimeoutError struct {
	Timeout time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query timed out after %s", e.Timeout)
}

func (e *QueryTimeoutError) Is(err error) bool { return err == ErrQueryTimeout }

// BackendError wraps a driver or engine failure with backend context. The
// underlying message is surfaced verbatim so it stays actionable.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *BackendError) Is(err error) bool { return err == ErrBackend }

func (e *BackendError) Unwrap() error { return e.Err }

// WrapBackend wraps err as a BackendError unless it already carries a
// gateway classification.
func WrapBackend(backend string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Backend: backend, Err: err}
}

// IsBackend reports whether err is a backend-reported failure, as opposed
// to a resolution or gating failure produced before any backend call.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}
