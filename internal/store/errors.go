package store

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound means a unique-key lookup matched no row.
	ErrNotFound = errors.New("audio record not found")
	// ErrDuplicate is matched by every ConstraintError.
	ErrDuplicate = errors.New("unique constraint violation")
	// ErrInvalidQuery means a query could not be built from its inputs.
	ErrInvalidQuery = errors.New("invalid query")
)

// ConstraintError reports an insert or update that collided with an existing
// name or audio_file_path.
type ConstraintError struct {
	Column string
	Err    error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("audio %s already exists: %v", e.Column, e.Err)
}

func (e *ConstraintError) Unwrap() []error {
	return []error{ErrDuplicate, e.Err}
}

// StorageError wraps any other failure of the underlying database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// classify turns a driver error from op into a ConstraintError or StorageError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if column, ok := uniqueViolation(err); ok {
		return &ConstraintError{Column: column, Err: err}
	}
	return &StorageError{Op: op, Err: err}
}

func uniqueViolation(err error) (string, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return "", false
	}
	code := se.Code()
	if code&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}
	msg := se.Error()
	if code != sqlite3.SQLITE_CONSTRAINT_UNIQUE && !strings.Contains(msg, "UNIQUE") {
		return "", false
	}
	return constraintColumn(msg), true
}

// constraintColumn extracts "name" from messages such as
// "constraint failed: UNIQUE constraint failed: audio.name (2067)".
func constraintColumn(msg string) string {
	i := strings.LastIndex(msg, "failed: ")
	if i < 0 {
		return "unknown"
	}
	col := msg[i+len("failed: "):]
	if j := strings.Index(col, " ("); j >= 0 {
		col = col[:j]
	}
	col = strings.TrimSpace(col)
	parts := strings.Split(col, ", ")
	for i, p := range parts {
		if _, after, ok := strings.Cut(p, "."); ok {
			parts[i] = after
		}
	}
	return strings.Join(parts, ", ")
}
