package errors

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// Classify maps database and filesystem errors onto pipeline error codes.
func Classify(err error) ErrorCode {
	if err == nil {
		return ErrCodeUnknown
	}

	// Driver-specific type assertions first for accurate classification
	if code := classifySQLiteError(err); code != ErrCodeUnknown {
		return code
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return ErrCodeNotFound
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrCodePermission
	case errors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		return ErrCodeTimeout
	}

	// Fall back to string-based classification
	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "database is locked"):
		return ErrCodeBusy
	case strings.Contains(errStr, "database disk image is malformed"):
		return ErrCodeCorruption
	case strings.Contains(errStr, "no such table"):
		return ErrCodeCorruption
	case strings.Contains(errStr, "no such column"):
		return ErrCodeCorruption
	case strings.Contains(errStr, "permission denied"):
		return ErrCodePermission
	case strings.Contains(errStr, "operation not permitted"):
		return ErrCodePermission
	case strings.Contains(errStr, "no such file"):
		return ErrCodeNotFound
	case strings.Contains(errStr, "connection refused"):
		return ErrCodeConnection
	case strings.Contains(errStr, "connection reset"):
		return ErrCodeConnection
	case strings.Contains(errStr, "timeout"):
		return ErrCodeTimeout
	case strings.Contains(errStr, "too many requests"):
		return ErrCodeRateLimited
	default:
		return ErrCodeUnknown
	}
}

// classifySQLiteError classifies SQLite-specific errors using type assertions.
// Returns ErrCodeUnknown when the error is not a sqlite3.Error.
func classifySQLiteError(err error) ErrorCode {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return ErrCodeUnknown
	}

	switch sqliteErr.Code {
	case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
		return ErrCodeCorruption
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return ErrCodePermission
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return ErrCodeBusy
	case sqlite3.ErrCantOpen:
		return ErrCodeConnection
	case sqlite3.ErrIoErr:
		return ErrCodeConnection
	case sqlite3.ErrMisuse:
		return ErrCodeInternal
	default:
		return ErrCodeUnknown
	}
}

// Wrap wraps a database or filesystem error with operation context.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return New(op, err, Classify(err))
}

// WrapWithContext wraps an error with operation and additional context.
func WrapWithContext(op string, err error, contextMap map[string]string) error {
	if err == nil {
		return nil
	}
	return NewWithContext(op, err, Classify(err), contextMap)
}

// HandleSourceMissing creates a standardized error for a missing source
// database, carrying the instruction shown to the user.
func HandleSourceMissing(op, path, instruction string) error {
	return NewWithContext(op, fs.ErrNotExist, ErrCodeNotFound, map[string]string{
		"path":        path,
		"instruction": instruction,
	})
}

// HandleValidationError creates a standardized validation error.
func HandleValidationError(op, field, value, reason string) error {
	return NewWithContext(op, errors.New("validation failed"), ErrCodeValidation, map[string]string{
		"field":  field,
		"value":  value,
		"reason": reason,
	})
}

// HandleConnectionError creates a standardized connection error.
func HandleConnectionError(op, details string) error {
	return New(op, errors.New(details), ErrCodeConnection)
}
