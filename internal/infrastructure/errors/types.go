package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrorCode classifies pipeline errors by cause.
type ErrorCode int

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeNotFound    // source database or file does not exist
	ErrCodeNoData      // query succeeded but the window is empty
	ErrCodeConnection  // cannot open or ping a database
	ErrCodeTimeout     // deadline exceeded or cancelled
	ErrCodeBusy        // database locked by another process
	ErrCodePermission  // filesystem or database access denied
	ErrCodeCorruption  // database file is damaged
	ErrCodeValidation  // invalid input or configuration value
	ErrCodeWrite       // report or automation output could not be written
	ErrCodeRateLimited // external API throttled the request
	ErrCodeInternal    // programming error or API misuse
)

// String returns a string representation of the error code.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeNotFound:
		return "NOT_FOUND"
	case ErrCodeNoData:
		return "NO_DATA"
	case ErrCodeConnection:
		return "CONNECTION"
	case ErrCodeTimeout:
		return "TIMEOUT"
	case ErrCodeBusy:
		return "BUSY"
	case ErrCodePermission:
		return "PERMISSION"
	case ErrCodeCorruption:
		return "CORRUPTION"
	case ErrCodeValidation:
		return "VALIDATION"
	case ErrCodeWrite:
		return "WRITE"
	case ErrCodeRateLimited:
		return "RATE_LIMITED"
	case ErrCodeInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// OpError is an operation-scoped error with classification, retry
// information and context for structured logging.
type OpError struct {
	Op        string            // operation name
	Err       error             // underlying error
	Code      ErrorCode         // error classification
	Retryable bool              // whether the error is retryable
	Context   map[string]string // additional context information
	Timestamp time.Time         // when the error occurred
}

func (e *OpError) Error() string {
	if e == nil {
		return "pipeline error"
	}

	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Code != ErrCodeUnknown {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code.String()))
	}
	if e.Retryable {
		parts = append(parts, "retryable=true")
	}

	// Context keys in deterministic order
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, e.Context[k]))
		}
	}

	contextStr := ""
	if len(parts) > 0 {
		contextStr = fmt.Sprintf(" [%s]", strings.Join(parts, " "))
	}

	if e.Err != nil {
		return e.Err.Error() + contextStr
	}
	return "pipeline error" + contextStr
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	if t, ok := target.(*OpError); ok {
		return e.Code == t.Code
	}
	if e.Err != nil {
		return errors.Is(e.Err, target)
	}
	return false
}

// IsRetryable returns whether the error is retryable.
func (e *OpError) IsRetryable() bool {
	if e == nil {
		return false
	}
	return e.Retryable
}

// GetCode returns the error code as a string (for logging interface compatibility).
func (e *OpError) GetCode() string {
	if e == nil {
		return ErrCodeUnknown.String()
	}
	return e.Code.String()
}

// GetContext returns the error context (for logging interface compatibility).
func (e *OpError) GetContext() map[string]string {
	if e == nil || e.Context == nil {
		return make(map[string]string)
	}
	return e.Context
}

// GetTimestamp returns the error timestamp (for logging interface compatibility).
func (e *OpError) GetTimestamp() time.Time {
	if e == nil {
		return time.Time{}
	}
	return e.Timestamp
}

// New creates a new operation error with the given classification.
func New(op string, err error, code ErrorCode) *OpError {
	return &OpError{
		Op:        op,
		Err:       err,
		Code:      code,
		Retryable: isRetryableCode(code, err),
		Context:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// NewWithContext creates a new operation error with additional context.
// The context map is cloned to avoid external mutation.
func NewWithContext(op string, err error, code ErrorCode, context map[string]string) *OpError {
	opErr := New(op, err, code)
	if context != nil {
		opErr.Context = make(map[string]string, len(context))
		for k, v := range context {
			opErr.Context[k] = v
		}
	}
	return opErr
}

// isRetryableCode determines if an error is retryable based on its classification.
func isRetryableCode(code ErrorCode, err error) bool {
	switch code {
	case ErrCodeConnection, ErrCodeTimeout, ErrCodeBusy, ErrCodeRateLimited:
		return true
	case ErrCodeNotFound, ErrCodeNoData, ErrCodePermission, ErrCodeCorruption,
		ErrCodeValidation, ErrCodeWrite, ErrCodeInternal:
		return false
	default:
		// For unknown errors, check the underlying error message
		if err != nil {
			errStr := strings.ToLower(err.Error())
			return strings.Contains(errStr, "temporary") ||
				strings.Contains(errStr, "retry") ||
				strings.Contains(errStr, "busy") ||
				strings.Contains(errStr, "locked")
		}
		return false
	}
}

// Error classification predicates

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsNoData checks if the error is an "empty window" error.
func IsNoData(err error) bool {
	return hasCode(err, ErrCodeNoData)
}

// IsConnection checks if the error is a "connection" error.
func IsConnection(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

// IsTimeout checks if the error is a "timeout" error.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsPermission checks if the error is a permission error.
func IsPermission(err error) bool {
	return hasCode(err, ErrCodePermission)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsWrite checks if the error is an output write error.
func IsWrite(err error) bool {
	return hasCode(err, ErrCodeWrite)
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Retryable
	}
	return false
}

func hasCode(err error, code ErrorCode) bool {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Code == code
	}
	return false
}
