package errors

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
)

func TestErrorCodeString(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want string
	}{
		{ErrCodeNotFound, "NOT_FOUND"},
		{ErrCodeNoData, "NO_DATA"},
		{ErrCodeBusy, "BUSY"},
		{ErrCodeWrite, "WRITE"},
		{ErrCodeRateLimited, "RATE_LIMITED"},
		{ErrCodeUnknown, "UNKNOWN"},
		{ErrorCode(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.code.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestOpErrorMessage(t *testing.T) {
	err := NewWithContext("UsageBetween", errors.New("database is locked"), ErrCodeBusy,
		map[string]string{"path": "/tmp/k.db"})

	msg := err.Error()
	for _, want := range []string{"database is locked", "op=UsageBetween", "code=BUSY", "retryable=true", "path=/tmp/k.db"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestRetryableByCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeConnection, true},
		{ErrCodeTimeout, true},
		{ErrCodeBusy, true},
		{ErrCodeRateLimited, true},
		{ErrCodeNotFound, false},
		{ErrCodeNoData, false},
		{ErrCodeValidation, false},
		{ErrCodeWrite, false},
	}
	for _, tt := range tests {
		err := New("op", errors.New("x"), tt.code)
		if got := err.IsRetryable(); got != tt.want {
			t.Errorf("code %s retryable = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"missing file", fs.ErrNotExist, ErrCodeNotFound},
		{"permission", fs.ErrPermission, ErrCodePermission},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"cancelled", context.Canceled, ErrCodeTimeout},
		{"locked message", errors.New("database is locked"), ErrCodeBusy},
		{"missing table", errors.New("no such table: ZOBJECT"), ErrCodeCorruption},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, ErrCodeBusy},
		{"sqlite not a db", sqlite3.Error{Code: sqlite3.ErrNotADB}, ErrCodeCorruption},
		{"sqlite cant open", sqlite3.Error{Code: sqlite3.ErrCantOpen}, ErrCodeConnection},
		{"unknown", errors.New("something else"), ErrCodeUnknown},
		{"nil", nil, ErrCodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	notFound := HandleSourceMissing("Snapshot", "/x/knowledgeC.db", "grant Full Disk Access")
	if !IsNotFound(notFound) {
		t.Error("IsNotFound = false for source-missing error")
	}
	if !errors.Is(notFound, fs.ErrNotExist) {
		t.Error("source-missing error should unwrap to fs.ErrNotExist")
	}

	validation := HandleValidationError("Load", "windowDays", "0", "must be positive")
	if !IsValidation(validation) {
		t.Error("IsValidation = false")
	}
	if IsRetryable(validation) {
		t.Error("validation errors must not be retryable")
	}

	conn := HandleConnectionError("Connect", "refused")
	if !IsConnection(conn) || !IsRetryable(conn) {
		t.Error("connection errors should be retryable")
	}

	if IsNotFound(errors.New("plain")) {
		t.Error("plain errors should not match predicates")
	}
}

func TestWithRetrySucceedsAfterBusy(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy},
	}

	calls := 0
	err := WithRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return New("op", errors.New("database is locked"), ErrCodeBusy)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return New("op", errors.New("bad input"), ErrCodeValidation)
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	cfg := &RetryConfig{
		MaxAttempts:     2,
		InitialDelay:    time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy},
	}

	calls := 0
	err := WithRetryContext(context.Background(), cfg, func() error {
		calls++
		return New("op", errors.New("database is locked"), ErrCodeBusy)
	}, "stubborn")
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !IsRetryable(err) {
		t.Error("exhausted error should still unwrap to the retryable cause")
	}
}

func TestWithRetryHonorsContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    50 * time.Millisecond,
		MaxDelay:        time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: []ErrorCode{ErrCodeBusy},
	}

	err := WithRetry(ctx, cfg, func() error {
		return New("op", errors.New("database is locked"), ErrCodeBusy)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWithRetryIgnoresUnclassifiedErrors(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), DefaultRetryConfig(), func() error {
		calls++
		return errors.New("raw error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("raw errors must not retry, calls = %d", calls)
	}
}
