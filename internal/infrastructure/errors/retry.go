package errors

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"
)

// RetryLogger defines the interface for logging retry operations.
type RetryLogger interface {
	Printf(format string, v ...interface{})
}

// RetryConfig holds configuration for retry logic.
type RetryConfig struct {
	MaxAttempts     int           // Maximum number of retry attempts
	InitialDelay    time.Duration // Initial delay between retries
	MaxDelay        time.Duration // Maximum delay between retries
	BackoffFactor   float64       // Exponential backoff factor
	Jitter          bool          // Whether to add jitter to delays
	RetryableErrors []ErrorCode   // Specific error codes to retry
}

// Package-level logger variable that can be set by callers
var retryLogger RetryLogger

// SetRetryLogger sets the package-level logger for retry operations.
func SetRetryLogger(logger RetryLogger) {
	retryLogger = logger
}

func logRetryMessage(format string, v ...interface{}) {
	if retryLogger != nil {
		retryLogger.Printf(format, v...)
	}
}

// DefaultRetryConfig returns a retry configuration suited to local
// database reads: a locked or briefly unavailable file is worth a few
// quick attempts, everything else fails fast.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeBusy,
		},
	}
}

// AdvisorRetryConfig returns the retry configuration for the external
// advisor API: longer delays, and rate limiting counts as retryable.
func AdvisorRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeConnection,
			ErrCodeTimeout,
			ErrCodeRateLimited,
		},
	}
}

// RetryableOperation represents an operation that can be retried.
type RetryableOperation func() error

// WithRetry executes an operation with retry logic.
func WithRetry(ctx context.Context, config *RetryConfig, operation RetryableOperation) error {
	return withRetryImpl(ctx, config, operation, "")
}

// WithRetryContext executes a named operation with retry logic.
func WithRetryContext(ctx context.Context, config *RetryConfig, operation RetryableOperation, operationName string) error {
	return withRetryImpl(ctx, config, operation, operationName)
}

func withRetryImpl(ctx context.Context, config *RetryConfig, operation RetryableOperation, operationName string) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 && operationName != "" {
				logRetryMessage("Operation '%s' succeeded after %d attempts", operationName, attempt+1)
			}
			return nil
		}

		lastErr = err

		if !shouldRetry(err, config) {
			if operationName != "" {
				logRetryMessage("Operation '%s' failed with non-retryable error: %v", operationName, err)
			}
			return err
		}

		// Don't sleep after the last attempt
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateDelay(attempt, config)

		if operationName != "" {
			logRetryMessage("Operation '%s' failed (attempt %d/%d), retrying in %v: %v",
				operationName, attempt+1, config.MaxAttempts, delay, err)
		}

		select {
		case <-ctx.Done():
			if operationName != "" {
				return fmt.Errorf("operation '%s' cancelled during retry: %w", operationName, ctx.Err())
			}
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if operationName != "" {
		return fmt.Errorf("operation '%s' failed after %d attempts: %w", operationName, config.MaxAttempts, lastErr)
	}
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// shouldRetry determines if an error should be retried based on configuration.
func shouldRetry(err error, config *RetryConfig) bool {
	var opErr *OpError
	if !errors.As(err, &opErr) {
		return false // only retry classified errors
	}
	if !opErr.IsRetryable() {
		return false
	}
	return slices.Contains(config.RetryableErrors, opErr.Code)
}

// calculateDelay calculates the delay for the next retry attempt.
func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= config.BackoffFactor
	}

	delay := time.Duration(float64(config.InitialDelay) * multiplier)

	// Up to 25% jitter, applied before the max delay limit
	if config.Jitter && delay > 0 {
		jitterAmount := time.Duration(float64(delay) * 0.25)
		if jitterAmount > 0 {
			delay += time.Duration(time.Now().UnixNano() % int64(jitterAmount))
		}
	}

	return min(delay, config.MaxDelay)
}
