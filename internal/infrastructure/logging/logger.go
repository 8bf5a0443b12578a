// Package logging provides the structured logger used across the pipeline.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// Logger is the interface the pipeline components log through.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// DefaultLogger emits structured JSON log entries via the standard logger.
type DefaultLogger struct{}

// NewDefaultLogger creates a new default logger instance.
func NewDefaultLogger() Logger {
	return &DefaultLogger{}
}

// logEntry represents one structured log entry.
type logEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields"`
}

// fieldsToMap converts the variadic fields slice to a map.
// Expected format: key1, value1, key2, value2, ...
func fieldsToMap(fields []interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for i := 0; i < len(fields); i += 2 {
		if i+1 < len(fields) {
			if key, ok := fields[i].(string); ok {
				result[key] = fields[i+1]
			} else {
				result[fmt.Sprintf("field_%d", i/2)] = fields[i]
				result[fmt.Sprintf("field_%d_value", i/2)] = fields[i+1]
			}
		} else {
			// Odd number of fields, keep the trailing one under an index key
			result[fmt.Sprintf("field_%d", i/2)] = fields[i]
		}
	}

	return result
}

func (l *DefaultLogger) logStructured(level, msg string, fields []interface{}) {
	entry := logEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level,
		Message:   msg,
		Fields:    fieldsToMap(fields),
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to a safe string representation
		log.Printf("[%s] %s %v (marshal error: %v)", level, msg, fields, err)
		return
	}

	log.Println(string(jsonBytes))
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) {
	l.logStructured("DEBUG", msg, fields)
}

func (l *DefaultLogger) Info(msg string, fields ...interface{}) {
	l.logStructured("INFO", msg, fields)
}

func (l *DefaultLogger) Warn(msg string, fields ...interface{}) {
	l.logStructured("WARN", msg, fields)
}

func (l *DefaultLogger) Error(msg string, fields ...interface{}) {
	l.logStructured("ERROR", msg, fields)
}

// ClassifiedError is the error shape the logger knows how to expand
// (kept as a local interface to avoid a circular import with the errors
// package).
type ClassifiedError interface {
	Error() string
	GetCode() string
	IsRetryable() bool
	GetContext() map[string]string
	GetTimestamp() time.Time
}

// LogError logs a pipeline error with its classification context.
func LogError(logger Logger, err error, operation string, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	if opErr, ok := err.(ClassifiedError); ok {
		fields := []interface{}{
			"operation", operation,
			"error_code", opErr.GetCode(),
			"retryable", opErr.IsRetryable(),
		}
		for k, v := range opErr.GetContext() {
			fields = append(fields, k, v)
		}
		for k, v := range context {
			fields = append(fields, k, v)
		}
		logger.Error(fmt.Sprintf("Pipeline error: %s", err.Error()), fields...)
		return
	}

	fields := []interface{}{
		"operation", operation,
		"error_type", fmt.Sprintf("%T", err),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}
	logger.Error(fmt.Sprintf("Unexpected error: %s", err.Error()), fields...)
}

// LogOperation logs a completed operation with its duration.
func LogOperation(logger Logger, operation string, duration time.Duration, context map[string]interface{}) {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	fields := []interface{}{
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	}
	for k, v := range context {
		fields = append(fields, k, v)
	}
	logger.Info(fmt.Sprintf("Operation completed: %s", operation), fields...)
}

// PrintfAdapter adapts a Logger to the Printf-style interface the retry
// helpers expect.
type PrintfAdapter struct {
	logger Logger
}

// NewPrintfAdapter wraps a Logger for Printf-style consumers.
func NewPrintfAdapter(logger Logger) *PrintfAdapter {
	return &PrintfAdapter{logger: logger}
}

// Printf formats the message and logs it at info level.
func (a *PrintfAdapter) Printf(format string, v ...interface{}) {
	if a.logger != nil {
		a.logger.Info(fmt.Sprintf(format, v...))
	}
}
