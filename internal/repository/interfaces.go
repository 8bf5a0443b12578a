// Package repository reads usage and browser history rows out of the
// snapshot databases and converts them to pipeline types.
package repository

import (
	"context"
	"time"

	"loopwatch/internal/types"
)

// UsageReader loads foreground app usage intervals for a time window.
type UsageReader interface {
	// UsageBetween returns records with Start in [from, to], ordered by
	// Start ascending. Returns types.ErrNoData when the window is empty.
	UsageBetween(ctx context.Context, from, to time.Time) ([]types.UsageRecord, error)
}

// VisitReader loads browser history visits for a time window.
type VisitReader interface {
	// Browser names the browser this reader serves, e.g. "Safari".
	Browser() string

	// VisitsBetween returns visits in [from, to], ordered by time
	// ascending. Returns types.ErrNoData when the window is empty.
	VisitsBetween(ctx context.Context, from, to time.Time) ([]types.Visit, error)
}
