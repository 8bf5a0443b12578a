package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/sessions"
	"loopwatch/internal/timeutil"
	"loopwatch/internal/types"
)

// usageQuery pulls raw app usage intervals from the Screen Time store.
// ZSTARTDATE and ZENDDATE are Core Data timestamps (seconds since
// 2001-01-01), ZVALUESTRING holds the bundle identifier.
const usageQuery = `
SELECT ZSTARTDATE, ZENDDATE, ZVALUESTRING
FROM ZOBJECT
WHERE ZSTREAMNAME = '/app/usage'
  AND ZSTARTDATE >= ?
  AND ZSTARTDATE <= ?
  AND ZVALUESTRING IS NOT NULL
ORDER BY ZSTARTDATE ASC`

// usageRow mirrors one row of the usage query.
type usageRow struct {
	Start    float64        `db:"ZSTARTDATE"`
	End      float64        `db:"ZENDDATE"`
	BundleID sql.NullString `db:"ZVALUESTRING"`
}

// UsageRepository reads app usage from a knowledgeC.db snapshot.
type UsageRepository struct {
	db     *sqlx.DB
	logger logging.Logger
}

// NewUsageRepository creates a repository over an open snapshot connection.
func NewUsageRepository(db *sqlx.DB, logger logging.Logger) *UsageRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &UsageRepository{db: db, logger: logger}
}

var _ UsageReader = (*UsageRepository)(nil)

// UsageBetween loads raw usage rows for the window and converts them to
// records with canonical app names. Rows with malformed timestamps are
// dropped during reconstruction, not here.
func (r *UsageRepository) UsageBetween(ctx context.Context, from, to time.Time) ([]types.UsageRecord, error) {
	fromCocoa := float64(timeutil.CocoaFromTime(from))
	toCocoa := float64(timeutil.CocoaFromTime(to))

	var rows []usageRow
	err := dberrors.WithRetryContext(ctx, dberrors.DefaultRetryConfig(), func() error {
		rows = rows[:0]
		if selErr := r.db.SelectContext(ctx, &rows, usageQuery, fromCocoa, toCocoa); selErr != nil {
			return dberrors.WrapWithContext("UsageBetween", selErr, map[string]string{
				"from": from.Format(time.RFC3339),
				"to":   to.Format(time.RFC3339),
			})
		}
		return nil
	}, "UsageBetween")
	if err != nil {
		return nil, err
	}

	records := make([]types.UsageRecord, 0, len(rows))
	for _, row := range rows {
		bundle := row.BundleID.String
		records = append(records, types.UsageRecord{
			BundleID: bundle,
			App:      sessions.CanonicalName(bundle),
			Start:    timeutil.CocoaSeconds(row.Start).Time(),
			End:      timeutil.CocoaSeconds(row.End).Time(),
		})
	}

	if len(records) == 0 {
		r.logger.Warn("No usage rows in window",
			"from", from.Format(time.RFC3339), "to", to.Format(time.RFC3339))
		return nil, types.ErrNoData
	}

	r.logger.Info("Loaded usage rows", "count", len(records))
	return records, nil
}

// topAppsQuery aggregates total foreground seconds per bundle.
const topAppsQuery = `
SELECT ZVALUESTRING,
       SUM(ZENDDATE - ZSTARTDATE) AS total_seconds,
       COUNT(*) AS session_count
FROM ZOBJECT
WHERE ZSTREAMNAME = '/app/usage'
  AND ZSTARTDATE >= ?
  AND ZSTARTDATE <= ?
  AND ZVALUESTRING IS NOT NULL
  AND ZENDDATE > ZSTARTDATE
GROUP BY ZVALUESTRING
ORDER BY total_seconds DESC
LIMIT ?`

type topAppRow struct {
	BundleID     string  `db:"ZVALUESTRING"`
	TotalSeconds float64 `db:"total_seconds"`
	Sessions     int     `db:"session_count"`
}

// TopApps returns the limit most-used apps in the window by total
// foreground time. Unlike UsageBetween, an empty result is just an empty
// slice; callers asking for a leaderboard can render nothing.
func (r *UsageRepository) TopApps(ctx context.Context, from, to time.Time, limit int) ([]types.AppStats, error) {
	if limit <= 0 {
		limit = 10
	}
	fromCocoa := float64(timeutil.CocoaFromTime(from))
	toCocoa := float64(timeutil.CocoaFromTime(to))

	var rows []topAppRow
	err := dberrors.WithRetryContext(ctx, dberrors.DefaultRetryConfig(), func() error {
		rows = rows[:0]
		if selErr := r.db.SelectContext(ctx, &rows, topAppsQuery, fromCocoa, toCocoa, limit); selErr != nil {
			return dberrors.Wrap("TopApps", selErr)
		}
		return nil
	}, "TopApps")
	if err != nil {
		return nil, err
	}

	stats := make([]types.AppStats, 0, len(rows))
	for _, row := range rows {
		s := types.AppStats{
			App:          sessions.CanonicalName(row.BundleID),
			TotalSeconds: row.TotalSeconds,
			Sessions:     row.Sessions,
		}
		if row.Sessions > 0 {
			s.AvgSeconds = row.TotalSeconds / float64(row.Sessions)
		}
		stats = append(stats, s)
	}
	return stats, nil
}
