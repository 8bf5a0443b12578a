package repository

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/timeutil"
	"loopwatch/internal/types"
)

// Each browser keeps history in its own schema and epoch. The three
// repositories below normalize all of them into []types.Visit.

// safariQuery joins items to visits; visit_time is in Cocoa seconds.
const safariQuery = `
SELECT hi.url, hv.title, hv.visit_time, hi.visit_count
FROM history_items hi
JOIN history_visits hv ON hi.id = hv.history_item
WHERE hv.visit_time >= ? AND hv.visit_time <= ?
ORDER BY hv.visit_time ASC`

// chromeQuery reads the urls table; last_visit_time is in Chrome micros.
const chromeQuery = `
SELECT url, title, visit_count, last_visit_time
FROM urls
WHERE last_visit_time >= ? AND last_visit_time <= ?
ORDER BY last_visit_time ASC`

// firefoxQuery joins places to visits; visit_date is in Unix micros.
const firefoxQuery = `
SELECT p.url, p.title, p.visit_count, h.visit_date
FROM moz_places p
JOIN moz_historyvisits h ON p.id = h.place_id
WHERE h.visit_date >= ? AND h.visit_date <= ?
ORDER BY h.visit_date ASC`

// SafariRepository reads a Safari History.db snapshot.
type SafariRepository struct {
	db     *sqlx.DB
	logger logging.Logger
}

// NewSafariRepository creates a reader over an open Safari snapshot.
func NewSafariRepository(db *sqlx.DB, logger logging.Logger) *SafariRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SafariRepository{db: db, logger: logger}
}

var _ VisitReader = (*SafariRepository)(nil)

func (r *SafariRepository) Browser() string { return "Safari" }

type safariRow struct {
	URL        string         `db:"url"`
	Title      sql.NullString `db:"title"`
	VisitTime  float64        `db:"visit_time"`
	VisitCount int            `db:"visit_count"`
}

func (r *SafariRepository) VisitsBetween(ctx context.Context, from, to time.Time) ([]types.Visit, error) {
	var rows []safariRow
	err := dberrors.WithRetryContext(ctx, dberrors.DefaultRetryConfig(), func() error {
		rows = rows[:0]
		if selErr := r.db.SelectContext(ctx, &rows, safariQuery,
			float64(timeutil.CocoaFromTime(from)), float64(timeutil.CocoaFromTime(to))); selErr != nil {
			return dberrors.Wrap("Safari.VisitsBetween", selErr)
		}
		return nil
	}, "Safari.VisitsBetween")
	if err != nil {
		return nil, err
	}

	visits := make([]types.Visit, 0, len(rows))
	for _, row := range rows {
		visits = append(visits, types.Visit{
			URL:        row.URL,
			Title:      row.Title.String,
			Domain:     DomainOf(row.URL),
			VisitCount: row.VisitCount,
			Time:       timeutil.CocoaSeconds(row.VisitTime).Time(),
		})
	}
	return finishVisits(r.logger, r.Browser(), visits)
}

// ChromeRepository reads a Chrome History snapshot.
type ChromeRepository struct {
	db     *sqlx.DB
	logger logging.Logger
}

// NewChromeRepository creates a reader over an open Chrome snapshot.
func NewChromeRepository(db *sqlx.DB, logger logging.Logger) *ChromeRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &ChromeRepository{db: db, logger: logger}
}

var _ VisitReader = (*ChromeRepository)(nil)

func (r *ChromeRepository) Browser() string { return "Chrome" }

type chromeRow struct {
	URL           string         `db:"url"`
	Title         sql.NullString `db:"title"`
	VisitCount    int            `db:"visit_count"`
	LastVisitTime int64          `db:"last_visit_time"`
}

func (r *ChromeRepository) VisitsBetween(ctx context.Context, from, to time.Time) ([]types.Visit, error) {
	var rows []chromeRow
	err := dberrors.WithRetryContext(ctx, dberrors.DefaultRetryConfig(), func() error {
		rows = rows[:0]
		if selErr := r.db.SelectContext(ctx, &rows, chromeQuery,
			int64(timeutil.ChromeFromTime(from)), int64(timeutil.ChromeFromTime(to))); selErr != nil {
			return dberrors.Wrap("Chrome.VisitsBetween", selErr)
		}
		return nil
	}, "Chrome.VisitsBetween")
	if err != nil {
		return nil, err
	}

	visits := make([]types.Visit, 0, len(rows))
	for _, row := range rows {
		visits = append(visits, types.Visit{
			URL:        row.URL,
			Title:      row.Title.String,
			Domain:     DomainOf(row.URL),
			VisitCount: row.VisitCount,
			Time:       timeutil.ChromeMicros(row.LastVisitTime).Time(),
		})
	}
	return finishVisits(r.logger, r.Browser(), visits)
}

// FirefoxRepository reads a Firefox places.sqlite snapshot.
type FirefoxRepository struct {
	db     *sqlx.DB
	logger logging.Logger
}

// NewFirefoxRepository creates a reader over an open Firefox snapshot.
func NewFirefoxRepository(db *sqlx.DB, logger logging.Logger) *FirefoxRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FirefoxRepository{db: db, logger: logger}
}

var _ VisitReader = (*FirefoxRepository)(nil)

func (r *FirefoxRepository) Browser() string { return "Firefox" }

type firefoxRow struct {
	URL        string         `db:"url"`
	Title      sql.NullString `db:"title"`
	VisitCount int            `db:"visit_count"`
	VisitDate  int64          `db:"visit_date"`
}

func (r *FirefoxRepository) VisitsBetween(ctx context.Context, from, to time.Time) ([]types.Visit, error) {
	var rows []firefoxRow
	err := dberrors.WithRetryContext(ctx, dberrors.DefaultRetryConfig(), func() error {
		rows = rows[:0]
		if selErr := r.db.SelectContext(ctx, &rows, firefoxQuery,
			int64(timeutil.FirefoxFromTime(from)), int64(timeutil.FirefoxFromTime(to))); selErr != nil {
			return dberrors.Wrap("Firefox.VisitsBetween", selErr)
		}
		return nil
	}, "Firefox.VisitsBetween")
	if err != nil {
		return nil, err
	}

	visits := make([]types.Visit, 0, len(rows))
	for _, row := range rows {
		visits = append(visits, types.Visit{
			URL:        row.URL,
			Title:      row.Title.String,
			Domain:     DomainOf(row.URL),
			VisitCount: row.VisitCount,
			Time:       timeutil.FirefoxMicros(row.VisitDate).Time(),
		})
	}
	return finishVisits(r.logger, r.Browser(), visits)
}

func finishVisits(logger logging.Logger, browser string, visits []types.Visit) ([]types.Visit, error) {
	if len(visits) == 0 {
		logger.Warn("No history rows in window", "browser", browser)
		return nil, types.ErrNoData
	}
	logger.Info("Loaded history rows", "browser", browser, "count", len(visits))
	return visits, nil
}

// DomainOf extracts the lowercased host from a URL, with the www prefix
// stripped. Unparseable URLs yield the empty string.
func DomainOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
