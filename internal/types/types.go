// Package types holds the value types produced by the analysis pipeline.
// Everything here is an immutable value reconstructed fresh on every run.
package types

import (
	"errors"
	"time"
)

// ErrNoData is returned when the source database opens fine but holds no
// usage rows for the requested window. Callers treat this as a distinct,
// non-fatal condition rather than an empty report.
var ErrNoData = errors.New("no usage data in the requested window")

// UsageRecord is one observed interval of foreground application use.
type UsageRecord struct {
	BundleID string    `json:"bundleId"`
	App      string    `json:"app"` // human-readable name, canonicalized from BundleID
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Duration float64   `json:"durationSeconds"`
}

// Switch is a detected transition between two consecutive usage records
// whose gap fell under the configured threshold.
type Switch struct {
	FromApp      string
	ToApp        string
	SwitchTime   time.Time // end of the session being left
	GapSeconds   float64
	FromDuration float64
	ToDuration   float64
	Hour         int
	Weekday      time.Weekday
}

// DeathLoop is an unordered application pair with aggregate switch
// statistics. AppA sorts before AppB lexicographically so (A,B) and (B,A)
// always land in the same group.
type DeathLoop struct {
	AppA               string  `json:"app_a"`
	AppB               string  `json:"app_b"`
	Occurrences        int     `json:"occurrences"`
	AvgGapSeconds      float64 `json:"avg_gap_seconds"`
	TotalTimeLost      float64 `json:"total_time_lost"`
	WorkHourPercentage float64 `json:"work_hour_percentage"`
	PeakHours          []int   `json:"peak_hours"`
	SeverityScore      float64 `json:"severity_score"`
}

// Label returns the display form of the pair, e.g. "Safari ↔ Telegram".
func (d DeathLoop) Label() string {
	return d.AppA + " ↔ " + d.AppB
}

// AppStats summarizes total usage for one application over the window.
type AppStats struct {
	App          string  `json:"app"`
	TotalSeconds float64 `json:"total_seconds"`
	AvgSeconds   float64 `json:"avg_seconds"`
	Sessions     int     `json:"sessions"`
}

// SwitchStats holds window-wide context switching totals.
type SwitchStats struct {
	TotalSwitches    int     `json:"total_switches"`
	SwitchesPerDay   float64 `json:"switches_per_day"`
	Bounces          int     `json:"bounces"`
	BounceRate       float64 `json:"bounce_rate"` // percentage of switches
	HoursLost        float64 `json:"hours_lost"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// AnalysisResult is the complete output of one analysis run.
type AnalysisResult struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	WindowDays  int         `json:"window_days"`
	DeathLoops  []DeathLoop `json:"death_loops"`
	TopApps     []AppStats  `json:"top_apps"`
	Stats       SwitchStats `json:"stats"`
}

// Visit is one browser history entry, normalized across browsers.
type Visit struct {
	URL        string
	Title      string
	Domain     string
	VisitCount int
	Time       time.Time
}

// DomainCount pairs a domain with its visit count.
type DomainCount struct {
	Domain string `json:"domain"`
	Visits int    `json:"visits"`
}

// CategoryCount pairs an activity category with its page count.
type CategoryCount struct {
	Category string `json:"category"`
	Pages    int    `json:"pages"`
}

// BrowserSummary is the category/domain breakdown for one browser.
type BrowserSummary struct {
	Browser       string          `json:"browser"`
	TotalVisits   int             `json:"total_visits"`
	UniqueDomains int             `json:"unique_domains"`
	TopDomains    []DomainCount   `json:"top_domains"`
	Categories    []CategoryCount `json:"categories"`
	PeakHours     []int           `json:"peak_hours"`
}
