// Package sessions turns raw usage rows into the ordered focus-session
// timeline the switch detector walks.
package sessions

import (
	"sort"

	"loopwatch/internal/types"
)

// Reconstruct orders records ascending by start time, fills in canonical
// application names, and drops records whose timestamps are unusable.
// Overlapping records are kept as-is; the detector decides what to do with
// the transitions between them.
func Reconstruct(records []types.UsageRecord) []types.UsageRecord {
	out := make([]types.UsageRecord, 0, len(records))

	for _, r := range records {
		if r.Start.IsZero() || r.End.IsZero() {
			continue // malformed timestamps, skip rather than abort
		}
		if r.End.Before(r.Start) {
			continue
		}
		if r.BundleID != "" || r.App == "" {
			r.App = CanonicalName(r.BundleID)
		}
		if r.Duration == 0 {
			r.Duration = r.End.Sub(r.Start).Seconds()
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})

	return out
}
