package detector

import (
	"sort"

	"loopwatch/internal/types"
)

// pairKey identifies an unordered app pair. Lo sorts before Hi so that
// A→B and B→A transitions land in the same bucket.
type pairKey struct {
	Lo, Hi string
}

func keyFor(a, b string) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{Lo: a, Hi: b}
}

type pairAccum struct {
	count      int
	gapSum     float64
	timeLost   float64
	workHour   int
	hourCounts [24]int
}

// Aggregate groups switches by unordered app pair and produces the ranked
// death-loop report. Self-switches are ignored. Pairs below the
// configured minimum occurrence count are dropped.
//
// Time lost per occurrence is the shorter of the two session durations
// around the switch: the briefer visit is the interruption.
func (d *Detector) Aggregate(switches []types.Switch) []types.DeathLoop {
	accums := make(map[pairKey]*pairAccum)

	for _, sw := range switches {
		if sw.FromApp == sw.ToApp {
			continue
		}
		key := keyFor(sw.FromApp, sw.ToApp)
		acc := accums[key]
		if acc == nil {
			acc = &pairAccum{}
			accums[key] = acc
		}
		acc.count++
		acc.gapSum += sw.GapSeconds
		acc.timeLost += minDuration(sw.FromDuration, sw.ToDuration)
		acc.hourCounts[sw.Hour]++
		if sw.Hour >= d.cfg.WorkHoursStart && sw.Hour < d.cfg.WorkHoursEnd {
			acc.workHour++
		}
	}

	loops := make([]types.DeathLoop, 0, len(accums))
	for key, acc := range accums {
		if acc.count < d.cfg.MinOccurrences {
			continue
		}
		avgGap := acc.gapSum / float64(acc.count)
		loops = append(loops, types.DeathLoop{
			AppA:               key.Lo,
			AppB:               key.Hi,
			Occurrences:        acc.count,
			AvgGapSeconds:      avgGap,
			TotalTimeLost:      acc.timeLost,
			WorkHourPercentage: 100 * float64(acc.workHour) / float64(acc.count),
			PeakHours:          topHours(acc.hourCounts, d.cfg.PeakHours),
		})
	}

	d.scoreSeverity(loops)

	sort.Slice(loops, func(i, j int) bool {
		a, b := loops[i], loops[j]
		if a.SeverityScore != b.SeverityScore {
			return a.SeverityScore > b.SeverityScore
		}
		if a.Occurrences != b.Occurrences {
			return a.Occurrences > b.Occurrences
		}
		return a.Label() < b.Label()
	})

	d.logger.Info("Aggregated death loops", "pairs", len(accums), "reported", len(loops),
		"min_occurrences", d.cfg.MinOccurrences)

	return loops
}

// scoreSeverity assigns each loop a 0-100 score relative to the worst loop
// in the batch. Speed uses 1/(avgGap+1) so an instant bounce scores 1 and
// the score stays bounded as gaps approach zero.
func (d *Detector) scoreSeverity(loops []types.DeathLoop) {
	if len(loops) == 0 {
		return
	}

	raws := make([]float64, len(loops))
	maxRaw := 0.0
	for i, loop := range loops {
		speed := 1 / (loop.AvgGapSeconds + 1)
		raws[i] = d.cfg.FrequencyWeight*float64(loop.Occurrences) + d.cfg.SpeedWeight*speed
		if raws[i] > maxRaw {
			maxRaw = raws[i]
		}
	}
	if maxRaw == 0 {
		return
	}
	for i := range loops {
		loops[i].SeverityScore = 100 * raws[i] / maxRaw
	}
}

// topHours returns up to n hours ordered by descending count, ties broken
// by earlier hour. Hours with zero occurrences are never reported.
func topHours(counts [24]int, n int) []int {
	hours := make([]int, 0, 24)
	for h, c := range counts {
		if c > 0 {
			hours = append(hours, h)
		}
	}
	sort.Slice(hours, func(i, j int) bool {
		if counts[hours[i]] != counts[hours[j]] {
			return counts[hours[i]] > counts[hours[j]]
		}
		return hours[i] < hours[j]
	})
	if len(hours) > n {
		hours = hours[:n]
	}
	return hours
}

func minDuration(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
