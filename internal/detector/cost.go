package detector

import "loopwatch/internal/types"

// CostModel prices context switches in time and money. Each switch is
// charged a flat refocus cost regardless of the measured gap; the gap is
// how fast you moved, not how long it took to get your head back.
type CostModel struct {
	PerSwitchSeconds float64
	HourlyRateUSD    float64
}

// DefaultCostModel charges thirty seconds of refocus time per switch at
// a fifty dollar hourly rate.
func DefaultCostModel() CostModel {
	return CostModel{PerSwitchSeconds: 30, HourlyRateUSD: 50}
}

// Stats computes the window-wide switch statistics for a report.
// windowDays must be at least 1.
func (m CostModel) Stats(switches []types.Switch, windowDays int) types.SwitchStats {
	if windowDays < 1 {
		windowDays = 1
	}

	total := len(switches)
	bounces := CountBounces(switches)
	hoursLost := float64(total) * m.PerSwitchSeconds / 3600

	stats := types.SwitchStats{
		TotalSwitches:    total,
		SwitchesPerDay:   float64(total) / float64(windowDays),
		Bounces:          bounces,
		HoursLost:        hoursLost,
		EstimatedCostUSD: hoursLost * m.HourlyRateUSD,
	}
	if total > 0 {
		stats.BounceRate = 100 * float64(bounces) / float64(total)
	}
	return stats
}
