// Package detector implements the switch and death-loop detection pipeline:
// a linear scan over the session timeline, followed by per-pair aggregation
// and severity ranking.
package detector

import (
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/types"
)

// Config controls detection and aggregation thresholds.
type Config struct {
	ThresholdSeconds float64 // gap must be strictly below this to count as a switch
	MinOccurrences   int     // pair count required to report a death loop
	WorkHoursStart   int     // inclusive hour, 0-23
	WorkHoursEnd     int     // exclusive hour, 1-24
	PeakHours        int     // peak hours reported per loop
	FrequencyWeight  float64 // severity weight for occurrence count
	SpeedWeight      float64 // severity weight for switch speed
}

// DefaultConfig returns the thresholds used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ThresholdSeconds: 10,
		MinOccurrences:   5,
		WorkHoursStart:   9,
		WorkHoursEnd:     18,
		PeakHours:        3,
		FrequencyWeight:  1.0,
		SpeedWeight:      1.0,
	}
}

// Detector runs the detection pipeline over a reconstructed timeline.
type Detector struct {
	cfg    Config
	logger logging.Logger
}

// New creates a detector with the given configuration.
func New(cfg Config, logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Detector{cfg: cfg, logger: logger}
}

// DetectSwitches walks adjacent session pairs and emits a Switch for every
// transition whose gap is in [0, threshold).
//
// Negative gaps mean the raw records overlap; those transitions are not
// clean context switches and are discarded rather than clamped, so no
// negative duration can reach the aggregator.
func (d *Detector) DetectSwitches(records []types.UsageRecord) []types.Switch {
	if len(records) < 2 {
		return nil
	}

	switches := make([]types.Switch, 0, len(records)/4)
	dropped := 0

	for i := 0; i < len(records)-1; i++ {
		current, next := records[i], records[i+1]

		gap := next.Start.Sub(current.End).Seconds()
		if gap < 0 {
			dropped++
			continue
		}
		if gap >= d.cfg.ThresholdSeconds {
			continue
		}

		switches = append(switches, types.Switch{
			FromApp:      current.App,
			ToApp:        next.App,
			SwitchTime:   current.End,
			GapSeconds:   gap,
			FromDuration: current.Duration,
			ToDuration:   next.Duration,
			Hour:         current.End.Hour(),
			Weekday:      current.End.Weekday(),
		})
	}

	if dropped > 0 {
		d.logger.Debug("Discarded overlapping transitions", "count", dropped)
	}
	d.logger.Info("Detected switches", "records", len(records), "switches", len(switches),
		"threshold_seconds", d.cfg.ThresholdSeconds)

	return switches
}
