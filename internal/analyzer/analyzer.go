// Package analyzer runs the full analysis pipeline over one window:
// load usage, rebuild the timeline, detect switches, aggregate loops,
// and price the damage.
package analyzer

import (
	"context"
	"time"

	"github.com/google/uuid"

	"loopwatch/internal/config"
	"loopwatch/internal/detector"
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/repository"
	"loopwatch/internal/sessions"
	"loopwatch/internal/types"
)

// topAppLimit caps the usage leaderboard in the result.
const topAppLimit = 10

// AppRanker is the optional leaderboard source; UsageRepository provides
// it, test doubles may not.
type AppRanker interface {
	TopApps(ctx context.Context, from, to time.Time, limit int) ([]types.AppStats, error)
}

// Analyzer wires the pipeline stages together.
type Analyzer struct {
	usage    repository.UsageReader
	detector *detector.Detector
	cost     detector.CostModel
	window   int
	logger   logging.Logger

	// now is swappable so tests can pin the window.
	now func() time.Time
}

// New builds an analyzer from the runtime configuration.
func New(usage repository.UsageReader, cfg *config.Config, logger logging.Logger) *Analyzer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	d := cfg.Detection
	return &Analyzer{
		usage: usage,
		detector: detector.New(detector.Config{
			ThresholdSeconds: d.ThresholdSeconds,
			MinOccurrences:   d.MinOccurrences,
			WorkHoursStart:   d.WorkHoursStart,
			WorkHoursEnd:     d.WorkHoursEnd,
			PeakHours:        d.PeakHours,
			FrequencyWeight:  d.FrequencyWeight,
			SpeedWeight:      d.SpeedWeight,
		}, logger),
		cost: detector.CostModel{
			PerSwitchSeconds: cfg.Cost.PerSwitchSeconds,
			HourlyRateUSD:    cfg.Cost.HourlyRateUSD,
		},
		window: d.WindowDays,
		logger: logger,
		now:    time.Now,
	}
}

// Window returns the [from, to] bounds of the current analysis window.
func (a *Analyzer) Window() (time.Time, time.Time) {
	to := a.now()
	return to.AddDate(0, 0, -a.window), to
}

// Run executes the pipeline and returns the complete result. The
// types.ErrNoData sentinel passes through untouched so callers can treat
// an empty window as its own outcome.
func (a *Analyzer) Run(ctx context.Context) (*types.AnalysisResult, error) {
	from, to := a.Window()

	records, err := a.usage.UsageBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	timeline := sessions.Reconstruct(records)
	switches := a.detector.DetectSwitches(timeline)
	loops := a.detector.Aggregate(switches)
	stats := a.cost.Stats(switches, a.window)

	result := &types.AnalysisResult{
		RunID:       uuid.NewString(),
		GeneratedAt: a.now(),
		WindowDays:  a.window,
		DeathLoops:  loops,
		Stats:       stats,
	}

	if ranker, ok := a.usage.(AppRanker); ok {
		topApps, err := ranker.TopApps(ctx, from, to, topAppLimit)
		if err != nil {
			a.logger.Warn("Usage leaderboard unavailable", "error", err)
		} else {
			result.TopApps = topApps
		}
	}

	a.logger.Info("Analysis complete", "run_id", result.RunID,
		"loops", len(loops), "switches", stats.TotalSwitches)
	return result, nil
}
