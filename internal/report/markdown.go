package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	dberrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/types"
)

// MarkdownReporter writes the weekly report file.
type MarkdownReporter struct {
	dir string
}

// NewMarkdownReporter writes reports under dir.
func NewMarkdownReporter(dir string) *MarkdownReporter {
	return &MarkdownReporter{dir: dir}
}

// Write renders the result as markdown and returns the file path. The
// file name carries the generation date so successive runs never clobber
// each other.
func (r *MarkdownReporter) Write(result *types.AnalysisResult) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", dberrors.New("WriteMarkdown", fmt.Errorf("create report dir: %w", err), dberrors.ErrCodeWrite)
	}

	path := filepath.Join(r.dir, fmt.Sprintf("death-loops-%s.md", result.GeneratedAt.Format("2006-01-02")))
	if err := os.WriteFile(path, []byte(r.render(result)), 0o644); err != nil {
		return "", dberrors.NewWithContext("WriteMarkdown", err, dberrors.ErrCodeWrite,
			map[string]string{"path": path})
	}
	return path, nil
}

func (r *MarkdownReporter) render(result *types.AnalysisResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Death Loop Report\n\n")
	fmt.Fprintf(&b, "Generated %s, covering the last %d days.\n\n",
		result.GeneratedAt.Format(time.RFC1123), result.WindowDays)

	s := result.Stats
	fmt.Fprintf(&b, "## The damage\n\n")
	fmt.Fprintf(&b, "- **%d** context switches (%.1f per day)\n", s.TotalSwitches, s.SwitchesPerDay)
	fmt.Fprintf(&b, "- **%d** bounces, returns within a second (%.1f%% of switches)\n", s.Bounces, s.BounceRate)
	fmt.Fprintf(&b, "- **%.1f hours** lost to refocusing, roughly **$%.2f**\n\n", s.HoursLost, s.EstimatedCostUSD)

	fmt.Fprintf(&b, "## Death loops\n\n")
	if len(result.DeathLoops) == 0 {
		fmt.Fprintf(&b, "None above the occurrence threshold this window.\n\n")
	} else {
		fmt.Fprintf(&b, "| # | Loop | Count | Avg Gap | Time Lost | Work Hours | Peak | Severity |\n")
		fmt.Fprintf(&b, "|---|------|-------|---------|-----------|------------|------|----------|\n")
		for i, loop := range result.DeathLoops {
			fmt.Fprintf(&b, "| %d | %s | %d | %.1fs | %s | %.0f%% | %s | %.0f |\n",
				i+1, loop.Label(), loop.Occurrences, loop.AvgGapSeconds,
				formatDuration(loop.TotalTimeLost), loop.WorkHourPercentage,
				formatHours(loop.PeakHours), loop.SeverityScore)
		}
		b.WriteString("\n")
	}

	if len(result.TopApps) > 0 {
		fmt.Fprintf(&b, "## Where the time went\n\n")
		fmt.Fprintf(&b, "| App | Total | Sessions | Avg Session |\n")
		fmt.Fprintf(&b, "|-----|-------|----------|-------------|\n")
		for _, app := range result.TopApps {
			fmt.Fprintf(&b, "| %s | %s | %d | %s |\n",
				app.App, formatDuration(app.TotalSeconds), app.Sessions, formatDuration(app.AvgSeconds))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "---\n\nRun `loopwatch interventions` to generate blockers for the worst loops.\n")
	return b.String()
}
