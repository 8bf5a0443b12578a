// Package report renders analysis results to the terminal, to markdown,
// and to JSON exports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"loopwatch/internal/types"
)

// ConsoleReporter writes human-readable tables to a terminal.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to out.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Render prints the full analysis: headline stats, the death-loop table,
// and the usage leaderboard.
func (r *ConsoleReporter) Render(result *types.AnalysisResult) {
	fmt.Fprintf(r.out, "\nDeath loop analysis, last %d days\n\n", result.WindowDays)

	r.renderStats(result.Stats)

	if len(result.DeathLoops) == 0 {
		fmt.Fprintln(r.out, "\nNo death loops above the occurrence threshold. Good week.")
	} else {
		fmt.Fprintln(r.out)
		r.renderLoops(result.DeathLoops)
	}

	if len(result.TopApps) > 0 {
		fmt.Fprintln(r.out)
		r.renderTopApps(result.TopApps)
	}
}

func (r *ConsoleReporter) renderStats(stats types.SwitchStats) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Total switches", stats.TotalSwitches},
		{"Switches per day", fmt.Sprintf("%.1f", stats.SwitchesPerDay)},
		{"Bounces (<1s return)", fmt.Sprintf("%d (%.1f%%)", stats.Bounces, stats.BounceRate)},
		{"Hours lost to refocus", fmt.Sprintf("%.1f h", stats.HoursLost)},
		{"Estimated cost", fmt.Sprintf("$%.2f", stats.EstimatedCostUSD)},
	})
	t.Render()
}

func (r *ConsoleReporter) renderLoops(loops []types.DeathLoop) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Loop", "Count", "Avg Gap", "Time Lost", "Work Hours", "Peak", "Severity"})
	for i, loop := range loops {
		t.AppendRow(table.Row{
			i + 1,
			loop.Label(),
			loop.Occurrences,
			fmt.Sprintf("%.1fs", loop.AvgGapSeconds),
			formatDuration(loop.TotalTimeLost),
			fmt.Sprintf("%.0f%%", loop.WorkHourPercentage),
			formatHours(loop.PeakHours),
			fmt.Sprintf("%.0f", loop.SeverityScore),
		})
	}
	t.Render()
}

func (r *ConsoleReporter) renderTopApps(apps []types.AppStats) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"App", "Total", "Sessions", "Avg Session"})
	for _, app := range apps {
		t.AppendRow(table.Row{
			app.App,
			formatDuration(app.TotalSeconds),
			app.Sessions,
			formatDuration(app.AvgSeconds),
		})
	}
	t.Render()
}

// RenderBrowser prints one browser's history summary.
func (r *ConsoleReporter) RenderBrowser(summary types.BrowserSummary) {
	fmt.Fprintf(r.out, "\n%s: %d visits across %d domains\n\n",
		summary.Browser, summary.TotalVisits, summary.UniqueDomains)

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Domain", "Visits"})
	for _, d := range summary.TopDomains {
		t.AppendRow(table.Row{d.Domain, d.Visits})
	}
	t.Render()

	fmt.Fprintln(r.out)
	t = table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Category", "Pages"})
	for _, c := range summary.Categories {
		t.AppendRow(table.Row{c.Category, c.Pages})
	}
	t.Render()

	if len(summary.PeakHours) > 0 {
		fmt.Fprintf(r.out, "\nPeak browsing hours: %s\n", formatHours(summary.PeakHours))
	}
}

// formatDuration renders seconds as a compact human duration.
func formatDuration(seconds float64) string {
	switch {
	case seconds >= 3600:
		return fmt.Sprintf("%.1fh", seconds/3600)
	case seconds >= 60:
		return fmt.Sprintf("%.1fm", seconds/60)
	default:
		return fmt.Sprintf("%.0fs", seconds)
	}
}

// formatHours renders hour-of-day peaks like "10:00, 14:00".
func formatHours(hours []int) string {
	if len(hours) == 0 {
		return "-"
	}
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%02d:00", h)
	}
	return strings.Join(parts, ", ")
}
