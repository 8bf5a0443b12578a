// Command loopwatch mines the macOS Screen Time database for death
// loops: rapid back-and-forth app switches that shred focus. It
// snapshots the source databases, analyzes the window, reports the
// damage, and generates Hammerspoon countermeasures.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"loopwatch/internal/advisor"
	"loopwatch/internal/analyzer"
	"loopwatch/internal/classifier"
	"loopwatch/internal/config"
	"loopwatch/internal/database"
	apperrors "loopwatch/internal/infrastructure/errors"
	"loopwatch/internal/infrastructure/logging"
	"loopwatch/internal/interventions"
	"loopwatch/internal/report"
	"loopwatch/internal/repository"
	"loopwatch/internal/types"
)

var (
	flagConfig    string
	flagDataDir   string
	flagDays      int
	flagThreshold float64
	flagMinOccur  int
	flagJSON      bool
	flagMarkdown  bool
	flagAdvise    bool
	flagYes       bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "loopwatch",
		Short: "Find and break the app-switching death loops eating your week",
		Long: `loopwatch reads the macOS Screen Time database (knowledgeC.db) and
browser history, reconstructs your app-switching timeline, and surfaces
death loops: pairs of apps you bounce between every few seconds.

Run "loopwatch snapshot" first, then "loopwatch analyze".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "directory holding database snapshots")

	root.AddCommand(newSnapshotCmd())
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newBrowserCmd())
	root.AddCommand(newInterventionsCmd())
	return root
}

// loadConfig applies flag overrides on top of the layered configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if cmd.Flags().Changed("days") {
		cfg.Detection.WindowDays = flagDays
	}
	if cmd.Flags().Changed("threshold") {
		cfg.Detection.ThresholdSeconds = flagThreshold
	}
	if cmd.Flags().Changed("min-occurrences") {
		cfg.Detection.MinOccurrences = flagMinOccur
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Copy the live source databases into the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewDefaultLogger()

			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("resolve home directory: %w", err)
			}

			sources := database.KnownSources(home)
			// Config-level source paths win over the defaults.
			for i := range sources {
				switch sources[i].Name {
				case "knowledgeC.db":
					sources[i].LivePath = cfg.Sources.ScreenTimeDB
				case "safari_history.db":
					sources[i].LivePath = cfg.Sources.SafariHistoryDB
				case "chrome_history.db":
					sources[i].LivePath = cfg.Sources.ChromeHistoryDB
				}
			}

			snap := database.NewSnapshotter(cfg.DataDir, logger)
			written, skipped, err := snap.SnapshotAll(sources)
			if err != nil {
				return err
			}

			for _, path := range written {
				fmt.Fprintf(cmd.OutOrStdout(), "snapshotted %s\n", path)
			}
			for _, src := range skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "skipped %s (%s)\n", src.Name, src.Instruction)
			}
			if len(written) == 0 {
				return fmt.Errorf("no source databases were available; %s", sources[0].Instruction)
			}
			return nil
		},
	}
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Detect death loops in the snapshot and report the damage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewDefaultLogger()
			ctx := cmd.Context()

			svc := database.NewService(logger)
			snapshotPath := cfg.SnapshotPath("knowledgeC.db")
			if err := svc.Connect(ctx, database.Config{Path: snapshotPath, Immutable: true}); err != nil {
				return fmt.Errorf("open snapshot %s (run \"loopwatch snapshot\" first): %w", snapshotPath, err)
			}
			defer svc.Close()

			usageRepo := repository.NewUsageRepository(svc.DB(), logger)
			result, err := analyzer.New(usageRepo, cfg, logger).Run(ctx)
			if errors.Is(err, types.ErrNoData) {
				fmt.Fprintf(cmd.OutOrStdout(), "No usage data in the last %d days. Nothing to analyze.\n",
					cfg.Detection.WindowDays)
				return nil
			}
			if err != nil {
				return err
			}

			report.NewConsoleReporter(cmd.OutOrStdout()).Render(result)

			if flagMarkdown {
				path, err := report.NewMarkdownReporter(cfg.ReportDir).Write(result)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nreport written to %s\n", path)
			}
			if flagJSON {
				path, err := report.NewJSONExporter(cfg.ReportDir).Write(result)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "export written to %s\n", path)
			}

			if flagAdvise {
				if err := runAdvisor(ctx, cmd, cfg, result, logger); err != nil {
					// Advice is best-effort; the analysis already printed.
					logging.LogError(logger, err, "advisor", nil)
					fmt.Fprintln(cmd.OutOrStdout(), "advisor unavailable, see log for details")
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagDays, "days", 7, "analysis window in days")
	cmd.Flags().Float64Var(&flagThreshold, "threshold", 10, "max gap in seconds for a switch")
	cmd.Flags().IntVar(&flagMinOccur, "min-occurrences", 5, "pair count required to report a loop")
	cmd.Flags().BoolVar(&flagMarkdown, "markdown", false, "write a markdown report")
	cmd.Flags().BoolVar(&flagJSON, "json", false, "write a JSON export")
	cmd.Flags().BoolVar(&flagAdvise, "advise", false, "ask the LLM advisor for coaching (needs ANTHROPIC_API_KEY)")
	cmd.Flags().BoolVar(&flagYes, "yes", false, "skip the confirmation before sending data to the advisor")
	return cmd
}

func runAdvisor(ctx context.Context, cmd *cobra.Command, cfg *config.Config, result *types.AnalysisResult, logger logging.Logger) error {
	var prompter advisor.Prompter
	if flagYes {
		prompter = advisor.NewScriptedPrompter(true)
	} else {
		prompter = advisor.NewTerminalPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}
	if !prompter.Confirm("Send this analysis to the advisor API?") {
		fmt.Fprintln(cmd.OutOrStdout(), "advisor skipped")
		return nil
	}

	client := advisor.NewClient(cfg.Advisor.APIKey, logger,
		advisor.WithBaseURL(cfg.Advisor.BaseURL),
		advisor.WithModel(cfg.Advisor.Model),
		advisor.WithTimeout(time.Duration(cfg.Advisor.TimeoutSeconds)*time.Second))

	advice, err := client.Advise(ctx, result)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n--- Advisor ---\n\n%s\n", advice)
	return nil
}

func newBrowserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Summarize browser history by domain and activity category",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewDefaultLogger()
			ctx := cmd.Context()

			to := time.Now()
			from := to.AddDate(0, 0, -cfg.Detection.WindowDays)

			browsers := []struct {
				snapshot string
				open     func(svc *database.Service) repository.VisitReader
			}{
				{"safari_history.db", func(svc *database.Service) repository.VisitReader {
					return repository.NewSafariRepository(svc.DB(), logger)
				}},
				{"chrome_history.db", func(svc *database.Service) repository.VisitReader {
					return repository.NewChromeRepository(svc.DB(), logger)
				}},
				{"firefox_history.db", func(svc *database.Service) repository.VisitReader {
					return repository.NewFirefoxRepository(svc.DB(), logger)
				}},
			}

			console := report.NewConsoleReporter(cmd.OutOrStdout())
			rendered := 0
			for _, b := range browsers {
				summary, err := summarizeBrowser(ctx, cfg, b.snapshot, b.open, from, to, logger)
				if errors.Is(err, types.ErrNoData) || apperrors.IsConnection(err) || apperrors.IsNotFound(err) {
					continue
				}
				if err != nil {
					return err
				}
				console.RenderBrowser(summary)
				rendered++
			}

			if rendered == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No browser history snapshots with data. Run \"loopwatch snapshot\" first.")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&flagDays, "days", 7, "history window in days")
	return cmd
}

func summarizeBrowser(ctx context.Context, cfg *config.Config, snapshot string,
	open func(*database.Service) repository.VisitReader, from, to time.Time,
	logger logging.Logger) (types.BrowserSummary, error) {

	path := cfg.SnapshotPath(snapshot)
	if _, err := os.Stat(path); err != nil {
		return types.BrowserSummary{}, apperrors.HandleSourceMissing("Browser", path, "run \"loopwatch snapshot\"")
	}

	svc := database.NewService(logger)
	if err := svc.Connect(ctx, database.Config{Path: path, Immutable: true}); err != nil {
		return types.BrowserSummary{}, err
	}
	defer svc.Close()

	reader := open(svc)
	visits, err := reader.VisitsBetween(ctx, from, to)
	if err != nil {
		return types.BrowserSummary{}, err
	}
	return classifier.Summarize(reader.Browser(), visits, 10, cfg.Detection.PeakHours), nil
}

func newInterventionsCmd() *cobra.Command {
	var (
		flagFocusApps []string
		flagFocusMins int
		flagBlockApps []string
	)
	cmd := &cobra.Command{
		Use:   "interventions",
		Short: "Generate Hammerspoon scripts targeting the worst loops",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := logging.NewDefaultLogger()
			ctx := cmd.Context()

			svc := database.NewService(logger)
			snapshotPath := cfg.SnapshotPath("knowledgeC.db")
			if err := svc.Connect(ctx, database.Config{Path: snapshotPath, Immutable: true}); err != nil {
				return fmt.Errorf("open snapshot %s (run \"loopwatch snapshot\" first): %w", snapshotPath, err)
			}
			defer svc.Close()

			usageRepo := repository.NewUsageRepository(svc.DB(), logger)
			result, err := analyzer.New(usageRepo, cfg, logger).Run(ctx)
			if errors.Is(err, types.ErrNoData) {
				fmt.Fprintln(cmd.OutOrStdout(), "No usage data to build interventions from.")
				return nil
			}
			if err != nil {
				return err
			}

			gen := interventions.NewGenerator(cfg.AutomationsDir, logger)
			out := cmd.OutOrStdout()

			if len(result.DeathLoops) > 0 {
				path, err := gen.LoopBreaker(result.DeathLoops, 30)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "generated %s\n", path)
			} else {
				fmt.Fprintln(out, "no death loops above threshold; skipping loop breaker")
			}

			if len(flagBlockApps) > 0 {
				path, err := gen.AppBlocker(flagBlockApps, cfg.Detection.WorkHoursStart, cfg.Detection.WorkHoursEnd)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "generated %s\n", path)
			}

			if len(flagFocusApps) > 0 {
				path, err := gen.FocusMode(flagFocusApps, flagFocusMins)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "generated %s\n", path)
			}

			fmt.Fprintf(out, "\nCopy the scripts from %s into ~/.hammerspoon and reload.\n", cfg.AutomationsDir)
			return nil
		},
	}
	cmd.Flags().IntVar(&flagDays, "days", 7, "analysis window in days")
	cmd.Flags().Float64Var(&flagThreshold, "threshold", 10, "max gap in seconds for a switch")
	cmd.Flags().IntVar(&flagMinOccur, "min-occurrences", 5, "pair count required to report a loop")
	cmd.Flags().StringSliceVar(&flagBlockApps, "block", nil, "apps to block during work hours")
	cmd.Flags().StringSliceVar(&flagFocusApps, "focus-apps", nil, "apps allowed during focus sessions")
	cmd.Flags().IntVar(&flagFocusMins, "focus-minutes", 25, "focus session length")
	return cmd
}
