// Package config holds every tunable the pipeline accepts, collected into
// one authoritative set so thresholds and source paths cannot drift between
// call sites.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DetectionConfig controls the switch detector and aggregator.
type DetectionConfig struct {
	WindowDays       int     `yaml:"windowDays"`       // analysis window
	ThresholdSeconds float64 `yaml:"thresholdSeconds"` // max gap for a switch (strict)
	MinOccurrences   int     `yaml:"minOccurrences"`   // pair count required to report a loop
	WorkHoursStart   int     `yaml:"workHoursStart"`   // inclusive, 0-23
	WorkHoursEnd     int     `yaml:"workHoursEnd"`     // exclusive, 1-24
	PeakHours        int     `yaml:"peakHours"`        // how many peak hours to report per loop
	FrequencyWeight  float64 `yaml:"frequencyWeight"`  // severity weight for occurrence count
	SpeedWeight      float64 `yaml:"speedWeight"`      // severity weight for switch speed
}

// CostConfig controls the context-switching cost estimate.
type CostConfig struct {
	PerSwitchSeconds float64 `yaml:"perSwitchSeconds"` // fixed refocus cost per switch
	HourlyRateUSD    float64 `yaml:"hourlyRateUSD"`
}

// SourceConfig points at the databases the pipeline snapshots and reads.
type SourceConfig struct {
	ScreenTimeDB    string `yaml:"screenTimeDB"`
	SafariHistoryDB string `yaml:"safariHistoryDB"`
	ChromeHistoryDB string `yaml:"chromeHistoryDB"`
}

// AdvisorConfig configures the optional LLM collaborator.
type AdvisorConfig struct {
	APIKey         string `yaml:"-"` // env only, never from file
	BaseURL        string `yaml:"baseURL"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// Config is the full runtime configuration.
type Config struct {
	DataDir        string          `yaml:"dataDir"`
	ReportDir      string          `yaml:"reportDir"`
	AutomationsDir string          `yaml:"automationsDir"`
	Detection      DetectionConfig `yaml:"detection"`
	Cost           CostConfig      `yaml:"cost"`
	Sources        SourceConfig    `yaml:"sources"`
	Advisor        AdvisorConfig   `yaml:"advisor"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DataDir:        "data",
		ReportDir:      "reports",
		AutomationsDir: "automations",
		Detection: DetectionConfig{
			WindowDays:       7,
			ThresholdSeconds: 10,
			MinOccurrences:   5,
			WorkHoursStart:   9,
			WorkHoursEnd:     18,
			PeakHours:        3,
			FrequencyWeight:  1.0,
			SpeedWeight:      1.0,
		},
		Cost: CostConfig{
			PerSwitchSeconds: 30,
			HourlyRateUSD:    50,
		},
		Sources: SourceConfig{
			ScreenTimeDB:    filepath.Join(home, "Library", "Application Support", "Knowledge", "knowledgeC.db"),
			SafariHistoryDB: filepath.Join(home, "Library", "Safari", "History.db"),
			ChromeHistoryDB: filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "History"),
		},
		Advisor: AdvisorConfig{
			BaseURL:        "https://api.anthropic.com/v1/messages",
			Model:          "claude-sonnet-4-20250514",
			TimeoutSeconds: 30,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a
// .env file when present, and environment variable overrides, in that
// order of increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	// .env is a convenience for the API key; absence is not an error.
	_ = godotenv.Load(".env")
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.DataDir, "LOOPWATCH_DATA_DIR")
	setString(&c.ReportDir, "LOOPWATCH_REPORT_DIR")
	setString(&c.AutomationsDir, "LOOPWATCH_AUTOMATIONS_DIR")
	setString(&c.Sources.ScreenTimeDB, "LOOPWATCH_SCREENTIME_DB")
	setString(&c.Sources.SafariHistoryDB, "LOOPWATCH_SAFARI_HISTORY_DB")
	setString(&c.Sources.ChromeHistoryDB, "LOOPWATCH_CHROME_HISTORY_DB")

	setInt(&c.Detection.WindowDays, "LOOPWATCH_WINDOW_DAYS")
	setFloat(&c.Detection.ThresholdSeconds, "LOOPWATCH_THRESHOLD_SECONDS")
	setInt(&c.Detection.MinOccurrences, "LOOPWATCH_MIN_OCCURRENCES")
	setInt(&c.Detection.WorkHoursStart, "LOOPWATCH_WORK_HOURS_START")
	setInt(&c.Detection.WorkHoursEnd, "LOOPWATCH_WORK_HOURS_END")
	setFloat(&c.Cost.PerSwitchSeconds, "LOOPWATCH_COST_PER_SWITCH_SECONDS")
	setFloat(&c.Cost.HourlyRateUSD, "LOOPWATCH_HOURLY_RATE_USD")

	setString(&c.Advisor.APIKey, "ANTHROPIC_API_KEY")
	setString(&c.Advisor.BaseURL, "LOOPWATCH_ADVISOR_URL")
	setString(&c.Advisor.Model, "LOOPWATCH_ADVISOR_MODEL")
	setInt(&c.Advisor.TimeoutSeconds, "LOOPWATCH_ADVISOR_TIMEOUT_SECONDS")
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	d := c.Detection
	if d.WindowDays < 1 {
		return fmt.Errorf("windowDays must be at least 1, got %d", d.WindowDays)
	}
	if d.ThresholdSeconds <= 0 {
		return fmt.Errorf("thresholdSeconds must be positive, got %g", d.ThresholdSeconds)
	}
	if d.MinOccurrences < 1 {
		return fmt.Errorf("minOccurrences must be at least 1, got %d", d.MinOccurrences)
	}
	if d.WorkHoursStart < 0 || d.WorkHoursStart > 23 {
		return fmt.Errorf("workHoursStart must be in [0,23], got %d", d.WorkHoursStart)
	}
	if d.WorkHoursEnd < 1 || d.WorkHoursEnd > 24 {
		return fmt.Errorf("workHoursEnd must be in [1,24], got %d", d.WorkHoursEnd)
	}
	if d.WorkHoursEnd <= d.WorkHoursStart {
		return fmt.Errorf("workHoursEnd (%d) must be after workHoursStart (%d)", d.WorkHoursEnd, d.WorkHoursStart)
	}
	if d.PeakHours < 1 {
		return fmt.Errorf("peakHours must be at least 1, got %d", d.PeakHours)
	}
	if d.FrequencyWeight < 0 || d.SpeedWeight < 0 {
		return fmt.Errorf("severity weights must be non-negative")
	}
	if c.Cost.PerSwitchSeconds < 0 {
		return fmt.Errorf("perSwitchSeconds must be non-negative, got %g", c.Cost.PerSwitchSeconds)
	}
	if c.Cost.HourlyRateUSD < 0 {
		return fmt.Errorf("hourlyRateUSD must be non-negative, got %g", c.Cost.HourlyRateUSD)
	}
	return nil
}

// SnapshotPath returns where the local copy of a source database lives.
func (c *Config) SnapshotPath(name string) string {
	return filepath.Join(c.DataDir, name)
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = parsed
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			*dst = parsed
		}
	}
}
