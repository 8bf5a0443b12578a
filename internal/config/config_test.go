package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Detection.WindowDays != 7 {
		t.Errorf("WindowDays = %d, want 7", cfg.Detection.WindowDays)
	}
	if cfg.Detection.ThresholdSeconds != 10 {
		t.Errorf("ThresholdSeconds = %g, want 10", cfg.Detection.ThresholdSeconds)
	}
	if cfg.Detection.MinOccurrences != 5 {
		t.Errorf("MinOccurrences = %d, want 5", cfg.Detection.MinOccurrences)
	}
	if cfg.Cost.HourlyRateUSD != 50 {
		t.Errorf("HourlyRateUSD = %g, want 50", cfg.Cost.HourlyRateUSD)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopwatch.yaml")
	content := []byte("detection:\n  windowDays: 30\n  thresholdSeconds: 5\ncost:\n  hourlyRateUSD: 80\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.WindowDays != 30 {
		t.Errorf("WindowDays = %d, want 30", cfg.Detection.WindowDays)
	}
	if cfg.Detection.ThresholdSeconds != 5 {
		t.Errorf("ThresholdSeconds = %g, want 5", cfg.Detection.ThresholdSeconds)
	}
	if cfg.Cost.HourlyRateUSD != 80 {
		t.Errorf("HourlyRateUSD = %g, want 80", cfg.Cost.HourlyRateUSD)
	}
	// Untouched values keep their defaults
	if cfg.Detection.MinOccurrences != 5 {
		t.Errorf("MinOccurrences = %d, want default 5", cfg.Detection.MinOccurrences)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopwatch.yaml")
	if err := os.WriteFile(path, []byte("detection:\n  windowDays: 30\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("LOOPWATCH_WINDOW_DAYS", "14")
	t.Setenv("LOOPWATCH_THRESHOLD_SECONDS", "2.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.WindowDays != 14 {
		t.Errorf("WindowDays = %d, want 14 from env", cfg.Detection.WindowDays)
	}
	if cfg.Detection.ThresholdSeconds != 2.5 {
		t.Errorf("ThresholdSeconds = %g, want 2.5 from env", cfg.Detection.ThresholdSeconds)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load should fail for a missing explicit config file")
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero window", func(c *Config) { c.Detection.WindowDays = 0 }},
		{"zero threshold", func(c *Config) { c.Detection.ThresholdSeconds = 0 }},
		{"negative threshold", func(c *Config) { c.Detection.ThresholdSeconds = -1 }},
		{"zero min occurrences", func(c *Config) { c.Detection.MinOccurrences = 0 }},
		{"work hours inverted", func(c *Config) { c.Detection.WorkHoursStart = 18; c.Detection.WorkHoursEnd = 9 }},
		{"work hours start out of range", func(c *Config) { c.Detection.WorkHoursStart = 24 }},
		{"negative hourly rate", func(c *Config) { c.Cost.HourlyRateUSD = -5 }},
		{"negative weight", func(c *Config) { c.Detection.SpeedWeight = -0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate should reject %s", tt.name)
			}
		})
	}
}

func TestSnapshotPath(t *testing.T) {
	cfg := Default()
	cfg.DataDir = "/tmp/lw"
	if got, want := cfg.SnapshotPath("screentime.db"), filepath.Join("/tmp/lw", "screentime.db"); got != want {
		t.Errorf("SnapshotPath = %q, want %q", got, want)
	}
}
