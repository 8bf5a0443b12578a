package sessions

import (
	"testing"
	"time"

	"loopwatch/internal/types"
)

func TestCanonicalName_KnownBundles(t *testing.T) {
	tests := []struct {
		bundleID string
		want     string
	}{
		{"com.apple.Safari", "Safari"},
		{"ru.keepcoder.Telegram", "Telegram"},
		{"com.telegram.desktop", "Telegram"},
		{"com.microsoft.VSCode", "VS Code"},
		{"com.todesktop.230313mzl4w4u92", "Cursor"},
		{"com.tinyspeck.slackmacgap", "Slack"},
	}

	for _, tt := range tests {
		if got := CanonicalName(tt.bundleID); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.bundleID, got, tt.want)
		}
	}
}

func TestCanonicalName_Fallback(t *testing.T) {
	tests := []struct {
		bundleID string
		want     string
	}{
		{"com.example.super-tool", "Super Tool"},
		{"org.foo.bar_baz", "Bar Baz"},
		{"io.company.notes", "Notes"},
	}

	for _, tt := range tests {
		if got := CanonicalName(tt.bundleID); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.bundleID, got, tt.want)
		}
	}
}

func TestCanonicalName_EmptyIsUnknown(t *testing.T) {
	if got := CanonicalName(""); got != UnknownApp {
		t.Errorf("CanonicalName(\"\") = %q, want %q", got, UnknownApp)
	}
	if got := CanonicalName("   "); got != UnknownApp {
		t.Errorf("CanonicalName(whitespace) = %q, want %q", got, UnknownApp)
	}
}

func TestCanonicalName_NoDotsKeptVerbatim(t *testing.T) {
	if got := CanonicalName("Electron"); got != "Electron" {
		t.Errorf("CanonicalName(\"Electron\") = %q, want \"Electron\"", got)
	}
}

func TestReconstruct_SortsAscending(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []types.UsageRecord{
		{BundleID: "com.apple.Safari", Start: base.Add(2 * time.Minute), End: base.Add(3 * time.Minute)},
		{BundleID: "ru.keepcoder.Telegram", Start: base, End: base.Add(time.Minute)},
	}

	out := Reconstruct(records)
	if len(out) != 2 {
		t.Fatalf("got %d records, want 2", len(out))
	}
	if out[0].App != "Telegram" || out[1].App != "Safari" {
		t.Errorf("order = [%s, %s], want [Telegram, Safari]", out[0].App, out[1].App)
	}
}

func TestReconstruct_SkipsMalformed(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	records := []types.UsageRecord{
		{BundleID: "com.apple.Safari", Start: base, End: base.Add(time.Minute)},
		{BundleID: "a.broken.row"}, // zero timestamps
		{BundleID: "b.inverted.row", Start: base.Add(time.Minute), End: base}, // end before start
	}

	out := Reconstruct(records)
	if len(out) != 1 {
		t.Fatalf("got %d records, want 1", len(out))
	}
	if out[0].App != "Safari" {
		t.Errorf("survivor = %s, want Safari", out[0].App)
	}
}

func TestReconstruct_MissingBundleBecomesUnknown(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	out := Reconstruct([]types.UsageRecord{
		{BundleID: "", Start: base, End: base.Add(time.Minute)},
	})
	if len(out) != 1 || out[0].App != UnknownApp {
		t.Fatalf("got %+v, want one Unknown record", out)
	}
}

func TestReconstruct_FillsDuration(t *testing.T) {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	out := Reconstruct([]types.UsageRecord{
		{BundleID: "com.apple.Safari", Start: base, End: base.Add(90 * time.Second)},
	})
	if out[0].Duration != 90 {
		t.Errorf("Duration = %g, want 90", out[0].Duration)
	}
}
