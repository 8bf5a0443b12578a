package detector

import (
	"math"
	"reflect"
	"testing"
	"time"

	"loopwatch/internal/types"
)

var base = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) // a Monday

// rec builds a usage record offset from base by start/end seconds.
func rec(app string, startSec, endSec float64) types.UsageRecord {
	start := base.Add(time.Duration(startSec * float64(time.Second)))
	end := base.Add(time.Duration(endSec * float64(time.Second)))
	return types.UsageRecord{
		App:      app,
		Start:    start,
		End:      end,
		Duration: endSec - startSec,
	}
}

func TestDetectSwitchesBasic(t *testing.T) {
	d := New(Config{ThresholdSeconds: 5}, nil)

	// The canonical rapid-switch timeline: Safari 0:00-1:00,
	// Telegram 1:03-1:10, Safari 1:12-5:00.
	records := []types.UsageRecord{
		rec("Safari", 0, 60),
		rec("Telegram", 63, 70),
		rec("Safari", 72, 300),
	}

	switches := d.DetectSwitches(records)
	if len(switches) != 2 {
		t.Fatalf("expected 2 switches, got %d", len(switches))
	}

	if switches[0].FromApp != "Safari" || switches[0].ToApp != "Telegram" {
		t.Errorf("first switch = %s→%s, want Safari→Telegram", switches[0].FromApp, switches[0].ToApp)
	}
	if switches[0].GapSeconds != 3 {
		t.Errorf("first gap = %v, want 3", switches[0].GapSeconds)
	}
	if switches[1].GapSeconds != 2 {
		t.Errorf("second gap = %v, want 2", switches[1].GapSeconds)
	}
	if switches[0].Hour != 10 {
		t.Errorf("switch hour = %d, want 10", switches[0].Hour)
	}
	if switches[0].Weekday != time.Monday {
		t.Errorf("switch weekday = %v, want Monday", switches[0].Weekday)
	}
}

func TestDetectSwitchesThresholdIsExclusive(t *testing.T) {
	d := New(Config{ThresholdSeconds: 10}, nil)

	tests := []struct {
		name string
		gap  float64
		want int
	}{
		{"gap well under threshold", 5, 1},
		{"gap just under threshold", 9.999, 1},
		{"gap exactly at threshold", 10, 0},
		{"gap over threshold", 10.001, 0},
		{"zero gap", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := []types.UsageRecord{
				rec("A", 0, 30),
				rec("B", 30+tt.gap, 60+tt.gap),
			}
			got := d.DetectSwitches(records)
			if len(got) != tt.want {
				t.Errorf("gap %v: got %d switches, want %d", tt.gap, len(got), tt.want)
			}
		})
	}
}

func TestDetectSwitchesDiscardsOverlaps(t *testing.T) {
	d := New(Config{ThresholdSeconds: 10}, nil)

	// Second record starts before the first ends.
	records := []types.UsageRecord{
		rec("A", 0, 30),
		rec("B", 25, 60),
		rec("A", 62, 90),
	}

	got := d.DetectSwitches(records)
	if len(got) != 1 {
		t.Fatalf("expected 1 switch after dropping overlap, got %d", len(got))
	}
	if got[0].FromApp != "B" || got[0].ToApp != "A" {
		t.Errorf("surviving switch = %s→%s, want B→A", got[0].FromApp, got[0].ToApp)
	}
}

func TestDetectSwitchesFewRecords(t *testing.T) {
	d := New(DefaultConfig(), nil)

	if got := d.DetectSwitches(nil); got != nil {
		t.Errorf("nil records: got %v, want nil", got)
	}
	if got := d.DetectSwitches([]types.UsageRecord{rec("A", 0, 10)}); got != nil {
		t.Errorf("single record: got %v, want nil", got)
	}
}

func TestAggregatePairsAreUnordered(t *testing.T) {
	d := New(Config{ThresholdSeconds: 10, MinOccurrences: 1, WorkHoursStart: 9, WorkHoursEnd: 18, PeakHours: 3, FrequencyWeight: 1, SpeedWeight: 1}, nil)

	sw := func(from, to string, t0 float64) types.Switch {
		return types.Switch{
			FromApp: from, ToApp: to,
			SwitchTime: base.Add(time.Duration(t0 * float64(time.Second))),
			GapSeconds: 2, FromDuration: 60, ToDuration: 30,
			Hour: 10, Weekday: time.Monday,
		}
	}

	loops := d.Aggregate([]types.Switch{
		sw("Safari", "Telegram", 0),
		sw("Telegram", "Safari", 100),
		sw("Safari", "Telegram", 200),
	})

	if len(loops) != 1 {
		t.Fatalf("expected 1 loop, got %d", len(loops))
	}
	loop := loops[0]
	if loop.AppA != "Safari" || loop.AppB != "Telegram" {
		t.Errorf("pair = (%s, %s), want (Safari, Telegram)", loop.AppA, loop.AppB)
	}
	if loop.Occurrences != 3 {
		t.Errorf("occurrences = %d, want 3", loop.Occurrences)
	}
	if loop.AvgGapSeconds != 2 {
		t.Errorf("avg gap = %v, want 2", loop.AvgGapSeconds)
	}
	// Time lost is the shorter duration per occurrence.
	if loop.TotalTimeLost != 90 {
		t.Errorf("time lost = %v, want 90", loop.TotalTimeLost)
	}
	if loop.WorkHourPercentage != 100 {
		t.Errorf("work-hour pct = %v, want 100", loop.WorkHourPercentage)
	}
}

func TestAggregateMinOccurrences(t *testing.T) {
	d := New(Config{ThresholdSeconds: 10, MinOccurrences: 5, WorkHoursStart: 9, WorkHoursEnd: 18, PeakHours: 3, FrequencyWeight: 1, SpeedWeight: 1}, nil)

	var switches []types.Switch
	for i := 0; i < 3; i++ {
		switches = append(switches, types.Switch{
			FromApp: "Mail", ToApp: "Slack",
			SwitchTime: base.Add(time.Duration(i) * time.Minute),
			GapSeconds: 1, FromDuration: 10, ToDuration: 10, Hour: 10,
		})
	}
	for i := 0; i < 5; i++ {
		switches = append(switches, types.Switch{
			FromApp: "Safari", ToApp: "Telegram",
			SwitchTime: base.Add(time.Duration(10+i) * time.Minute),
			GapSeconds: 1, FromDuration: 10, ToDuration: 10, Hour: 10,
		})
	}

	loops := d.Aggregate(switches)
	if len(loops) != 1 {
		t.Fatalf("expected 1 loop above the occurrence floor, got %d", len(loops))
	}
	if loops[0].AppA != "Safari" {
		t.Errorf("reported loop = %s, want the Safari pair", loops[0].Label())
	}
}

func TestAggregateIgnoresSelfSwitches(t *testing.T) {
	d := New(Config{ThresholdSeconds: 10, MinOccurrences: 1, WorkHoursEnd: 18, PeakHours: 3, FrequencyWeight: 1, SpeedWeight: 1}, nil)

	loops := d.Aggregate([]types.Switch{
		{FromApp: "Safari", ToApp: "Safari", GapSeconds: 1, Hour: 10},
	})
	if len(loops) != 0 {
		t.Errorf("self switch produced %d loops, want 0", len(loops))
	}
}

func TestAggregateOrderingIsDeterministic(t *testing.T) {
	cfg := Config{ThresholdSeconds: 10, MinOccurrences: 1, WorkHoursStart: 9, WorkHoursEnd: 18, PeakHours: 3, FrequencyWeight: 1, SpeedWeight: 1}
	d := New(cfg, nil)

	mk := func(from, to string, n int, gap float64) []types.Switch {
		out := make([]types.Switch, n)
		for i := range out {
			out[i] = types.Switch{
				FromApp: from, ToApp: to,
				SwitchTime: base.Add(time.Duration(i) * time.Minute),
				GapSeconds: gap, FromDuration: 10, ToDuration: 10, Hour: 10,
			}
		}
		return out
	}

	var switches []types.Switch
	switches = append(switches, mk("Safari", "Telegram", 8, 1)...)
	switches = append(switches, mk("Mail", "Slack", 4, 2)...)
	// Same occurrences and gap as the Mail pair: only the label breaks the tie.
	switches = append(switches, mk("Cursor", "Xcode", 4, 2)...)

	first := d.Aggregate(switches)
	if len(first) != 3 {
		t.Fatalf("expected 3 loops, got %d", len(first))
	}
	if first[0].AppA != "Safari" {
		t.Errorf("highest severity = %s, want the Safari pair", first[0].Label())
	}
	if first[1].Label() != "Cursor ↔ Xcode" || first[2].Label() != "Mail ↔ Slack" {
		t.Errorf("tie broken as [%s, %s], want label ascending", first[1].Label(), first[2].Label())
	}

	// Same input, same output.
	second := d.Aggregate(switches)
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated aggregation produced different results")
	}
}

func TestAggregateSeverityBounds(t *testing.T) {
	d := New(Config{ThresholdSeconds: 10, MinOccurrences: 1, WorkHoursStart: 9, WorkHoursEnd: 18, PeakHours: 3, FrequencyWeight: 1, SpeedWeight: 1}, nil)

	var switches []types.Switch
	for i := 0; i < 10; i++ {
		switches = append(switches, types.Switch{
			FromApp: "A", ToApp: "B",
			SwitchTime: base.Add(time.Duration(i) * time.Minute),
			GapSeconds: 0.5, FromDuration: 5, ToDuration: 5, Hour: 10,
		})
	}
	switches = append(switches, types.Switch{
		FromApp: "C", ToApp: "D",
		SwitchTime: base, GapSeconds: 9, FromDuration: 5, ToDuration: 5, Hour: 22,
	})

	loops := d.Aggregate(switches)
	if len(loops) != 2 {
		t.Fatalf("expected 2 loops, got %d", len(loops))
	}
	if loops[0].SeverityScore != 100 {
		t.Errorf("worst loop severity = %v, want 100", loops[0].SeverityScore)
	}
	for _, loop := range loops {
		if loop.SeverityScore < 0 || loop.SeverityScore > 100 {
			t.Errorf("severity %v out of [0,100] for %s", loop.SeverityScore, loop.Label())
		}
		if loop.WorkHourPercentage < 0 || loop.WorkHourPercentage > 100 {
			t.Errorf("work-hour pct %v out of [0,100] for %s", loop.WorkHourPercentage, loop.Label())
		}
	}
	if loops[1].WorkHourPercentage != 0 {
		t.Errorf("late-night loop work-hour pct = %v, want 0", loops[1].WorkHourPercentage)
	}
}

func TestTopHours(t *testing.T) {
	var counts [24]int
	counts[9] = 5
	counts[14] = 5
	counts[11] = 8
	counts[20] = 1

	got := topHours(counts, 3)
	want := []int{11, 9, 14}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("topHours = %v, want %v", got, want)
	}

	var empty [24]int
	if got := topHours(empty, 3); len(got) != 0 {
		t.Errorf("topHours over empty histogram = %v, want empty", got)
	}
}

func TestCountBounces(t *testing.T) {
	at := func(sec float64) time.Time {
		return base.Add(time.Duration(sec * float64(time.Second)))
	}

	tests := []struct {
		name     string
		switches []types.Switch
		want     int
	}{
		{
			name: "reversal inside the window",
			switches: []types.Switch{
				{FromApp: "A", ToApp: "B", SwitchTime: at(0)},
				{FromApp: "B", ToApp: "A", SwitchTime: at(0.5)},
			},
			want: 1,
		},
		{
			name: "reversal too slow",
			switches: []types.Switch{
				{FromApp: "A", ToApp: "B", SwitchTime: at(0)},
				{FromApp: "B", ToApp: "A", SwitchTime: at(1.5)},
			},
			want: 0,
		},
		{
			name: "fast but not a reversal",
			switches: []types.Switch{
				{FromApp: "A", ToApp: "B", SwitchTime: at(0)},
				{FromApp: "B", ToApp: "C", SwitchTime: at(0.2)},
			},
			want: 0,
		},
		{
			name: "chained reversals each count",
			switches: []types.Switch{
				{FromApp: "A", ToApp: "B", SwitchTime: at(0)},
				{FromApp: "B", ToApp: "A", SwitchTime: at(0.3)},
				{FromApp: "A", ToApp: "B", SwitchTime: at(0.6)},
			},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountBounces(tt.switches); got != tt.want {
				t.Errorf("CountBounces = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCostModelStats(t *testing.T) {
	m := DefaultCostModel()

	switches := make([]types.Switch, 120)
	for i := range switches {
		switches[i] = types.Switch{
			FromApp: "A", ToApp: "B",
			SwitchTime: base.Add(time.Duration(i) * time.Minute),
		}
	}

	stats := m.Stats(switches, 7)
	if stats.TotalSwitches != 120 {
		t.Errorf("total = %d, want 120", stats.TotalSwitches)
	}
	if math.Abs(stats.SwitchesPerDay-120.0/7) > 1e-9 {
		t.Errorf("per day = %v, want %v", stats.SwitchesPerDay, 120.0/7)
	}
	if stats.HoursLost != 1 {
		t.Errorf("hours lost = %v, want 1", stats.HoursLost)
	}
	if stats.EstimatedCostUSD != 50 {
		t.Errorf("cost = %v, want 50", stats.EstimatedCostUSD)
	}
	if stats.Bounces != 0 || stats.BounceRate != 0 {
		t.Errorf("bounces = %d rate %v, want 0/0", stats.Bounces, stats.BounceRate)
	}
}

func TestCostModelStatsEmpty(t *testing.T) {
	stats := DefaultCostModel().Stats(nil, 0)
	if stats.TotalSwitches != 0 || stats.BounceRate != 0 || stats.EstimatedCostUSD != 0 {
		t.Errorf("empty stats = %+v, want zeros", stats)
	}
}
