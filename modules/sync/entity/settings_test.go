package entity

import (
	"testing"
	"time"
)

func TestImportIntervalDuration(t *testing.T) {
	cases := []struct {
		interval ImportInterval
		gap      time.Duration
		auto     bool
	}{
		{IntervalManual, 0, false},
		{IntervalAlways, 0, true},
		{IntervalQuarterly, 15 * time.Minute, true},
		{IntervalHourly, time.Hour, true},
		{IntervalSixHours, 6 * time.Hour, true},
		{IntervalDaily, 24 * time.Hour, true},
	}
	for _, tc := range cases {
		gap, auto := tc.interval.Duration()
		if gap != tc.gap || auto != tc.auto {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tc.interval, gap, auto, tc.gap, tc.auto)
		}
	}
}

func TestImportIntervalValid(t *testing.T) {
	if !IntervalDaily.Valid() {
		t.Error("daily reported invalid")
	}
	if ImportInterval("fortnightly").Valid() {
		t.Error("unknown interval reported valid")
	}
}

func TestExportMappingsEventIDSet(t *testing.T) {
	mappings := ExportMappings{
		"reh-1": {EventID: "evt-1"},
		"reh-2": {EventID: "evt-2"},
	}
	set := mappings.EventIDSet()
	if len(set) != 2 {
		t.Fatalf("set has %d entries, want 2", len(set))
	}
	if _, ok := set["evt-1"]; !ok {
		t.Error("evt-1 missing from set")
	}
}
