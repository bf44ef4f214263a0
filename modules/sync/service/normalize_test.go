package service

import (
	"testing"
	"time"
)

func TestNormalizeAllDayRangePinsToUTC(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	start := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)
	end := time.Date(2026, 3, 11, 0, 0, 0, 0, loc)

	gotStart, gotEnd := NormalizeAllDayRange(start, end)
	if want := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC); !gotStart.Equal(want) {
		t.Errorf("start %v, want %v", gotStart, want)
	}
	if want := time.Date(2026, 3, 11, 23, 59, 59, 999_000_000, time.UTC); !gotEnd.Equal(want) {
		t.Errorf("end %v, want %v", gotEnd, want)
	}
}

func TestNormalizeAllDayRangeSingleDay(t *testing.T) {
	day := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	gotStart, gotEnd := NormalizeAllDayRange(day, day)
	if gotEnd.Sub(gotStart) >= 24*time.Hour {
		t.Errorf("single day spans %v", gotEnd.Sub(gotStart))
	}
	if gotEnd.Before(gotStart) {
		t.Error("end before start")
	}
}
