package entity

import "time"

// ImportInterval controls how often the orchestrator runs auto-import.
type ImportInterval string

const (
	IntervalManual    ImportInterval = "manual"
	IntervalAlways    ImportInterval = "always"
	IntervalQuarterly ImportInterval = "15min"
	IntervalHourly    ImportInterval = "hourly"
	IntervalSixHours  ImportInterval = "6hours"
	IntervalDaily     ImportInterval = "daily"
)

// Duration returns the minimum gap between automatic imports. auto is false
// for the manual setting, which never triggers automatically; "always" maps
// to a zero gap.
func (i ImportInterval) Duration() (gap time.Duration, auto bool) {
	switch i {
	case IntervalAlways:
		return 0, true
	case IntervalQuarterly:
		return 15 * time.Minute, true
	case IntervalHourly:
		return time.Hour, true
	case IntervalSixHours:
		return 6 * time.Hour, true
	case IntervalDaily:
		return 24 * time.Hour, true
	default:
		return 0, false
	}
}

func (i ImportInterval) Valid() bool {
	switch i {
	case IntervalManual, IntervalAlways, IntervalQuarterly, IntervalHourly, IntervalSixHours, IntervalDaily:
		return true
	}
	return false
}

// SyncSettings is the user-editable singleton driving the orchestrator.
type SyncSettings struct {
	ExportEnabled     bool           `json:"export_enabled"`
	ExportCalendarID  string         `json:"export_calendar_id,omitempty"`
	LastExportTime    *time.Time     `json:"last_export_time,omitempty"`
	ImportEnabled     bool           `json:"import_enabled"`
	ImportCalendarIDs []string       `json:"import_calendar_ids,omitempty"`
	ImportInterval    ImportInterval `json:"import_interval"`
	LastImportTime    *time.Time     `json:"last_import_time,omitempty"`
}

func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		ImportInterval: IntervalManual,
	}
}
