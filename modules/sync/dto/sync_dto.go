package dto

import "time"

// ProgressFunc reports cumulative progress after each batch.
type ProgressFunc func(done, total int)

// BatchSyncResult accumulates an export batch run. It is returned whole,
// never streamed.
type BatchSyncResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// ImportResult accumulates a reconciliation run.
type ImportResult struct {
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// ========== HTTP surface ==========

type SyncAllRequest struct {
	// RehearsalIDs limits the run; empty means all upcoming rehearsals.
	RehearsalIDs []string `json:"rehearsal_ids,omitempty"`
	// CalendarID overrides the configured export calendar.
	CalendarID string `json:"calendar_id,omitempty"`
}

type TriggerImportRequest struct {
	// Source is "foreground" or "manual".
	Source string `json:"source"`
	Force  bool   `json:"force"`
}

type RehearsalSyncStatusResponse struct {
	RehearsalID string `json:"rehearsal_id"`
	Synced      bool   `json:"synced"`
}

type SettingsRequest struct {
	ExportEnabled     *bool    `json:"export_enabled,omitempty"`
	ExportCalendarID  *string  `json:"export_calendar_id,omitempty"`
	ImportEnabled     *bool    `json:"import_enabled,omitempty"`
	ImportCalendarIDs []string `json:"import_calendar_ids,omitempty"`
	ImportInterval    *string  `json:"import_interval,omitempty"`
}

type SyncStatusResponse struct {
	ExportedCount  int        `json:"exported_count"`
	ImportedCount  int        `json:"imported_count"`
	LastExportTime *time.Time `json:"last_export_time,omitempty"`
	LastImportTime *time.Time `json:"last_import_time,omitempty"`
	ImportRunning  bool       `json:"import_running"`
}

// RunReport is the archived summary of one sync run.
type RunReport struct {
	RunID      string    `json:"run_id"`
	Kind       string    `json:"kind"` // "export" | "import"
	UserID     string    `json:"user_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped,omitempty"`
	Errors     []string  `json:"errors,omitempty"`
}
