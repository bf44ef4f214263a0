package constants

import "time"

// HTTP client / request timeouts
const (
	DefaultTimeout    = 30 * time.Second
	ShortProbeTimeout = 10 * time.Second
)

// Database pool defaults
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 5
	DatabaseConnMaxLifetime = 30 // minutes
)

// Calendar sync tuning
const (
	// ExportBatchSize caps concurrent device-calendar operations per wave.
	ExportBatchSize = 10

	// ImportCreateChunkSize is the backend bulk-create payload limit.
	ImportCreateChunkSize = 50

	// ImportHorizonDays bounds the reconciliation window from today.
	ImportHorizonDays = 365

	// TriggerThrottleWindow absorbs duplicate foreground notifications.
	TriggerThrottleWindow = 5 * time.Second

	// Duplicate detection for exported events: search window around the
	// rehearsal and the per-timestamp tolerance for a match.
	DuplicateSearchWindow  = 24 * time.Hour
	DuplicateTimeTolerance = 60 * time.Second

	ExportReminderMinutes = 30
)
