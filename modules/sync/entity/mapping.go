package entity

import "time"

// EventMapping records which external event mirrors an exported rehearsal.
// At most one exists per rehearsal ID.
type EventMapping struct {
	EventID    string    `json:"event_id"`
	CalendarID string    `json:"calendar_id"`
	LastSynced time.Time `json:"last_synced"`
}

// ExportMappings is the export-mappings record, keyed by rehearsal ID.
type ExportMappings map[string]EventMapping

// EventIDSet returns the set of exported event IDs. The import pipeline uses
// it to keep the app's own exports from cycling back in as imports.
func (m ExportMappings) EventIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for _, mapping := range m {
		set[mapping.EventID] = struct{}{}
	}
	return set
}

// ImportedEvent records the local slot an external calendar event became.
// At most one exists per external event ID.
type ImportedEvent struct {
	LocalSlotID  string    `json:"local_slot_id"`
	CalendarID   string    `json:"calendar_id"`
	LastImported time.Time `json:"last_imported"`
}

// ImportTracking is the import-tracking record, keyed by external event ID.
type ImportTracking map[string]ImportedEvent
