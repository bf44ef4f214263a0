package entity

// SyncStateKind enumerates the export state of a single rehearsal.
type SyncStateKind int

const (
	// StateUnsynced: no mapping exists.
	StateUnsynced SyncStateKind = iota
	// StateSynced: the mapped event still resolves on the calendar.
	StateSynced
	// StateOrphaned: a mapping exists but its event is gone.
	StateOrphaned
)

// SyncState is computed once per rehearsal at the top of a sync, replacing
// ad-hoc nil checks on the mapping record.
type SyncState struct {
	Kind       SyncStateKind
	EventID    string
	CalendarID string
}
