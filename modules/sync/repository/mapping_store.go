package repository

import (
	"context"

	"github.com/google/uuid"

	"rehearsal-hub/modules/sync/entity"
)

// Logical record names. Each user has at most one row per record.
const (
	RecordExportMappings = "export-mappings"
	RecordImportTracking = "import-tracking"
	RecordSyncSettings   = "sync-settings"
)

// MappingStore is durable key-value persistence for sync state. All reads
// are total over the key space: a missing record comes back as its empty
// default, never as an error. Writes are last-write-wins with no versioning;
// the orchestrator serializes concurrent runs, not the store.
type MappingStore interface {
	GetExportMappings(ctx context.Context, userID uuid.UUID) (entity.ExportMappings, error)
	PutExportMapping(ctx context.Context, userID uuid.UUID, rehearsalID string, m entity.EventMapping) error
	DeleteExportMapping(ctx context.Context, userID uuid.UUID, rehearsalID string) error
	ClearExportMappings(ctx context.Context, userID uuid.UUID) error

	GetImportTracking(ctx context.Context, userID uuid.UUID) (entity.ImportTracking, error)
	PutImportedEvent(ctx context.Context, userID uuid.UUID, externalEventID string, e entity.ImportedEvent) error
	DeleteImportedEvent(ctx context.Context, userID uuid.UUID, externalEventID string) error
	ClearImportTracking(ctx context.Context, userID uuid.UUID) error

	GetSettings(ctx context.Context, userID uuid.UUID) (entity.SyncSettings, error)
	PutSettings(ctx context.Context, userID uuid.UUID, s entity.SyncSettings) error

	// ListUsersWithSettings feeds the periodic auto-import tick.
	ListUsersWithSettings(ctx context.Context) ([]uuid.UUID, error)
}
