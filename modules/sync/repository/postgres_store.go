package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"rehearsal-hub/core/database"
	"rehearsal-hub/modules/sync/entity"
)

// postgresStore keeps each logical record as one jsonb row in sync_records
// (user_id, name, data). Per-key writes go through jsonb_set so concurrent
// writers touching different keys never clobber each other; a crash between
// writes leaves valid, if incomplete, state.
type postgresStore struct {
	db database.IDatabase
}

func NewPostgresStore(db database.IDatabase) MappingStore {
	return &postgresStore{db: db}
}

func (s *postgresStore) getRecord(ctx context.Context, userID uuid.UUID, name string, dest any) (bool, error) {
	query := `SELECT data FROM sync_records WHERE user_id = $1 AND name = $2`
	var raw []byte
	err := s.db.QueryRowContext(ctx, query, userID, name).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *postgresStore) putRecord(ctx context.Context, userID uuid.UUID, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sync_records (user_id, name, data, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`
	return s.db.ExecContext(ctx, query, userID, name, raw)
}

func (s *postgresStore) putRecordEntry(ctx context.Context, userID uuid.UUID, name, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sync_records (user_id, name, data, updated_at)
		VALUES ($1, $2, jsonb_build_object($3::text, $4::jsonb), NOW())
		ON CONFLICT (user_id, name) DO UPDATE
		SET data = jsonb_set(sync_records.data, ARRAY[$3::text], $4::jsonb), updated_at = NOW()
	`
	return s.db.ExecContext(ctx, query, userID, name, key, raw)
}

func (s *postgresStore) deleteRecordEntry(ctx context.Context, userID uuid.UUID, name, key string) error {
	query := `
		UPDATE sync_records SET data = data - $3::text, updated_at = NOW()
		WHERE user_id = $1 AND name = $2 AND jsonb_exists(data, $3::text)
	`
	return s.db.ExecContext(ctx, query, userID, name, key)
}

func (s *postgresStore) deleteRecord(ctx context.Context, userID uuid.UUID, name string) error {
	query := `DELETE FROM sync_records WHERE user_id = $1 AND name = $2`
	return s.db.ExecContext(ctx, query, userID, name)
}

// ========== export mappings ==========

func (s *postgresStore) GetExportMappings(ctx context.Context, userID uuid.UUID) (entity.ExportMappings, error) {
	mappings := entity.ExportMappings{}
	if _, err := s.getRecord(ctx, userID, RecordExportMappings, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (s *postgresStore) PutExportMapping(ctx context.Context, userID uuid.UUID, rehearsalID string, m entity.EventMapping) error {
	return s.putRecordEntry(ctx, userID, RecordExportMappings, rehearsalID, m)
}

func (s *postgresStore) DeleteExportMapping(ctx context.Context, userID uuid.UUID, rehearsalID string) error {
	return s.deleteRecordEntry(ctx, userID, RecordExportMappings, rehearsalID)
}

func (s *postgresStore) ClearExportMappings(ctx context.Context, userID uuid.UUID) error {
	return s.deleteRecord(ctx, userID, RecordExportMappings)
}

// ========== import tracking ==========

func (s *postgresStore) GetImportTracking(ctx context.Context, userID uuid.UUID) (entity.ImportTracking, error) {
	tracking := entity.ImportTracking{}
	if _, err := s.getRecord(ctx, userID, RecordImportTracking, &tracking); err != nil {
		return nil, err
	}
	return tracking, nil
}

func (s *postgresStore) PutImportedEvent(ctx context.Context, userID uuid.UUID, externalEventID string, e entity.ImportedEvent) error {
	return s.putRecordEntry(ctx, userID, RecordImportTracking, externalEventID, e)
}

func (s *postgresStore) DeleteImportedEvent(ctx context.Context, userID uuid.UUID, externalEventID string) error {
	return s.deleteRecordEntry(ctx, userID, RecordImportTracking, externalEventID)
}

func (s *postgresStore) ClearImportTracking(ctx context.Context, userID uuid.UUID) error {
	return s.deleteRecord(ctx, userID, RecordImportTracking)
}

// ========== settings ==========

func (s *postgresStore) GetSettings(ctx context.Context, userID uuid.UUID) (entity.SyncSettings, error) {
	settings := entity.DefaultSyncSettings()
	if _, err := s.getRecord(ctx, userID, RecordSyncSettings, &settings); err != nil {
		return entity.SyncSettings{}, err
	}
	return settings, nil
}

func (s *postgresStore) PutSettings(ctx context.Context, userID uuid.UUID, settings entity.SyncSettings) error {
	return s.putRecord(ctx, userID, RecordSyncSettings, settings)
}

func (s *postgresStore) ListUsersWithSettings(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM sync_records WHERE name = $1`
	rows, err := s.db.QueryContext(ctx, query, RecordSyncSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
