package repository

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"rehearsal-hub/modules/sync/entity"
)

// inmemStore mirrors the postgres store's record semantics without a
// database. Tests and local development use it.
type inmemStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]map[string][]byte
}

func NewInMemoryStore() MappingStore {
	return &inmemStore{records: make(map[uuid.UUID]map[string][]byte)}
}

func (s *inmemStore) getRecord(userID uuid.UUID, name string, dest any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.records[userID][name]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

func (s *inmemStore) putRecord(userID uuid.UUID, name string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[userID] == nil {
		s.records[userID] = make(map[string][]byte)
	}
	s.records[userID][name] = raw
	return nil
}

// putRecordEntry rewrites a single key while holding the write lock, so
// concurrent writers to different keys of the same record never lose entries.
func (s *inmemStore) putRecordEntry(userID uuid.UUID, name, key string, value any) error {
	rawValue, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := map[string]json.RawMessage{}
	if raw, ok := s.records[userID][name]; ok {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return err
		}
	}
	entries[key] = rawValue
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if s.records[userID] == nil {
		s.records[userID] = make(map[string][]byte)
	}
	s.records[userID][name] = raw
	return nil
}

func (s *inmemStore) deleteRecordEntry(userID uuid.UUID, name, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.records[userID][name]
	if !ok {
		return nil
	}
	entries := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	s.records[userID][name] = raw
	return nil
}

func (s *inmemStore) deleteRecord(userID uuid.UUID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[userID], name)
}

func (s *inmemStore) GetExportMappings(ctx context.Context, userID uuid.UUID) (entity.ExportMappings, error) {
	mappings := entity.ExportMappings{}
	if err := s.getRecord(userID, RecordExportMappings, &mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (s *inmemStore) PutExportMapping(ctx context.Context, userID uuid.UUID, rehearsalID string, m entity.EventMapping) error {
	return s.putRecordEntry(userID, RecordExportMappings, rehearsalID, m)
}

func (s *inmemStore) DeleteExportMapping(ctx context.Context, userID uuid.UUID, rehearsalID string) error {
	return s.deleteRecordEntry(userID, RecordExportMappings, rehearsalID)
}

func (s *inmemStore) ClearExportMappings(ctx context.Context, userID uuid.UUID) error {
	s.deleteRecord(userID, RecordExportMappings)
	return nil
}

func (s *inmemStore) GetImportTracking(ctx context.Context, userID uuid.UUID) (entity.ImportTracking, error) {
	tracking := entity.ImportTracking{}
	if err := s.getRecord(userID, RecordImportTracking, &tracking); err != nil {
		return nil, err
	}
	return tracking, nil
}

func (s *inmemStore) PutImportedEvent(ctx context.Context, userID uuid.UUID, externalEventID string, e entity.ImportedEvent) error {
	return s.putRecordEntry(userID, RecordImportTracking, externalEventID, e)
}

func (s *inmemStore) DeleteImportedEvent(ctx context.Context, userID uuid.UUID, externalEventID string) error {
	return s.deleteRecordEntry(userID, RecordImportTracking, externalEventID)
}

func (s *inmemStore) ClearImportTracking(ctx context.Context, userID uuid.UUID) error {
	s.deleteRecord(userID, RecordImportTracking)
	return nil
}

func (s *inmemStore) GetSettings(ctx context.Context, userID uuid.UUID) (entity.SyncSettings, error) {
	settings := entity.DefaultSyncSettings()
	if err := s.getRecord(userID, RecordSyncSettings, &settings); err != nil {
		return entity.SyncSettings{}, err
	}
	return settings, nil
}

func (s *inmemStore) PutSettings(ctx context.Context, userID uuid.UUID, settings entity.SyncSettings) error {
	return s.putRecord(userID, RecordSyncSettings, settings)
}

func (s *inmemStore) ListUsersWithSettings(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var userIDs []uuid.UUID
	for userID, records := range s.records {
		if _, ok := records[RecordSyncSettings]; ok {
			userIDs = append(userIDs, userID)
		}
	}
	return userIDs, nil
}
