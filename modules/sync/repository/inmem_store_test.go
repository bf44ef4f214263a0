package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/modules/sync/entity"
)

func TestStoreMissingRecordsComeBackEmpty(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	mappings, err := store.GetExportMappings(ctx, userID)
	if err != nil {
		t.Fatalf("GetExportMappings: %v", err)
	}
	if len(mappings) != 0 {
		t.Errorf("fresh user has %d mappings", len(mappings))
	}

	tracking, err := store.GetImportTracking(ctx, userID)
	if err != nil {
		t.Fatalf("GetImportTracking: %v", err)
	}
	if len(tracking) != 0 {
		t.Errorf("fresh user has %d tracked imports", len(tracking))
	}

	settings, err := store.GetSettings(ctx, userID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.ImportInterval != entity.IntervalManual {
		t.Errorf("default interval %q, want manual", settings.ImportInterval)
	}
}

func TestStoreExportMappingLifecycle(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	mapping := entity.EventMapping{EventID: "evt-1", CalendarID: "primary", LastSynced: time.Now().UTC()}
	if err := store.PutExportMapping(ctx, userID, "reh-1", mapping); err != nil {
		t.Fatalf("PutExportMapping: %v", err)
	}
	if err := store.PutExportMapping(ctx, userID, "reh-2", mapping); err != nil {
		t.Fatalf("PutExportMapping: %v", err)
	}

	mappings, _ := store.GetExportMappings(ctx, userID)
	if len(mappings) != 2 {
		t.Fatalf("got %d mappings, want 2", len(mappings))
	}
	if mappings["reh-1"].EventID != "evt-1" {
		t.Errorf("mapping round-trip lost the event ID")
	}

	if err := store.DeleteExportMapping(ctx, userID, "reh-1"); err != nil {
		t.Fatalf("DeleteExportMapping: %v", err)
	}
	mappings, _ = store.GetExportMappings(ctx, userID)
	if _, ok := mappings["reh-1"]; ok {
		t.Error("deleted mapping still present")
	}

	if err := store.ClearExportMappings(ctx, userID); err != nil {
		t.Fatalf("ClearExportMappings: %v", err)
	}
	mappings, _ = store.GetExportMappings(ctx, userID)
	if len(mappings) != 0 {
		t.Errorf("%d mappings remain after clear", len(mappings))
	}
}

func TestStoreKeepsEveryMappingUnderConcurrentWrites(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rehearsalID := fmt.Sprintf("reh-%d", i)
			errs[i] = store.PutExportMapping(ctx, userID, rehearsalID, entity.EventMapping{
				EventID:    fmt.Sprintf("evt-%d", i),
				CalendarID: "primary",
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("PutExportMapping %d: %v", i, err)
		}
	}
	mappings, err := store.GetExportMappings(ctx, userID)
	if err != nil {
		t.Fatalf("GetExportMappings: %v", err)
	}
	if len(mappings) != writers {
		t.Fatalf("got %d mappings after %d concurrent writes", len(mappings), writers)
	}
	for i := 0; i < writers; i++ {
		if mappings[fmt.Sprintf("reh-%d", i)].EventID != fmt.Sprintf("evt-%d", i) {
			t.Errorf("mapping reh-%d lost or corrupted", i)
		}
	}
}

func TestStoreDeleteOfAbsentKeyCreatesNoRecord(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	userID := uuid.New()

	if err := store.DeleteExportMapping(ctx, userID, "reh-1"); err != nil {
		t.Fatalf("DeleteExportMapping: %v", err)
	}
	if err := store.DeleteImportedEvent(ctx, userID, "evt-1"); err != nil {
		t.Fatalf("DeleteImportedEvent: %v", err)
	}

	inmem := store.(*inmemStore)
	inmem.mu.RLock()
	defer inmem.mu.RUnlock()
	if len(inmem.records[userID]) != 0 {
		t.Errorf("deleting absent keys left %d records behind", len(inmem.records[userID]))
	}
}

func TestStoreIsolatesUsers(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	err := store.PutImportedEvent(ctx, alice, "e1", entity.ImportedEvent{LocalSlotID: "s1"})
	if err != nil {
		t.Fatalf("PutImportedEvent: %v", err)
	}

	tracking, _ := store.GetImportTracking(ctx, bob)
	if len(tracking) != 0 {
		t.Error("one user's tracking leaked into another's")
	}
}

func TestStoreListsUsersWithSettings(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()
	configured, unconfigured := uuid.New(), uuid.New()

	if err := store.PutSettings(ctx, configured, entity.SyncSettings{ImportEnabled: true, ImportInterval: entity.IntervalHourly}); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}
	// A user with only mappings, no settings record, is not listed.
	if err := store.PutExportMapping(ctx, unconfigured, "reh-1", entity.EventMapping{EventID: "evt-1"}); err != nil {
		t.Fatalf("PutExportMapping: %v", err)
	}

	users, err := store.ListUsersWithSettings(ctx)
	if err != nil {
		t.Fatalf("ListUsersWithSettings: %v", err)
	}
	if len(users) != 1 || users[0] != configured {
		t.Fatalf("got %v, want only the configured user", users)
	}
}
