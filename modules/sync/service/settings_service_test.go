package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"rehearsal-hub/core/errors"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/entity"
	"rehearsal-hub/modules/sync/repository"
)

func newSettingsFixture() (SettingsService, repository.MappingStore) {
	provider := newFakeProvider()
	backend := newFakeBackend()
	store := repository.NewInMemoryStore()
	imports := NewImportService(provider, backend, store, nil)
	orchestrator := NewOrchestrator(imports, store, nil)
	return NewSettingsService(store, provider, imports, orchestrator), store
}

func boolPtr(v bool) *bool    { return &v }
func strPtr(v string) *string { return &v }

func TestUpdateSettingsAppliesPartialPatch(t *testing.T) {
	svc, _ := newSettingsFixture()
	userID := uuid.New()
	ctx := context.Background()

	settings, err := svc.UpdateSettings(ctx, userID, &dto.SettingsRequest{
		ExportEnabled:    boolPtr(true),
		ExportCalendarID: strPtr("primary"),
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if !settings.ExportEnabled || settings.ExportCalendarID != "primary" {
		t.Fatalf("export patch not applied: %+v", settings)
	}

	interval := string(entity.IntervalHourly)
	settings, err = svc.UpdateSettings(ctx, userID, &dto.SettingsRequest{
		ImportEnabled:     boolPtr(true),
		ImportCalendarIDs: []string{"primary"},
		ImportInterval:    &interval,
	})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	// The earlier export fields survive a later import-only patch.
	if !settings.ExportEnabled || settings.ExportCalendarID != "primary" {
		t.Errorf("export state lost: %+v", settings)
	}
	if !settings.ImportEnabled || settings.ImportInterval != entity.IntervalHourly {
		t.Errorf("import patch not applied: %+v", settings)
	}
}

func TestUpdateSettingsRejectsUnknownInterval(t *testing.T) {
	svc, _ := newSettingsFixture()
	bad := "fortnightly"

	_, err := svc.UpdateSettings(context.Background(), uuid.New(), &dto.SettingsRequest{ImportInterval: &bad})
	if !errors.IsCode(err, errors.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestUpdateSettingsRequiresExportCalendar(t *testing.T) {
	svc, _ := newSettingsFixture()

	_, err := svc.UpdateSettings(context.Background(), uuid.New(), &dto.SettingsRequest{ExportEnabled: boolPtr(true)})
	if !errors.IsCode(err, errors.ErrPreconditionFailed) {
		t.Fatalf("got %v, want precondition failure", err)
	}
}

func TestUpdateSettingsRejectsUnknownExportCalendar(t *testing.T) {
	svc, _ := newSettingsFixture()

	_, err := svc.UpdateSettings(context.Background(), uuid.New(), &dto.SettingsRequest{
		ExportEnabled:    boolPtr(true),
		ExportCalendarID: strPtr("nonexistent"),
	})
	if !errors.IsCode(err, errors.ErrNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestStatusReflectsCounts(t *testing.T) {
	svc, store := newSettingsFixture()
	userID := uuid.New()
	ctx := context.Background()

	if err := store.PutExportMapping(ctx, userID, "reh-1", entity.EventMapping{EventID: "evt-1"}); err != nil {
		t.Fatalf("PutExportMapping: %v", err)
	}
	if err := store.PutImportedEvent(ctx, userID, "e1", entity.ImportedEvent{LocalSlotID: "s1"}); err != nil {
		t.Fatalf("PutImportedEvent: %v", err)
	}
	if err := store.PutImportedEvent(ctx, userID, "e2", entity.ImportedEvent{LocalSlotID: "s2"}); err != nil {
		t.Fatalf("PutImportedEvent: %v", err)
	}

	status, err := svc.Status(ctx, userID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.ExportedCount != 1 || status.ImportedCount != 2 {
		t.Fatalf("counts exported=%d imported=%d, want 1/2", status.ExportedCount, status.ImportedCount)
	}
	if status.ImportRunning {
		t.Error("import reported running while idle")
	}
}
