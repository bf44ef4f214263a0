package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/core/errors"
	availabilityDto "rehearsal-hub/modules/availability/dto"
	devicecalDto "rehearsal-hub/modules/devicecal/dto"
	"rehearsal-hub/modules/sync/entity"
	"rehearsal-hub/modules/sync/repository"
)

func newImportFixture() (*fakeProvider, *fakeBackend, repository.MappingStore, ImportService) {
	provider := newFakeProvider()
	backend := newFakeBackend()
	store := repository.NewInMemoryStore()
	svc := NewImportService(provider, backend, store, nil)
	return provider, backend, store, svc
}

func timedEvent(id, title string, start time.Time, duration time.Duration) devicecalDto.CalendarEvent {
	return devicecalDto.CalendarEvent{
		ID:         id,
		CalendarID: "primary",
		Title:      title,
		Start:      start,
		End:        start.Add(duration),
	}
}

func importedSlot(slotID, externalEventID, title string, start time.Time, duration time.Duration) availabilityDto.AvailabilitySlot {
	return availabilityDto.AvailabilitySlot{
		ID:              slotID,
		StartsAt:        start.UTC(),
		EndsAt:          start.Add(duration).UTC(),
		Type:            availabilityDto.SlotTypeBusy,
		Source:          availabilityDto.SlotSourceGoogleCalendar,
		ExternalEventID: externalEventID,
		Title:           title,
	}
}

func TestReconcileCreatesSlotsFromEvents(t *testing.T) {
	provider, backend, store, svc := newImportFixture()
	userID := uuid.New()
	tomorrow := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	provider.addEvent(timedEvent("e1", "Dentist", tomorrow, time.Hour))
	provider.addEvent(timedEvent("e2", "Flight", tomorrow.Add(4*time.Hour), 2*time.Hour))

	result, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 0 {
		t.Fatalf("got succeeded=%d failed=%d, want 2/0", result.Succeeded, result.Failed)
	}

	for _, eventID := range []string{"e1", "e2"} {
		slot, ok := backend.slotByExternalID(eventID)
		if !ok {
			t.Fatalf("no slot created for event %s", eventID)
		}
		if slot.Type != availabilityDto.SlotTypeBusy {
			t.Errorf("slot for %s has type %q, want busy", eventID, slot.Type)
		}
		if slot.Source != availabilityDto.SlotSourceGoogleCalendar {
			t.Errorf("slot for %s has source %q", eventID, slot.Source)
		}
	}

	tracking, err := store.GetImportTracking(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetImportTracking: %v", err)
	}
	if len(tracking) != 2 {
		t.Fatalf("tracking has %d entries, want 2", len(tracking))
	}
}

func TestReconcilePartitionsAddUpdateDelete(t *testing.T) {
	provider, backend, _, svc := newImportFixture()
	userID := uuid.New()
	base := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)

	// e1 unchanged, e2 retitled, e4 brand new; e3 exists only as a slot.
	provider.addEvent(timedEvent("e1", "Standup", base, time.Hour))
	provider.addEvent(timedEvent("e2", "Retro (moved)", base.Add(2*time.Hour), time.Hour))
	provider.addEvent(timedEvent("e4", "Concert", base.Add(6*time.Hour), 3*time.Hour))

	backend.addSlot(importedSlot("s1", "e1", "Standup", base, time.Hour))
	backend.addSlot(importedSlot("s2", "e2", "Retro", base.Add(2*time.Hour), time.Hour))
	backend.addSlot(importedSlot("s3", "e3", "Cancelled thing", base.Add(4*time.Hour), time.Hour))

	result, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	// One create, one update, one delete.
	if result.Succeeded != 3 {
		t.Fatalf("succeeded=%d, want 3 (errors: %v)", result.Succeeded, result.Errors)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped=%d, want 1 (the unchanged event)", result.Skipped)
	}

	if _, ok := backend.slotByExternalID("e3"); ok {
		t.Error("slot for vanished event e3 was not deleted")
	}
	if _, ok := backend.slotByExternalID("e4"); !ok {
		t.Error("no slot created for new event e4")
	}
	updated, ok := backend.slotByExternalID("e2")
	if !ok {
		t.Fatal("slot for e2 disappeared")
	}
	if updated.Title != "Retro (moved)" {
		t.Errorf("slot for e2 has title %q, want the new event title", updated.Title)
	}
	if updated.ID != "s2" {
		t.Errorf("update replaced slot %q instead of modifying it", updated.ID)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	provider, _, _, svc := newImportFixture()
	userID := uuid.New()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	provider.addEvent(timedEvent("e1", "Dentist", base, time.Hour))
	provider.addEvent(timedEvent("e2", "Flight", base.Add(3*time.Hour), time.Hour))

	if _, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Succeeded != 0 || second.Failed != 0 {
		t.Fatalf("second run changed things: succeeded=%d failed=%d", second.Succeeded, second.Failed)
	}
	if second.Skipped != 2 {
		t.Errorf("second run skipped=%d, want 2", second.Skipped)
	}
}

func TestReconcileSkipsOwnExportedEvents(t *testing.T) {
	provider, backend, store, svc := newImportFixture()
	userID := uuid.New()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	// An event this service itself exported shows up in the calendar feed
	// like any other. It must not round-trip into a slot.
	provider.addEvent(timedEvent("exported-1", "Rehearsal: Hamlet", base, 2*time.Hour))
	err := store.PutExportMapping(context.Background(), userID, uuid.NewString(), entity.EventMapping{
		EventID:    "exported-1",
		CalendarID: "primary",
		LastSynced: time.Now(),
	})
	if err != nil {
		t.Fatalf("PutExportMapping: %v", err)
	}

	result, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped=%d, want 1", result.Skipped)
	}
	if _, ok := backend.slotByExternalID("exported-1"); ok {
		t.Error("exported event cycled back in as an imported slot")
	}
}

func TestReconcileLeavesForeignSlotsAlone(t *testing.T) {
	_, backend, _, svc := newImportFixture()
	userID := uuid.New()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	// Manual and rehearsal-derived slots are not this pipeline's to delete,
	// even though no calendar event backs them.
	backend.addSlot(availabilityDto.AvailabilitySlot{
		ID: "manual-1", StartsAt: base, EndsAt: base.Add(time.Hour),
		Type: availabilityDto.SlotTypeBusy, Source: availabilityDto.SlotSourceManual,
	})
	backend.addSlot(availabilityDto.AvailabilitySlot{
		ID: "reh-1", StartsAt: base.Add(2 * time.Hour), EndsAt: base.Add(3 * time.Hour),
		Type: availabilityDto.SlotTypeBusy, Source: availabilityDto.SlotSourceRehearsal,
		ExternalEventID: "some-id",
	})
	// External source but no event ID: unmanaged, also untouchable.
	backend.addSlot(availabilityDto.AvailabilitySlot{
		ID: "ext-noid", StartsAt: base.Add(4 * time.Hour), EndsAt: base.Add(5 * time.Hour),
		Type: availabilityDto.SlotTypeBusy, Source: availabilityDto.SlotSourceGoogleCalendar,
	})

	result, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Succeeded != 0 || result.Failed != 0 {
		t.Fatalf("run touched foreign slots: %+v", result)
	}

	slots, _ := backend.GetAllAvailabilitySlots(context.Background(), userID)
	if len(slots) != 3 {
		t.Fatalf("%d slots remain, want all 3 untouched", len(slots))
	}
}

func TestReconcileNormalizesAllDayEvents(t *testing.T) {
	provider, backend, _, svc := newImportFixture()
	userID := uuid.New()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	day := time.Now().In(loc).AddDate(0, 0, 2)
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	provider.addEvent(devicecalDto.CalendarEvent{
		ID: "allday-1", CalendarID: "primary", Title: "Tour day",
		Start: start, End: start, AllDay: true,
	})

	if _, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	slot, ok := backend.slotByExternalID("allday-1")
	if !ok {
		t.Fatal("all-day event was not imported")
	}
	wantStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 999_000_000, time.UTC)
	if !slot.StartsAt.Equal(wantStart) {
		t.Errorf("slot starts at %v, want UTC midnight %v", slot.StartsAt, wantStart)
	}
	if !slot.EndsAt.Equal(wantEnd) {
		t.Errorf("slot ends at %v, want %v", slot.EndsAt, wantEnd)
	}
	if !slot.IsAllDay {
		t.Error("slot lost the all-day flag")
	}
}

func TestReconcilePartialFailureStillRecordsImportTime(t *testing.T) {
	provider, backend, store, svc := newImportFixture()
	userID := uuid.New()
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)

	provider.addEvent(timedEvent("e1", "New thing", base, time.Hour))
	backend.addSlot(importedSlot("s9", "gone-event", "Old thing", base.Add(5*time.Hour), time.Hour))
	backend.createErr = errors.NewAppError(errors.ErrInternalServer, "backend down", nil)

	result, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("failed=%d, want 1 (the blocked create)", result.Failed)
	}
	if result.Succeeded != 1 {
		t.Errorf("succeeded=%d, want 1 (the delete still ran)", result.Succeeded)
	}
	if len(result.Errors) == 0 {
		t.Error("partial failure reported no errors")
	}

	settings, err := store.GetSettings(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.LastImportTime == nil {
		t.Error("LastImportTime not recorded after a partial run")
	}
}

func TestReconcileRequiresCalendars(t *testing.T) {
	_, _, _, svc := newImportFixture()

	_, err := svc.Reconcile(context.Background(), uuid.New(), nil, nil)
	if !errors.IsCode(err, errors.ErrPreconditionFailed) {
		t.Fatalf("got %v, want precondition failure", err)
	}
}

func TestReconcileRecordsImportTimeWhenNothingChanged(t *testing.T) {
	_, _, store, svc := newImportFixture()
	userID := uuid.New()

	if _, err := svc.Reconcile(context.Background(), userID, []string{"primary"}, nil); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	settings, err := store.GetSettings(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.LastImportTime == nil {
		t.Error("LastImportTime not recorded for an empty run")
	}
}

func TestRemoveAllDeletesBackendFirst(t *testing.T) {
	_, backend, store, svc := newImportFixture()
	userID := uuid.New()
	base := time.Now().UTC()

	backend.addSlot(importedSlot("s1", "e1", "Dentist", base, time.Hour))
	err := store.PutImportedEvent(context.Background(), userID, "e1", entity.ImportedEvent{
		LocalSlotID: "s1", CalendarID: "primary", LastImported: base,
	})
	if err != nil {
		t.Fatalf("PutImportedEvent: %v", err)
	}

	backend.deleteAllErr = errors.NewAppError(errors.ErrInternalServer, "backend down", nil)
	if err := svc.RemoveAll(context.Background(), userID); err == nil {
		t.Fatal("RemoveAll succeeded despite backend failure")
	}
	// Tracking must survive the failed backend call.
	if count, _ := svc.ImportedCount(context.Background(), userID); count != 1 {
		t.Fatalf("tracking count=%d after failed removal, want 1", count)
	}

	backend.deleteAllErr = nil
	if err := svc.RemoveAll(context.Background(), userID); err != nil {
		t.Fatalf("RemoveAll: %v", err)
	}
	if count, _ := svc.ImportedCount(context.Background(), userID); count != 0 {
		t.Fatalf("tracking count=%d after removal, want 0", count)
	}
	if slots, _ := backend.GetAllAvailabilitySlots(context.Background(), userID); len(slots) != 0 {
		t.Fatalf("%d slots remain in backend", len(slots))
	}
}
