package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"rehearsal-hub/core/constants"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/core/utils"
	availabilityDto "rehearsal-hub/modules/availability/dto"
	availabilityService "rehearsal-hub/modules/availability/service"
	devicecalDto "rehearsal-hub/modules/devicecal/dto"
	devicecalService "rehearsal-hub/modules/devicecal/service"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/entity"
	"rehearsal-hub/modules/sync/repository"
)

// ImportService derives availability slots from external calendar events. A
// reconciliation run is a three-way diff between the calendar, the backend's
// slots and the export mapping set.
type ImportService interface {
	Reconcile(ctx context.Context, userID uuid.UUID, calendarIDs []string, onProgress dto.ProgressFunc) (*dto.ImportResult, error)
	RemoveAll(ctx context.Context, userID uuid.UUID) error
	ImportedCount(ctx context.Context, userID uuid.UUID) (int, error)
}

type importService struct {
	provider devicecalService.CalendarProvider
	backend  availabilityService.Client
	store    repository.MappingStore
	reports  *ReportArchiver
	source   availabilityDto.SlotSource
	now      func() time.Time
}

func NewImportService(
	provider devicecalService.CalendarProvider,
	backend availabilityService.Client,
	store repository.MappingStore,
	reports *ReportArchiver,
) ImportService {
	return &importService{
		provider: provider,
		backend:  backend,
		store:    store,
		reports:  reports,
		source:   availabilityDto.SlotSourceGoogleCalendar,
		now:      time.Now,
	}
}

// slotUpdate pairs a changed calendar event with the slot it overwrites.
type slotUpdate struct {
	event devicecalDto.CalendarEvent
	slot  availabilityDto.AvailabilitySlot
}

// diffSets is the add/update/delete partition of one reconciliation run.
// The three key sets are disjoint by construction.
type diffSets struct {
	toAdd    []devicecalDto.CalendarEvent
	toUpdate []slotUpdate
	toDelete []string
	skipped  int
}

func (d *diffSets) empty() bool {
	return len(d.toAdd) == 0 && len(d.toUpdate) == 0 && len(d.toDelete) == 0
}

func (s *importService) Reconcile(ctx context.Context, userID uuid.UUID, calendarIDs []string, onProgress dto.ProgressFunc) (*dto.ImportResult, error) {
	if len(calendarIDs) == 0 {
		return nil, errors.NewAppError(errors.ErrPreconditionFailed, "no import calendars selected", nil)
	}

	runID := utils.GenerateRunID()
	startedAt := s.now()
	windowStart := startOfDayUTC(startedAt)
	windowEnd := windowStart.AddDate(0, 0, constants.ImportHorizonDays)

	logger.Info("ImportService:Reconcile:Start",
		"run_id", runID, "user_id", userID, "calendars", len(calendarIDs))

	// Fetch all three inputs in parallel. Any failure here is a
	// whole-run precondition failure.
	var (
		events   []devicecalDto.CalendarEvent
		slots    []availabilityDto.AvailabilitySlot
		mappings entity.ExportMappings
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		events, err = s.provider.ListEvents(groupCtx, userID, calendarIDs, windowStart, windowEnd)
		return err
	})
	group.Go(func() error {
		var err error
		slots, err = s.backend.GetAllAvailabilitySlots(groupCtx, userID)
		return err
	})
	group.Go(func() error {
		var err error
		mappings, err = s.store.GetExportMappings(groupCtx, userID)
		return err
	})
	if err := group.Wait(); err != nil {
		logger.Error("ImportService:Reconcile:Fetch:Error", "run_id", runID, "user_id", userID, "error", err)
		return nil, err
	}

	diff := s.computeDiff(events, slots, mappings, windowStart, windowEnd)

	result := &dto.ImportResult{Skipped: diff.skipped}

	if diff.empty() {
		logger.Info("ImportService:Reconcile:NothingToDo", "run_id", runID, "user_id", userID, "skipped", diff.skipped)
		s.recordImportTime(ctx, userID)
		return result, nil
	}

	logger.Info("ImportService:Reconcile:Diff",
		"run_id", runID, "user_id", userID,
		"to_add", len(diff.toAdd), "to_update", len(diff.toUpdate), "to_delete", len(diff.toDelete))

	s.applyDiff(ctx, userID, diff, result, onProgress)

	// Recorded even on partial failure so the next run is not forced
	// into a full-history rescan; the diff self-corrects on re-run.
	s.recordImportTime(ctx, userID)

	s.archive(ctx, dto.RunReport{
		RunID:      runID,
		Kind:       "import",
		UserID:     userID.String(),
		StartedAt:  startedAt,
		FinishedAt: s.now(),
		Succeeded:  result.Succeeded,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		Errors:     result.Errors,
	})

	logger.Info("ImportService:Reconcile:Done",
		"run_id", runID, "user_id", userID,
		"succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	return result, nil
}

// computeDiff partitions the key space into the add/update/delete sets.
func (s *importService) computeDiff(
	events []devicecalDto.CalendarEvent,
	slots []availabilityDto.AvailabilitySlot,
	mappings entity.ExportMappings,
	windowStart, windowEnd time.Time,
) *diffSets {
	exported := mappings.EventIDSet()
	diff := &diffSets{}

	// Only externally-sourced slots with an event ID, inside the window,
	// belong to this pipeline. Manual and rehearsal slots are invisible.
	slotByID := make(map[string]availabilityDto.AvailabilitySlot)
	for _, slot := range slots {
		if !slot.Source.IsExternalCalendar() || slot.ExternalEventID == "" {
			continue
		}
		if !slot.StartsAt.Before(windowEnd) || slot.EndsAt.Before(windowStart) {
			continue
		}
		slotByID[slot.ExternalEventID] = slot
	}

	// Our own exported events come back from the calendar API like any
	// other event; they must not cycle in as imports.
	eventByID := make(map[string]devicecalDto.CalendarEvent)
	for _, event := range events {
		if _, isExported := exported[event.ID]; isExported {
			diff.skipped++
			continue
		}
		eventByID[event.ID] = event
	}

	for id := range slotByID {
		if _, stillPresent := eventByID[id]; stillPresent {
			continue
		}
		if _, isExported := exported[id]; isExported {
			continue
		}
		diff.toDelete = append(diff.toDelete, id)
	}

	for id, event := range eventByID {
		slot, exists := slotByID[id]
		if !exists {
			diff.toAdd = append(diff.toAdd, event)
			continue
		}
		if s.eventDiffers(&event, &slot) {
			diff.toUpdate = append(diff.toUpdate, slotUpdate{event: event, slot: slot})
		} else {
			diff.skipped++
		}
	}

	return diff
}

func (s *importService) eventDiffers(event *devicecalDto.CalendarEvent, slot *availabilityDto.AvailabilitySlot) bool {
	startsAt, endsAt := slotWindow(event)
	return !startsAt.Equal(slot.StartsAt) ||
		!endsAt.Equal(slot.EndsAt) ||
		event.Title != slot.Title ||
		event.AllDay != slot.IsAllDay
}

// applyDiff issues the delete request, the update request and the chunked
// create requests all in parallel. The key sets are disjoint, so ordering
// between them does not matter; each operation's failure is counted against
// its own batch and never blocks the others.
func (s *importService) applyDiff(ctx context.Context, userID uuid.UUID, diff *diffSets, result *dto.ImportResult, onProgress dto.ProgressFunc) {
	var mu sync.Mutex
	var wg sync.WaitGroup

	chunks := chunkEvents(diff.toAdd, constants.ImportCreateChunkSize)
	totalOps := len(chunks)
	if len(diff.toDelete) > 0 {
		totalOps++
	}
	if len(diff.toUpdate) > 0 {
		totalOps++
	}
	doneOps := 0

	progress := func() {
		doneOps++
		if onProgress != nil {
			onProgress(doneOps, totalOps)
		}
	}

	if len(diff.toDelete) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.backend.BulkDeleteSlotsByExternalID(ctx, userID, diff.toDelete)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed += len(diff.toDelete)
				result.Errors = append(result.Errors, fmt.Sprintf("delete %d slots: %v", len(diff.toDelete), err))
				progress()
				return
			}
			result.Succeeded += len(diff.toDelete)
			for _, id := range diff.toDelete {
				if err := s.store.DeleteImportedEvent(ctx, userID, id); err != nil {
					// Left for the next run; the diff re-derives it.
					logger.Warn("ImportService:ApplyDiff:DropTracking:Error", "user_id", userID, "event_id", id, "error", err)
				}
			}
			progress()
		}()
	}

	if len(diff.toUpdate) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			updates := make([]availabilityDto.SlotUpdate, 0, len(diff.toUpdate))
			for _, pair := range diff.toUpdate {
				startsAt, endsAt := slotWindow(&pair.event)
				title := pair.event.Title
				isAllDay := pair.event.AllDay
				updates = append(updates, availabilityDto.SlotUpdate{
					ExternalEventID: pair.event.ID,
					Fields: availabilityDto.SlotFields{
						StartsAt: &startsAt,
						EndsAt:   &endsAt,
						Title:    &title,
						IsAllDay: &isAllDay,
					},
				})
			}

			err := s.backend.BulkUpdateSlots(ctx, userID, updates)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed += len(diff.toUpdate)
				result.Errors = append(result.Errors, fmt.Sprintf("update %d slots: %v", len(diff.toUpdate), err))
				progress()
				return
			}
			result.Succeeded += len(diff.toUpdate)
			for _, pair := range diff.toUpdate {
				s.track(ctx, userID, pair.event.ID, pair.slot.ID, pair.event.CalendarID)
			}
			progress()
		}()
	}

	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		go func() {
			defer wg.Done()
			created := make([]availabilityDto.AvailabilitySlot, 0, len(chunk))
			for _, event := range chunk {
				startsAt, endsAt := slotWindow(&event)
				created = append(created, availabilityDto.AvailabilitySlot{
					ID:              utils.GenerateSlotID(),
					StartsAt:        startsAt,
					EndsAt:          endsAt,
					Type:            availabilityDto.SlotTypeBusy,
					Source:          s.source,
					ExternalEventID: event.ID,
					Title:           event.Title,
					IsAllDay:        event.AllDay,
				})
			}

			err := s.backend.BulkCreateSlots(ctx, userID, created)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed += len(chunk)
				result.Errors = append(result.Errors, fmt.Sprintf("create %d slots: %v", len(chunk), err))
				progress()
				return
			}
			result.Succeeded += len(chunk)
			for i, event := range chunk {
				s.track(ctx, userID, event.ID, created[i].ID, event.CalendarID)
			}
			progress()
		}()
	}

	wg.Wait()
}

func (s *importService) track(ctx context.Context, userID uuid.UUID, externalEventID, slotID, calendarID string) {
	err := s.store.PutImportedEvent(ctx, userID, externalEventID, entity.ImportedEvent{
		LocalSlotID:  slotID,
		CalendarID:   calendarID,
		LastImported: s.now(),
	})
	if err != nil {
		// Backend accepted the write but tracking did not; the next
		// reconciliation converges on its own.
		logger.Warn("ImportService:Track:Error", "user_id", userID, "event_id", externalEventID, "error", err)
	}
}

// RemoveAll deletes every imported slot from the backend, then clears local
// tracking. Backend first: when the backend delete fails, tracking stays so
// nothing silently diverges.
func (s *importService) RemoveAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.backend.DeleteAllImportedSlots(ctx, userID); err != nil {
		logger.Error("ImportService:RemoveAll:Backend:Error", "user_id", userID, "error", err)
		return errors.NewAppError(errors.ErrInternalServer, "failed to delete imported slots", err)
	}
	if err := s.store.ClearImportTracking(ctx, userID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to clear import tracking", err)
	}
	logger.Info("ImportService:RemoveAll:Done", "user_id", userID)
	return nil
}

func (s *importService) ImportedCount(ctx context.Context, userID uuid.UUID) (int, error) {
	tracking, err := s.store.GetImportTracking(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(tracking), nil
}

func (s *importService) recordImportTime(ctx context.Context, userID uuid.UUID) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		logger.Warn("ImportService:RecordImportTime:ReadSettings:Error", "user_id", userID, "error", err)
		return
	}
	now := s.now()
	settings.LastImportTime = &now
	if err := s.store.PutSettings(ctx, userID, settings); err != nil {
		logger.Warn("ImportService:RecordImportTime:WriteSettings:Error", "user_id", userID, "error", err)
	}
}

func (s *importService) archive(ctx context.Context, report dto.RunReport) {
	if s.reports == nil {
		return
	}
	s.reports.Archive(ctx, report)
}

func chunkEvents(events []devicecalDto.CalendarEvent, size int) [][]devicecalDto.CalendarEvent {
	if len(events) == 0 {
		return nil
	}
	var chunks [][]devicecalDto.CalendarEvent
	for offset := 0; offset < len(events); offset += size {
		end := offset + size
		if end > len(events) {
			end = len(events)
		}
		chunks = append(chunks, events[offset:end])
	}
	return chunks
}

func startOfDayUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
