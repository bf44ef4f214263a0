package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/core/constants"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	"rehearsal-hub/core/utils"
	devicecalDto "rehearsal-hub/modules/devicecal/dto"
	devicecalService "rehearsal-hub/modules/devicecal/service"
	rehearsalEntity "rehearsal-hub/modules/rehearsal/entity"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/entity"
	"rehearsal-hub/modules/sync/repository"
)

// ExportService mirrors rehearsals out to the user's calendar and owns the
// rehearsal-to-event mapping record.
type ExportService interface {
	SyncOne(ctx context.Context, userID uuid.UUID, rehearsal *rehearsalEntity.RehearsalWithProject, calendarID string) error
	SyncAll(ctx context.Context, userID uuid.UUID, rehearsals []rehearsalEntity.RehearsalWithProject, calendarID string, onProgress dto.ProgressFunc) (*dto.BatchSyncResult, error)
	UnsyncOne(ctx context.Context, userID uuid.UUID, rehearsalID uuid.UUID) error
	RemoveAll(ctx context.Context, userID uuid.UUID, onProgress dto.ProgressFunc) (*dto.BatchSyncResult, error)
	IsRehearsalSynced(ctx context.Context, userID uuid.UUID, rehearsalID uuid.UUID) (bool, error)
}

type exportService struct {
	provider devicecalService.CalendarProvider
	store    repository.MappingStore
	reports  *ReportArchiver
	now      func() time.Time
}

func NewExportService(provider devicecalService.CalendarProvider, store repository.MappingStore, reports *ReportArchiver) ExportService {
	return &exportService{
		provider: provider,
		store:    store,
		reports:  reports,
		now:      time.Now,
	}
}

// syncState computes the tagged export state of one rehearsal.
func (s *exportService) syncState(ctx context.Context, userID uuid.UUID, rehearsalID string) (entity.SyncState, error) {
	mappings, err := s.store.GetExportMappings(ctx, userID)
	if err != nil {
		return entity.SyncState{}, errors.NewAppError(errors.ErrInternalServer, "failed to read export mappings", err)
	}

	mapping, ok := mappings[rehearsalID]
	if !ok {
		return entity.SyncState{Kind: entity.StateUnsynced}, nil
	}

	event, err := s.provider.GetEvent(ctx, userID, mapping.EventID)
	if err != nil {
		return entity.SyncState{}, err
	}
	if event == nil {
		return entity.SyncState{Kind: entity.StateOrphaned, EventID: mapping.EventID, CalendarID: mapping.CalendarID}, nil
	}
	return entity.SyncState{Kind: entity.StateSynced, EventID: mapping.EventID, CalendarID: mapping.CalendarID}, nil
}

// createAndBind creates the calendar event for a rehearsal, or, when an
// equivalent event already exists in the target calendar, binds the mapping
// to it. The search makes a re-export after mapping loss idempotent.
func (s *exportService) createAndBind(ctx context.Context, userID uuid.UUID, rehearsal *rehearsalEntity.RehearsalWithProject, calendarID string) (string, error) {
	if existing := s.findDuplicate(ctx, userID, rehearsal, calendarID); existing != "" {
		logger.Info("ExportService:CreateAndBind:DuplicateFound",
			"user_id", userID, "rehearsal_id", rehearsal.ID, "event_id", existing)
		if err := s.persistMapping(ctx, userID, rehearsal.ID.String(), existing, calendarID); err != nil {
			return "", err
		}
		return existing, nil
	}

	eventID, err := s.provider.CreateEvent(ctx, userID, &devicecalDto.CreateEventRequest{
		CalendarID:            calendarID,
		Title:                 DeriveEventLabel(rehearsal),
		Start:                 rehearsal.StartsAt,
		End:                   rehearsal.EndsAt,
		Location:              rehearsal.Location,
		Notes:                 DeriveEventNotes(rehearsal),
		ReminderMinutesBefore: constants.ExportReminderMinutes,
		Busy:                  true,
	})
	if err != nil {
		return "", err
	}

	if err := s.persistMapping(ctx, userID, rehearsal.ID.String(), eventID, calendarID); err != nil {
		return "", err
	}
	return eventID, nil
}

// findDuplicate searches the target calendar around the rehearsal's times for
// an event that already mirrors it: same derived label, start and end within
// tolerance, same location. Search failures fall through to creation.
func (s *exportService) findDuplicate(ctx context.Context, userID uuid.UUID, rehearsal *rehearsalEntity.RehearsalWithProject, calendarID string) string {
	windowStart := rehearsal.StartsAt.Add(-constants.DuplicateSearchWindow)
	windowEnd := rehearsal.EndsAt.Add(constants.DuplicateSearchWindow)

	events, err := s.provider.ListEvents(ctx, userID, []string{calendarID}, windowStart, windowEnd)
	if err != nil {
		logger.Warn("ExportService:FindDuplicate:SearchFailed", "user_id", userID, "rehearsal_id", rehearsal.ID, "error", err)
		return ""
	}

	label := DeriveEventLabel(rehearsal)
	for _, event := range events {
		if event.Title != label {
			continue
		}
		if absDuration(event.Start.Sub(rehearsal.StartsAt)) > constants.DuplicateTimeTolerance {
			continue
		}
		if absDuration(event.End.Sub(rehearsal.EndsAt)) > constants.DuplicateTimeTolerance {
			continue
		}
		if event.Location != rehearsal.Location {
			continue
		}
		return event.ID
	}
	return ""
}

func (s *exportService) persistMapping(ctx context.Context, userID uuid.UUID, rehearsalID, eventID, calendarID string) error {
	err := s.store.PutExportMapping(ctx, userID, rehearsalID, entity.EventMapping{
		EventID:    eventID,
		CalendarID: calendarID,
		LastSynced: s.now(),
	})
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to persist event mapping", err)
	}
	return nil
}

// SyncOne exports or refreshes a single rehearsal.
func (s *exportService) SyncOne(ctx context.Context, userID uuid.UUID, rehearsal *rehearsalEntity.RehearsalWithProject, calendarID string) error {
	state, err := s.syncState(ctx, userID, rehearsal.ID.String())
	if err != nil {
		return err
	}

	switch state.Kind {
	case entity.StateUnsynced:
		_, err = s.createAndBind(ctx, userID, rehearsal, calendarID)
		return err

	case entity.StateOrphaned:
		// The mapped event vanished from the calendar; start over.
		if err := s.store.DeleteExportMapping(ctx, userID, rehearsal.ID.String()); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to drop orphaned mapping", err)
		}
		_, err = s.createAndBind(ctx, userID, rehearsal, calendarID)
		return err

	case entity.StateSynced:
		label := DeriveEventLabel(rehearsal)
		notes := DeriveEventNotes(rehearsal)
		patch := &devicecalDto.EventPatch{
			Title:    &label,
			Start:    &rehearsal.StartsAt,
			End:      &rehearsal.EndsAt,
			Location: &rehearsal.Location,
			Notes:    &notes,
		}
		err := s.provider.UpdateEvent(ctx, userID, state.EventID, patch)
		if err == nil {
			return s.persistMapping(ctx, userID, rehearsal.ID.String(), state.EventID, state.CalendarID)
		}
		// Only a vanished event justifies recreating; anything else is
		// a transient failure the caller may retry.
		if !errors.IsNotFound(err) {
			return err
		}
		logger.Info("ExportService:SyncOne:EventGoneOnUpdate", "user_id", userID, "rehearsal_id", rehearsal.ID)
		if err := s.store.DeleteExportMapping(ctx, userID, rehearsal.ID.String()); err != nil {
			return errors.NewAppError(errors.ErrInternalServer, "failed to drop stale mapping", err)
		}
		_, err = s.createAndBind(ctx, userID, rehearsal, calendarID)
		return err
	}

	return errors.NewAppError(errors.ErrInternalServer, "unknown sync state", nil)
}

// SyncAll exports rehearsals in fixed-size waves. Failures are isolated per
// rehearsal; the batch always runs to completion.
func (s *exportService) SyncAll(ctx context.Context, userID uuid.UUID, rehearsals []rehearsalEntity.RehearsalWithProject, calendarID string, onProgress dto.ProgressFunc) (*dto.BatchSyncResult, error) {
	if calendarID == "" {
		return nil, errors.NewAppError(errors.ErrPreconditionFailed, "no export calendar selected", nil)
	}

	logger.Info("ExportService:SyncAll:Start", "user_id", userID, "count", len(rehearsals), "calendar_id", calendarID)

	runID := utils.GenerateRunID()
	startedAt := s.now()
	result := &dto.BatchSyncResult{}
	var mu sync.Mutex
	total := len(rehearsals)

	for offset := 0; offset < total; offset += constants.ExportBatchSize {
		end := offset + constants.ExportBatchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			rehearsal := rehearsals[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.SyncOne(ctx, userID, &rehearsal, calendarID); err != nil {
					mu.Lock()
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("rehearsal %s: %v", rehearsal.ID, err))
					mu.Unlock()
					return
				}
				mu.Lock()
				result.Succeeded++
				mu.Unlock()
			}()
		}
		wg.Wait()

		if onProgress != nil {
			onProgress(end, total)
		}
	}

	s.recordExportTime(ctx, userID)

	if s.reports != nil {
		s.reports.Archive(ctx, dto.RunReport{
			RunID:      runID,
			Kind:       "export",
			UserID:     userID.String(),
			StartedAt:  startedAt,
			FinishedAt: s.now(),
			Succeeded:  result.Succeeded,
			Failed:     result.Failed,
			Errors:     result.Errors,
		})
	}

	logger.Info("ExportService:SyncAll:Done",
		"user_id", userID, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// UnsyncOne deletes the mirrored event best-effort and always removes the
// mapping.
func (s *exportService) UnsyncOne(ctx context.Context, userID uuid.UUID, rehearsalID uuid.UUID) error {
	mappings, err := s.store.GetExportMappings(ctx, userID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to read export mappings", err)
	}

	mapping, ok := mappings[rehearsalID.String()]
	if !ok {
		return nil
	}

	if err := s.provider.DeleteEvent(ctx, userID, mapping.EventID); err != nil && !errors.IsNotFound(err) {
		logger.Warn("ExportService:UnsyncOne:DeleteFailed", "user_id", userID, "rehearsal_id", rehearsalID, "error", err)
	}

	if err := s.store.DeleteExportMapping(ctx, userID, rehearsalID.String()); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to remove event mapping", err)
	}
	return nil
}

// RemoveAll deletes every event the mapping store says we exported. The
// store, not the calendar, is the authority on what to delete; mappings are
// cleared even when some deletions fail.
func (s *exportService) RemoveAll(ctx context.Context, userID uuid.UUID, onProgress dto.ProgressFunc) (*dto.BatchSyncResult, error) {
	mappings, err := s.store.GetExportMappings(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to read export mappings", err)
	}

	eventIDs := make([]string, 0, len(mappings))
	for _, mapping := range mappings {
		eventIDs = append(eventIDs, mapping.EventID)
	}

	result := &dto.BatchSyncResult{}
	var mu sync.Mutex
	total := len(eventIDs)

	for offset := 0; offset < total; offset += constants.ExportBatchSize {
		end := offset + constants.ExportBatchSize
		if end > total {
			end = total
		}

		var wg sync.WaitGroup
		for i := offset; i < end; i++ {
			eventID := eventIDs[i]
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := s.provider.DeleteEvent(ctx, userID, eventID); err != nil && !errors.IsNotFound(err) {
					mu.Lock()
					result.Failed++
					result.Errors = append(result.Errors, fmt.Sprintf("event %s: %v", eventID, err))
					mu.Unlock()
					return
				}
				mu.Lock()
				result.Succeeded++
				mu.Unlock()
			}()
		}
		wg.Wait()

		if onProgress != nil {
			onProgress(end, total)
		}
	}

	// Best-effort cleanup, trust local state: the mappings go away even
	// when some calendar deletions failed.
	if err := s.store.ClearExportMappings(ctx, userID); err != nil {
		return result, errors.NewAppError(errors.ErrInternalServer, "failed to clear export mappings", err)
	}

	logger.Info("ExportService:RemoveAll:Done",
		"user_id", userID, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (s *exportService) IsRehearsalSynced(ctx context.Context, userID uuid.UUID, rehearsalID uuid.UUID) (bool, error) {
	mappings, err := s.store.GetExportMappings(ctx, userID)
	if err != nil {
		return false, errors.NewAppError(errors.ErrInternalServer, "failed to read export mappings", err)
	}
	_, ok := mappings[rehearsalID.String()]
	return ok, nil
}

func (s *exportService) recordExportTime(ctx context.Context, userID uuid.UUID) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		logger.Warn("ExportService:RecordExportTime:ReadSettings:Error", "user_id", userID, "error", err)
		return
	}
	now := s.now()
	settings.LastExportTime = &now
	if err := s.store.PutSettings(ctx, userID, settings); err != nil {
		logger.Warn("ExportService:RecordExportTime:WriteSettings:Error", "user_id", userID, "error", err)
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
