package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rehearsal-hub/core/errors"
	devicecalService "rehearsal-hub/modules/devicecal/service"
	rehearsalEntity "rehearsal-hub/modules/rehearsal/entity"
	rehearsalRepo "rehearsal-hub/modules/rehearsal/repository"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/repository"
)

// SyncService is the HTTP-facing facade over export. It resolves rehearsals
// and the target calendar so the controller stays free of domain lookups.
type SyncService interface {
	ExportRehearsal(ctx context.Context, userID, rehearsalID uuid.UUID) error
	ExportAll(ctx context.Context, userID uuid.UUID, req *dto.SyncAllRequest) (*dto.BatchSyncResult, error)
	UnsyncRehearsal(ctx context.Context, userID, rehearsalID uuid.UUID) error
	RemoveAllExported(ctx context.Context, userID uuid.UUID) (*dto.BatchSyncResult, error)
	RehearsalStatus(ctx context.Context, userID, rehearsalID uuid.UUID) (*dto.RehearsalSyncStatusResponse, error)
}

type syncService struct {
	exports    ExportService
	rehearsals rehearsalRepo.RehearsalRepository
	calendars  devicecalService.DeviceCalendarService
	store      repository.MappingStore
}

func NewSyncService(
	exports ExportService,
	rehearsals rehearsalRepo.RehearsalRepository,
	calendars devicecalService.DeviceCalendarService,
	store repository.MappingStore,
) SyncService {
	return &syncService{
		exports:    exports,
		rehearsals: rehearsals,
		calendars:  calendars,
		store:      store,
	}
}

// resolveCalendar picks the export target: an explicit override wins, then
// the configured calendar, then the device default.
func (s *syncService) resolveCalendar(ctx context.Context, userID uuid.UUID, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return "", errors.NewAppError(errors.ErrInternalServer, "failed to read sync settings", err)
	}
	if settings.ExportCalendarID != "" {
		return settings.ExportCalendarID, nil
	}
	calendar, err := s.calendars.DefaultCalendar(ctx, userID)
	if err != nil {
		return "", err
	}
	if calendar == nil {
		return "", errors.NewAppError(errors.ErrPreconditionFailed, "no writable calendar available", nil)
	}
	return calendar.ID, nil
}

func (s *syncService) ExportRehearsal(ctx context.Context, userID, rehearsalID uuid.UUID) error {
	rehearsal, err := s.rehearsals.GetByID(ctx, rehearsalID)
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to load rehearsal", err)
	}
	if rehearsal == nil {
		return errors.NewAppError(errors.ErrNotFound, "rehearsal not found", nil)
	}

	calendarID, err := s.resolveCalendar(ctx, userID, "")
	if err != nil {
		return err
	}
	return s.exports.SyncOne(ctx, userID, rehearsal, calendarID)
}

func (s *syncService) ExportAll(ctx context.Context, userID uuid.UUID, req *dto.SyncAllRequest) (*dto.BatchSyncResult, error) {
	calendarID, err := s.resolveCalendar(ctx, userID, req.CalendarID)
	if err != nil {
		return nil, err
	}

	rehearsals, err := s.loadRehearsals(ctx, userID, req.RehearsalIDs)
	if err != nil {
		return nil, err
	}
	return s.exports.SyncAll(ctx, userID, rehearsals, calendarID, nil)
}

func (s *syncService) loadRehearsals(ctx context.Context, userID uuid.UUID, ids []string) ([]rehearsalEntity.RehearsalWithProject, error) {
	if len(ids) == 0 {
		rehearsals, err := s.rehearsals.GetUpcomingWithProject(ctx, userID, time.Now())
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load rehearsals", err)
		}
		return rehearsals, nil
	}

	parsed := make([]uuid.UUID, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "invalid rehearsal id", err)
		}
		parsed = append(parsed, id)
	}
	rehearsals, err := s.rehearsals.GetByIDs(ctx, parsed)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load rehearsals", err)
	}
	return rehearsals, nil
}

func (s *syncService) UnsyncRehearsal(ctx context.Context, userID, rehearsalID uuid.UUID) error {
	return s.exports.UnsyncOne(ctx, userID, rehearsalID)
}

func (s *syncService) RemoveAllExported(ctx context.Context, userID uuid.UUID) (*dto.BatchSyncResult, error) {
	return s.exports.RemoveAll(ctx, userID, nil)
}

func (s *syncService) RehearsalStatus(ctx context.Context, userID, rehearsalID uuid.UUID) (*dto.RehearsalSyncStatusResponse, error) {
	synced, err := s.exports.IsRehearsalSynced(ctx, userID, rehearsalID)
	if err != nil {
		return nil, err
	}
	return &dto.RehearsalSyncStatusResponse{
		RehearsalID: rehearsalID.String(),
		Synced:      synced,
	}, nil
}
