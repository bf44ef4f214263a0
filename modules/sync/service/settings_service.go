package service

import (
	"context"

	"github.com/google/uuid"

	"rehearsal-hub/core/errors"
	"rehearsal-hub/core/logger"
	devicecalService "rehearsal-hub/modules/devicecal/service"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/entity"
	"rehearsal-hub/modules/sync/repository"
)

// SettingsService owns the user's sync configuration and the aggregate
// status view.
type SettingsService interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (entity.SyncSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.SettingsRequest) (entity.SyncSettings, error)
	Status(ctx context.Context, userID uuid.UUID) (*dto.SyncStatusResponse, error)
}

type settingsService struct {
	store        repository.MappingStore
	provider     devicecalService.CalendarProvider
	imports      ImportService
	orchestrator *Orchestrator
}

func NewSettingsService(
	store repository.MappingStore,
	provider devicecalService.CalendarProvider,
	imports ImportService,
	orchestrator *Orchestrator,
) SettingsService {
	return &settingsService{
		store:        store,
		provider:     provider,
		imports:      imports,
		orchestrator: orchestrator,
	}
}

func (s *settingsService) GetSettings(ctx context.Context, userID uuid.UUID) (entity.SyncSettings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return entity.SyncSettings{}, errors.NewAppError(errors.ErrInternalServer, "failed to read sync settings", err)
	}
	return settings, nil
}

// UpdateSettings applies the request as a partial patch. Turning export on
// requires a writable target calendar, either in the same request or already
// configured.
func (s *settingsService) UpdateSettings(ctx context.Context, userID uuid.UUID, req *dto.SettingsRequest) (entity.SyncSettings, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return entity.SyncSettings{}, errors.NewAppError(errors.ErrInternalServer, "failed to read sync settings", err)
	}

	if req.ExportEnabled != nil {
		settings.ExportEnabled = *req.ExportEnabled
	}
	if req.ExportCalendarID != nil {
		settings.ExportCalendarID = *req.ExportCalendarID
	}
	if req.ImportEnabled != nil {
		settings.ImportEnabled = *req.ImportEnabled
	}
	if req.ImportCalendarIDs != nil {
		settings.ImportCalendarIDs = req.ImportCalendarIDs
	}
	if req.ImportInterval != nil {
		interval := entity.ImportInterval(*req.ImportInterval)
		if !interval.Valid() {
			return entity.SyncSettings{}, errors.NewAppError(errors.ErrInvalidInput, "unknown import interval", nil)
		}
		settings.ImportInterval = interval
	}

	if settings.ExportEnabled {
		if settings.ExportCalendarID == "" {
			return entity.SyncSettings{}, errors.NewAppError(errors.ErrPreconditionFailed, "export requires a target calendar", nil)
		}
		if err := s.checkWritable(ctx, userID, settings.ExportCalendarID); err != nil {
			return entity.SyncSettings{}, err
		}
	}

	if err := s.store.PutSettings(ctx, userID, settings); err != nil {
		return entity.SyncSettings{}, errors.NewAppError(errors.ErrInternalServer, "failed to save sync settings", err)
	}
	logger.Info("SettingsService:UpdateSettings:Saved", "user_id", userID,
		"export_enabled", settings.ExportEnabled, "import_enabled", settings.ImportEnabled,
		"import_interval", settings.ImportInterval)
	return settings, nil
}

func (s *settingsService) checkWritable(ctx context.Context, userID uuid.UUID, calendarID string) error {
	calendars, err := s.provider.ListCalendars(ctx, userID)
	if err != nil {
		return err
	}
	for _, cal := range calendars {
		if cal.ID == calendarID {
			if !cal.Writable {
				return errors.NewAppError(errors.ErrPreconditionFailed, "export calendar is read only", nil)
			}
			return nil
		}
	}
	return errors.NewAppError(errors.ErrNotFound, "export calendar not found", nil)
}

func (s *settingsService) Status(ctx context.Context, userID uuid.UUID) (*dto.SyncStatusResponse, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to read sync settings", err)
	}
	mappings, err := s.store.GetExportMappings(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to read export mappings", err)
	}
	imported, err := s.imports.ImportedCount(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &dto.SyncStatusResponse{
		ExportedCount:  len(mappings),
		ImportedCount:  imported,
		LastExportTime: settings.LastExportTime,
		LastImportTime: settings.LastImportTime,
		ImportRunning:  s.orchestrator.IsRunning(userID),
	}, nil
}
