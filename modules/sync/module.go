package sync

import (
	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/cache"
	"rehearsal-hub/core/database"
	"rehearsal-hub/core/middleware"
	"rehearsal-hub/core/storage"
	availabilityService "rehearsal-hub/modules/availability/service"
	devicecalService "rehearsal-hub/modules/devicecal/service"
	rehearsalRepo "rehearsal-hub/modules/rehearsal/repository"
	"rehearsal-hub/modules/sync/controller"
	"rehearsal-hub/modules/sync/repository"
	"rehearsal-hub/modules/sync/router"
	"rehearsal-hub/modules/sync/service"
)

// Module exposes the pieces the server needs after wiring: the orchestrator
// and store feed the background worker.
type Module struct {
	Orchestrator *service.Orchestrator
	Store        repository.MappingStore
}

// Init wires the sync module. objects may be nil when run-report archiving
// is disabled.
func Init(
	e *echo.Echo,
	db database.IDatabase,
	c cache.Cache,
	provider devicecalService.CalendarProvider,
	calendars devicecalService.DeviceCalendarService,
	backend availabilityService.Client,
	objects storage.ObjectStore,
) *Module {
	store := repository.NewPostgresStore(db)
	rehearsals := rehearsalRepo.NewRehearsalRepository(db)

	reports := service.NewReportArchiver(objects)
	exports := service.NewExportService(provider, store, reports)
	imports := service.NewImportService(provider, backend, store, reports)
	orchestrator := service.NewOrchestrator(imports, store, c)

	syncSvc := service.NewSyncService(exports, rehearsals, calendars, store)
	settingsSvc := service.NewSettingsService(store, provider, imports, orchestrator)

	ctrl := controller.NewSyncController(syncSvc, settingsSvc, imports, orchestrator)

	mw := middleware.NewMiddleware()
	router.NewSyncRouter(ctrl).Setup(e, mw)

	return &Module{Orchestrator: orchestrator, Store: store}
}
