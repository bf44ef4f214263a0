package devicecal

import (
	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/config"
	"rehearsal-hub/core/crypto"
	"rehearsal-hub/core/database"
	"rehearsal-hub/core/middleware"
	"rehearsal-hub/modules/devicecal/controller"
	"rehearsal-hub/modules/devicecal/repository"
	"rehearsal-hub/modules/devicecal/router"
	"rehearsal-hub/modules/devicecal/service"
)

// Init wires the module and returns the provider and service for other
// modules (the sync pipelines consume both).
func Init(e *echo.Echo, db database.IDatabase, encryptor *crypto.Encryptor, cfg *config.Config) (service.CalendarProvider, service.DeviceCalendarService) {
	repo := repository.NewConnectionRepository(db)
	provider := service.NewGoogleProvider(repo, encryptor, cfg.Google)
	svc := service.NewDeviceCalendarService(provider)
	ctrl := controller.NewDeviceCalendarController(svc)

	mw := middleware.NewMiddleware()
	router.NewDeviceCalendarRouter(ctrl).Setup(e, mw)

	return provider, svc
}
