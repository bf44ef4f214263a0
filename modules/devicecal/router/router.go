package router

import (
	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/middleware"
	"rehearsal-hub/modules/devicecal/controller"
)

type DeviceCalendarRouter struct {
	controller *controller.DeviceCalendarController
}

func NewDeviceCalendarRouter(controller *controller.DeviceCalendarController) *DeviceCalendarRouter {
	return &DeviceCalendarRouter{controller: controller}
}

func (r *DeviceCalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	routes := v1.Group("/private/device-calendar")
	routes.GET("/calendars", r.controller.GetCalendars)
	routes.GET("/calendars/default", r.controller.GetDefaultCalendar)
	routes.GET("/permissions", r.controller.GetPermission)
	routes.POST("/permissions/request", r.controller.RequestPermission)
}
