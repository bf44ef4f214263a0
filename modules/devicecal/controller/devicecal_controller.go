package controller

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/controller"
	"rehearsal-hub/core/errors"
	"rehearsal-hub/modules/devicecal/dto"
	"rehearsal-hub/modules/devicecal/service"
)

type DeviceCalendarController struct {
	controller.BaseController
	service service.DeviceCalendarService
}

func NewDeviceCalendarController(svc service.DeviceCalendarService) *DeviceCalendarController {
	return &DeviceCalendarController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

// GetCalendars returns the user's writable calendars
// GET /api/v1/private/device-calendar/calendars
func (c *DeviceCalendarController) GetCalendars(ctx echo.Context) error {
	userID, err := UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	calendars, err := c.service.ListWritableCalendars(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}

	return ctx.JSON(http.StatusOK, dto.CalendarListResponse{Calendars: calendars})
}

// GetDefaultCalendar returns the calendar exports go to when none is chosen
// GET /api/v1/private/device-calendar/calendars/default
func (c *DeviceCalendarController) GetDefaultCalendar(ctx echo.Context) error {
	userID, err := UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	calendar, err := c.service.DefaultCalendar(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	if calendar == nil {
		return c.NotFound(errors.ErrNotFound, "No writable calendar available")
	}

	return ctx.JSON(http.StatusOK, calendar)
}

// RequestPermission re-validates the calendar grant
// POST /api/v1/private/device-calendar/permissions/request
func (c *DeviceCalendarController) RequestPermission(ctx echo.Context) error {
	userID, err := UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	granted := c.service.RequestPermission(ctx.Request().Context(), userID)
	return ctx.JSON(http.StatusOK, dto.PermissionResponse{Granted: granted})
}

// GetPermission reports the current grant state
// GET /api/v1/private/device-calendar/permissions
func (c *DeviceCalendarController) GetPermission(ctx echo.Context) error {
	userID, err := UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	granted := c.service.HasPermission(ctx.Request().Context(), userID)
	return ctx.JSON(http.StatusOK, dto.PermissionResponse{Granted: granted})
}

// UserIDFromRequest reads the identity the API gateway injected. Session
// handling itself lives outside this service.
func UserIDFromRequest(ctx echo.Context) (uuid.UUID, error) {
	return uuid.Parse(ctx.Request().Header.Get("X-User-ID"))
}
