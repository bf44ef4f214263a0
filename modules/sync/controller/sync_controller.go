package controller

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/controller"
	"rehearsal-hub/core/errors"
	devicecalController "rehearsal-hub/modules/devicecal/controller"
	"rehearsal-hub/modules/sync/dto"
	"rehearsal-hub/modules/sync/service"
)

type SyncController struct {
	controller.BaseController
	sync         service.SyncService
	settings     service.SettingsService
	imports      service.ImportService
	orchestrator *service.Orchestrator
}

func NewSyncController(
	sync service.SyncService,
	settings service.SettingsService,
	imports service.ImportService,
	orchestrator *service.Orchestrator,
) *SyncController {
	return &SyncController{
		BaseController: controller.NewBaseController(),
		sync:           sync,
		settings:       settings,
		imports:        imports,
		orchestrator:   orchestrator,
	}
}

// ExportRehearsal pushes one rehearsal to the user's calendar
// POST /api/v1/private/sync/rehearsals/:id
func (c *SyncController) ExportRehearsal(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}
	rehearsalID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rehearsal id")
	}

	if err := c.sync.ExportRehearsal(ctx.Request().Context(), userID, rehearsalID); err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// UnsyncRehearsal removes one rehearsal from the calendar and forgets its mapping
// DELETE /api/v1/private/sync/rehearsals/:id
func (c *SyncController) UnsyncRehearsal(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}
	rehearsalID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rehearsal id")
	}

	if err := c.sync.UnsyncRehearsal(ctx.Request().Context(), userID, rehearsalID); err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ExportAll pushes a set of rehearsals, or all upcoming ones, in batches
// POST /api/v1/private/sync/rehearsals
func (c *SyncController) ExportAll(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	var req dto.SyncAllRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	result, err := c.sync.ExportAll(ctx.Request().Context(), userID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// RemoveAllExported deletes every exported event and clears the mappings
// DELETE /api/v1/private/sync/rehearsals
func (c *SyncController) RemoveAllExported(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	result, err := c.sync.RemoveAllExported(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// RehearsalStatus reports whether one rehearsal currently has a live event
// GET /api/v1/private/sync/rehearsals/:id/status
func (c *SyncController) RehearsalStatus(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}
	rehearsalID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rehearsal id")
	}

	status, err := c.sync.RehearsalStatus(ctx.Request().Context(), userID, rehearsalID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, status)
}

// TriggerImport starts a reconciliation run
// POST /api/v1/private/sync/import
func (c *SyncController) TriggerImport(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	var req dto.TriggerImportRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}
	if ctx.QueryParam("force") == "true" {
		req.Force = true
	}

	var result *dto.ImportResult
	switch req.Source {
	case "foreground":
		result, err = c.orchestrator.HandleForeground(ctx.Request().Context(), userID)
	default:
		result, err = c.orchestrator.TriggerManual(ctx.Request().Context(), userID, req.Force)
	}
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	if result == nil {
		// Absorbed by the throttle or not due yet.
		return ctx.NoContent(http.StatusAccepted)
	}
	return ctx.JSON(http.StatusOK, result)
}

// RemoveAllImported deletes every imported slot, then forgets the tracking
// DELETE /api/v1/private/sync/import
func (c *SyncController) RemoveAllImported(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	if err := c.imports.RemoveAll(ctx.Request().Context(), userID); err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetSettings returns the user's sync configuration
// GET /api/v1/private/sync/settings
func (c *SyncController) GetSettings(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	settings, err := c.settings.GetSettings(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, settings)
}

// UpdateSettings applies a partial settings patch
// PUT /api/v1/private/sync/settings
func (c *SyncController) UpdateSettings(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	var req dto.SettingsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidRequestData, "Invalid request body")
	}

	settings, err := c.settings.UpdateSettings(ctx.Request().Context(), userID, &req)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, settings)
}

// GetStatus returns the aggregate sync view for the settings screen
// GET /api/v1/private/sync/status
func (c *SyncController) GetStatus(ctx echo.Context) error {
	userID, err := devicecalController.UserIDFromRequest(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "Invalid user")
	}

	status, err := c.settings.Status(ctx.Request().Context(), userID)
	if err != nil {
		return c.ErrorResponse(ctx, err)
	}
	return ctx.JSON(http.StatusOK, status)
}
