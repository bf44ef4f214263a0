package router

import (
	"github.com/labstack/echo/v4"

	"rehearsal-hub/core/middleware"
	"rehearsal-hub/modules/sync/controller"
)

type SyncRouter struct {
	controller *controller.SyncController
}

func NewSyncRouter(controller *controller.SyncController) *SyncRouter {
	return &SyncRouter{controller: controller}
}

func (r *SyncRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	routes := v1.Group("/private/sync")
	routes.POST("/rehearsals", r.controller.ExportAll)
	routes.DELETE("/rehearsals", r.controller.RemoveAllExported)
	routes.POST("/rehearsals/:id", r.controller.ExportRehearsal)
	routes.DELETE("/rehearsals/:id", r.controller.UnsyncRehearsal)
	routes.GET("/rehearsals/:id/status", r.controller.RehearsalStatus)

	routes.POST("/import", r.controller.TriggerImport)
	routes.DELETE("/import", r.controller.RemoveAllImported)

	routes.GET("/settings", r.controller.GetSettings)
	routes.PUT("/settings", r.controller.UpdateSettings)
	routes.GET("/status", r.controller.GetStatus)
}
