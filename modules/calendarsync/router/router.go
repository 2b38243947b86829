package router

import (
	"presence-sync/core/middleware"
	"presence-sync/modules/calendarsync/controller"

	"github.com/labstack/echo/v4"
)

type SyncRouter struct {
	controller *controller.SyncController
}

func NewSyncRouter(controller *controller.SyncController) *SyncRouter {
	return &SyncRouter{controller: controller}
}

func (r *SyncRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	opsRoutes := v1.Group("/ops")
	opsRoutes.Use(mw.ServiceKeyMiddleware())

	opsRoutes.POST("/sync", r.controller.TriggerSync)
}
