package router

import (
	"presence-sync/core/middleware"
	"presence-sync/modules/presence/controller"

	"github.com/labstack/echo/v4"
)

type PresenceRouter struct {
	controller *controller.PresenceController
}

func NewPresenceRouter(controller *controller.PresenceController) *PresenceRouter {
	return &PresenceRouter{controller: controller}
}

func (r *PresenceRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	presenceRoutes := v1.Group("/private/presence")
	presenceRoutes.Use(mw.AuthMiddleware())

	presenceRoutes.GET("/me", r.controller.GetMyPresence)
	presenceRoutes.POST("/me", r.controller.SetMyPresence)
	presenceRoutes.DELETE("/me", r.controller.ClearMyPresence)
	presenceRoutes.POST("/me/attachment", r.controller.UploadAttachment)
}
