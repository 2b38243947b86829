package router

import (
	"presence-sync/core/middleware"
	"presence-sync/modules/link/controller"

	"github.com/labstack/echo/v4"
)

type LinkRouter struct {
	controller *controller.LinkController
}

func NewLinkRouter(controller *controller.LinkController) *LinkRouter {
	return &LinkRouter{controller: controller}
}

func (r *LinkRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	linkRoutes := v1.Group("/private/link")
	linkRoutes.Use(mw.AuthMiddleware())

	linkRoutes.POST("", r.controller.LinkAccount)
	linkRoutes.GET("", r.controller.GetMyLink)
	linkRoutes.DELETE("", r.controller.Unlink)
	linkRoutes.PUT("/calendars", r.controller.SelectCalendars)
}
