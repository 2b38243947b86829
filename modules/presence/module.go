package presence

import (
	"presence-sync/core/cache"
	"presence-sync/core/middleware"
	"presence-sync/core/storage"
	"presence-sync/modules/presence/controller"
	"presence-sync/modules/presence/router"
	"presence-sync/modules/presence/service"

	"github.com/labstack/echo/v4"
)

// Init wires the presence module and returns its service, which the calendar
// sync module consumes as the presence store.
func Init(e *echo.Echo, c cache.Cache, uploader storage.Uploader, mw *middleware.Middleware) service.PresenceService {
	presenceService := service.NewPresenceService(c)
	presenceController := controller.NewPresenceController(presenceService, uploader)

	router.NewPresenceRouter(presenceController).Setup(e, mw)
	return presenceService
}
