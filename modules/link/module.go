package link

import (
	"presence-sync/core/database"
	"presence-sync/core/middleware"
	"presence-sync/modules/link/controller"
	"presence-sync/modules/link/repository"
	"presence-sync/modules/link/router"
	"presence-sync/modules/link/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cleaner service.SyncCleaner, mw *middleware.Middleware) {
	repo := repository.NewLinkRepository(db)
	linkService := service.NewLinkService(repo, cleaner)
	linkController := controller.NewLinkController(linkService)

	router.NewLinkRouter(linkController).Setup(e, mw)
}
