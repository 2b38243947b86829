package calendarsync

import (
	"presence-sync/core/config"
	"presence-sync/core/constants"
	"presence-sync/core/database"
	"presence-sync/core/middleware"
	"presence-sync/core/scheduler"
	"presence-sync/modules/calendarsync/controller"
	"presence-sync/modules/calendarsync/gateway"
	"presence-sync/modules/calendarsync/repository"
	"presence-sync/modules/calendarsync/router"
	"presence-sync/modules/calendarsync/service"
	"presence-sync/modules/calendarsync/task"
	linkrepo "presence-sync/modules/link/repository"
	presencesvc "presence-sync/modules/presence/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init wires the calendar sync module: the reconciliation service, the ops
// trigger endpoint, and the transition task handler on the worker mux. The
// returned service is what the cron tick and the link module's unlink cascade
// call into.
func Init(
	e *echo.Echo,
	db database.IDatabase,
	sched scheduler.Scheduler,
	mux *asynq.ServeMux,
	presence presencesvc.PresenceService,
	cfg *config.Config,
	mw *middleware.Middleware,
) service.SyncService {
	linkRepo := linkrepo.NewLinkRepository(db)
	ledger := repository.NewSyncedEventRepository(db)
	gw := gateway.NewGoogleGateway(linkRepo, cfg.GoogleAPI)

	syncService := service.NewSyncService(linkRepo, ledger, gw, sched, presence, cfg.Sync.Workers)
	syncController := controller.NewSyncController(syncService)

	router.NewSyncRouter(syncController).Setup(e, mw)
	mux.HandleFunc(constants.TaskSetAway, task.NewSetAwayHandler(presence))

	return syncService
}
