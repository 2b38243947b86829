package controller

import (
	"presence-sync/core/controller"
	"presence-sync/core/errors"
	"presence-sync/core/logger"
	"presence-sync/modules/calendarsync/service"

	"github.com/labstack/echo/v4"
)

type SyncController struct {
	controller.BaseController
	service service.SyncService
}

func NewSyncController(svc service.SyncService) *SyncController {
	return &SyncController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

// TriggerSync godoc
// @Summary Run one reconciliation pass outside the cron cadence
// @Router /ops/sync [post]
func (ctl *SyncController) TriggerSync(c echo.Context) error {
	logger.Info("SyncController:TriggerSync:Requested")

	if err := ctl.service.Reconcile(c.Request().Context()); err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			return ctl.ErrorResponse(c, appErr)
		}
		return ctl.ErrorResponse(c, errors.NewAppError(errors.ErrInternalServer, "reconciliation failed", err))
	}
	return ctl.SuccessResponse(c, nil, "reconciliation complete")
}
