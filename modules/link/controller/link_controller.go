package controller

import (
	"presence-sync/core/controller"
	"presence-sync/core/errors"
	"presence-sync/core/middleware"
	"presence-sync/modules/link/dto"
	"presence-sync/modules/link/service"

	"github.com/labstack/echo/v4"
)

type LinkController struct {
	controller.BaseController
	service service.LinkService
}

func NewLinkController(svc service.LinkService) *LinkController {
	return &LinkController{
		BaseController: controller.NewBaseController(),
		service:        svc,
	}
}

// LinkAccount godoc
// @Summary Link a calendar identity with a link code
// @Router /private/link [post]
func (ctl *LinkController) LinkAccount(c echo.Context) error {
	var req dto.LinkAccountRequest
	if err := c.Bind(&req); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	resp, appErr := ctl.service.LinkAccount(c.Request().Context(), middleware.UserID(c), &req)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, resp, "account linked")
}

// GetMyLink godoc
// @Summary Get the caller's linked account
// @Router /private/link [get]
func (ctl *LinkController) GetMyLink(c echo.Context) error {
	resp, appErr := ctl.service.GetMyLink(c.Request().Context(), middleware.UserID(c))
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, resp, "linked account")
}

// SelectCalendars godoc
// @Summary Choose which sub-calendars trigger away state
// @Router /private/link/calendars [put]
func (ctl *LinkController) SelectCalendars(c echo.Context) error {
	var req dto.SelectCalendarsRequest
	if err := c.Bind(&req); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	if appErr := ctl.service.SelectCalendars(c.Request().Context(), middleware.UserID(c), &req); appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, nil, "calendar selection saved")
}

// Unlink godoc
// @Summary Unlink the calendar identity and release synced state
// @Router /private/link [delete]
func (ctl *LinkController) Unlink(c echo.Context) error {
	if appErr := ctl.service.Unlink(c.Request().Context(), middleware.UserID(c)); appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, nil, "account unlinked")
}
