package controller

import (
	"path"
	"strings"
	"time"

	"presence-sync/core/constants"
	"presence-sync/core/controller"
	"presence-sync/core/errors"
	"presence-sync/core/logger"
	"presence-sync/core/middleware"
	"presence-sync/core/storage"
	"presence-sync/core/utils"
	"presence-sync/modules/presence/dto"
	"presence-sync/modules/presence/service"

	"github.com/labstack/echo/v4"
)

type PresenceController struct {
	controller.BaseController
	service  service.PresenceService
	uploader storage.Uploader
}

func NewPresenceController(svc service.PresenceService, uploader storage.Uploader) *PresenceController {
	return &PresenceController{
		BaseController: controller.NewBaseController(),
		service:        svc,
		uploader:       uploader,
	}
}

// GetMyPresence godoc
// @Summary Get the caller's away record
// @Router /private/presence/me [get]
func (ctl *PresenceController) GetMyPresence(c echo.Context) error {
	rec, err := ctl.service.Get(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}
	if rec == nil {
		return ctl.SuccessResponse(c, nil, "not away")
	}
	return ctl.SuccessResponse(c, rec, "away")
}

// SetMyPresence godoc
// @Summary Set the caller away, optionally for a bounded duration
// @Router /private/presence/me [post]
func (ctl *PresenceController) SetMyPresence(c echo.Context) error {
	var req dto.SetAwayRequest
	if err := c.Bind(&req); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "invalid request body")
	}

	if len(req.Text) > constants.MaxAwayTextLength {
		return ctl.BadRequest(errors.ErrInvalidInput, "away message too long")
	}

	rec := &dto.AwayRecord{
		StartedAt:  time.Now(),
		Text:       req.Text,
		Attachment: req.Attachment,
	}

	if req.DurationMinutes > 0 {
		d := time.Duration(req.DurationMinutes) * time.Minute
		if d < constants.MinAwayDuration || d > constants.MaxAwayDuration {
			return ctl.BadRequest(errors.ErrInvalidInput, "duration out of range")
		}
		endsAt := rec.StartedAt.Add(d)
		rec.EndsAt = &endsAt
	}

	if _, err := ctl.service.Set(c.Request().Context(), middleware.UserID(c), rec); err != nil {
		return ctl.ErrorResponse(c, err)
	}
	return ctl.SuccessResponse(c, rec, "away set")
}

// ClearMyPresence godoc
// @Summary Clear the caller's away record
// @Router /private/presence/me [delete]
func (ctl *PresenceController) ClearMyPresence(c echo.Context) error {
	if err := ctl.service.Clear(c.Request().Context(), middleware.UserID(c)); err != nil {
		return ctl.ErrorResponse(c, err)
	}
	return ctl.SuccessResponse(c, nil, "away cleared")
}

// UploadAttachment godoc
// @Summary Upload an image shown with the away record
// @Router /private/presence/me/attachment [post]
func (ctl *PresenceController) UploadAttachment(c echo.Context) error {
	if ctl.uploader == nil {
		return ctl.ErrorResponse(c, errors.NewAppError(errors.ErrInternalServer, "attachment storage not configured", nil))
	}

	file, err := c.FormFile("file")
	if err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "missing file")
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(file.Filename), "."))
	valid := false
	for _, allowed := range constants.ValidAttachmentExtensions {
		if ext == allowed {
			valid = true
			break
		}
	}
	if !valid {
		return ctl.BadRequest(errors.ErrInvalidInput, "unsupported attachment type")
	}

	src, err := file.Open()
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}
	defer src.Close()

	userID := middleware.UserID(c)
	key := utils.GenerateAttachmentKey(userID, ext)
	contentType := file.Header.Get("Content-Type")

	url, err := ctl.uploader.Upload(c.Request().Context(), key, contentType, src)
	if err != nil {
		logger.Error("PresenceController:UploadAttachment:Error", "user_id", userID, "error", err)
		return ctl.ErrorResponse(c, errors.NewAppError(errors.ErrStoreWrite, "failed to store attachment", err))
	}

	return ctl.SuccessResponse(c, dto.AttachmentResponse{URL: url}, "attachment stored")
}
