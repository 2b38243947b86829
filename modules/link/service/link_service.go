package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"presence-sync/core/constants"
	"presence-sync/core/errors"
	"presence-sync/core/logger"
	"presence-sync/modules/link/dto"
	"presence-sync/modules/link/entity"
	"presence-sync/modules/link/repository"
)

// SyncCleaner releases everything the reconciliation engine holds for a user:
// scheduled tasks, ledger rows, and any engine-owned away record.
type SyncCleaner interface {
	CleanupUser(ctx context.Context, userID string) error
}

type LinkService interface {
	LinkAccount(ctx context.Context, userID string, req *dto.LinkAccountRequest) (*dto.LinkedAccountResponse, *errors.AppError)
	GetMyLink(ctx context.Context, userID string) (*dto.LinkedAccountResponse, *errors.AppError)
	SelectCalendars(ctx context.Context, userID string, req *dto.SelectCalendarsRequest) *errors.AppError
	Unlink(ctx context.Context, userID string) *errors.AppError
}

type linkService struct {
	repo    repository.LinkRepository
	cleaner SyncCleaner
}

func NewLinkService(repo repository.LinkRepository, cleaner SyncCleaner) LinkService {
	return &linkService{repo: repo, cleaner: cleaner}
}

func (s *linkService) LinkAccount(ctx context.Context, userID string, req *dto.LinkAccountRequest) (*dto.LinkedAccountResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "link code is required", nil)
	}

	if existing, err := s.repo.GetLinkedAccountByUserID(ctx, userID); err == nil && existing != nil {
		return nil, errors.NewAppError(errors.ErrAlreadyExists, "account already linked", nil)
	}

	// The code must resolve to a calendar identity created by web onboarding.
	calAcc, err := s.repo.GetCalendarAccountByLinkCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewAppError(errors.ErrNotFound, "invalid link code", err)
		}
		return nil, errors.NewAppError(errors.ErrGetFailed, "failed to resolve link code", err)
	}

	acc := &entity.LinkedAccount{UserID: userID, LinkCode: code}
	if _, err := s.repo.CreateLinkedAccount(ctx, acc); err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "failed to link account", err)
	}

	logger.Info("LinkService:LinkAccount:Success", "user_id", userID, "provider", calAcc.Provider)
	return &dto.LinkedAccountResponse{
		UserID:   userID,
		Email:    calAcc.Email,
		Provider: calAcc.Provider,
		LinkedAt: acc.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (s *linkService) GetMyLink(ctx context.Context, userID string) (*dto.LinkedAccountResponse, *errors.AppError) {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	acc, err := s.repo.GetLinkedAccountByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewAppError(errors.ErrNotFound, "no linked account", err)
		}
		return nil, errors.NewAppError(errors.ErrGetFailed, "failed to load linked account", err)
	}

	resp := &dto.LinkedAccountResponse{
		UserID:   acc.UserID,
		LinkedAt: acc.CreatedAt.Format(time.RFC3339),
	}

	calAcc, err := s.repo.GetCalendarAccountByLinkCode(ctx, acc.LinkCode)
	if err == nil {
		resp.Email = calAcc.Email
		resp.Provider = calAcc.Provider
		if cal, err := s.repo.GetAfkCalendar(ctx, calAcc.ProviderAccountID); err == nil && cal.Calendars != "" {
			resp.Calendars = strings.Split(cal.Calendars, ",")
		}
	}
	return resp, nil
}

func (s *linkService) SelectCalendars(ctx context.Context, userID string, req *dto.SelectCalendarsRequest) *errors.AppError {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	acc, err := s.repo.GetLinkedAccountByUserID(ctx, userID)
	if err != nil {
		return errors.NewAppError(errors.ErrNotFound, "no linked account", err)
	}

	calAcc, err := s.repo.GetCalendarAccountByLinkCode(ctx, acc.LinkCode)
	if err != nil {
		return errors.NewAppError(errors.ErrNotFound, "calendar identity not found", err)
	}

	selected := make([]string, 0, len(req.Calendars))
	for _, id := range req.Calendars {
		if id = strings.TrimSpace(id); id != "" {
			selected = append(selected, id)
		}
	}

	cal := &entity.AfkCalendar{
		UserID:     userID,
		CalendarID: calAcc.ProviderAccountID,
		Calendars:  strings.Join(selected, ","),
	}
	if err := s.repo.UpsertAfkCalendar(ctx, cal); err != nil {
		return errors.NewAppError(errors.ErrUpdateFailed, "failed to save calendar selection", err)
	}

	logger.Info("LinkService:SelectCalendars:Success", "user_id", userID, "count", len(selected))
	return nil
}

// Unlink removes the pairing and cascades: every scheduled transition for the
// user is cancelled, the ledger rows deleted, and the engine-owned away
// record cleared before the account row goes away.
func (s *linkService) Unlink(ctx context.Context, userID string) *errors.AppError {
	ctx, cancel := context.WithTimeout(ctx, constants.DefaultRequestTimeout)
	defer cancel()

	if _, err := s.repo.GetLinkedAccountByUserID(ctx, userID); err != nil {
		return errors.NewAppError(errors.ErrNotFound, "no linked account", err)
	}

	if err := s.cleaner.CleanupUser(ctx, userID); err != nil {
		logger.Error("LinkService:Unlink:CleanupError", "user_id", userID, "error", err)
		return errors.NewAppError(errors.ErrDeleteFailed, "failed to release synced events", err)
	}

	if err := s.repo.DeleteLinkedAccount(ctx, userID); err != nil {
		return errors.NewAppError(errors.ErrDeleteFailed, "failed to unlink account", err)
	}

	logger.Info("LinkService:Unlink:Success", "user_id", userID)
	return nil
}
