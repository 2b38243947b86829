package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	apperrors "presence-sync/core/errors"
	"presence-sync/modules/link/dto"
	"presence-sync/modules/link/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLinkRepo struct {
	linked  map[string]*entity.LinkedAccount // by userID
	cals    map[string]*entity.CalendarAccount
	afkCals map[string]*entity.AfkCalendar // by calendarID

	createErr error
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{
		linked:  make(map[string]*entity.LinkedAccount),
		cals:    make(map[string]*entity.CalendarAccount),
		afkCals: make(map[string]*entity.AfkCalendar),
	}
}

func (f *fakeLinkRepo) CreateLinkedAccount(_ context.Context, acc *entity.LinkedAccount) (*entity.LinkedAccount, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	acc.CreatedAt = time.Now()
	f.linked[acc.UserID] = acc
	return acc, nil
}

func (f *fakeLinkRepo) GetLinkedAccounts(_ context.Context) ([]entity.LinkedAccount, error) {
	var out []entity.LinkedAccount
	for _, a := range f.linked {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeLinkRepo) GetLinkedAccountByUserID(_ context.Context, userID string) (*entity.LinkedAccount, error) {
	acc, ok := f.linked[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return acc, nil
}

func (f *fakeLinkRepo) DeleteLinkedAccount(_ context.Context, userID string) error {
	delete(f.linked, userID)
	return nil
}

func (f *fakeLinkRepo) GetCalendarAccountByLinkCode(_ context.Context, code string) (*entity.CalendarAccount, error) {
	acc, ok := f.cals[code]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return acc, nil
}

func (f *fakeLinkRepo) GetAfkCalendar(_ context.Context, calendarID string) (*entity.AfkCalendar, error) {
	cal, ok := f.afkCals[calendarID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cal, nil
}

func (f *fakeLinkRepo) UpsertAfkCalendar(_ context.Context, cal *entity.AfkCalendar) error {
	f.afkCals[cal.CalendarID] = cal
	return nil
}

type fakeCleaner struct {
	cleaned []string
	err     error
}

func (f *fakeCleaner) CleanupUser(_ context.Context, userID string) error {
	if f.err != nil {
		return f.err
	}
	f.cleaned = append(f.cleaned, userID)
	return nil
}

func TestLinkAccount(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.cals["code-1"] = &entity.CalendarAccount{
		UserID: "code-1", Provider: "google", ProviderAccountID: "g1", Email: "a@b.c",
	}
	svc := NewLinkService(repo, &fakeCleaner{})

	resp, appErr := svc.LinkAccount(context.Background(), "u1", &dto.LinkAccountRequest{Code: " code-1 "})
	require.Nil(t, appErr)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, "a@b.c", resp.Email)
	assert.Equal(t, "google", resp.Provider)

	// Second link for the same user is rejected.
	_, appErr = svc.LinkAccount(context.Background(), "u1", &dto.LinkAccountRequest{Code: "code-1"})
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrAlreadyExists, appErr.Code)
}

func TestLinkAccountInvalidCode(t *testing.T) {
	svc := NewLinkService(newFakeLinkRepo(), &fakeCleaner{})

	_, appErr := svc.LinkAccount(context.Background(), "u1", &dto.LinkAccountRequest{Code: ""})
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrInvalidInput, appErr.Code)

	_, appErr = svc.LinkAccount(context.Background(), "u1", &dto.LinkAccountRequest{Code: "nope"})
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestSelectCalendars(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.linked["u1"] = &entity.LinkedAccount{UserID: "u1", LinkCode: "code-1"}
	repo.cals["code-1"] = &entity.CalendarAccount{UserID: "code-1", ProviderAccountID: "g1"}
	svc := NewLinkService(repo, &fakeCleaner{})

	appErr := svc.SelectCalendars(context.Background(), "u1", &dto.SelectCalendarsRequest{
		Calendars: []string{"primary", " work@group.calendar.google.com ", ""},
	})
	require.Nil(t, appErr)

	cal := repo.afkCals["g1"]
	require.NotNil(t, cal)
	assert.Equal(t, "primary,work@group.calendar.google.com", cal.Calendars)
}

func TestUnlinkCascades(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.linked["u1"] = &entity.LinkedAccount{UserID: "u1", LinkCode: "code-1"}
	cleaner := &fakeCleaner{}
	svc := NewLinkService(repo, cleaner)

	require.Nil(t, svc.Unlink(context.Background(), "u1"))
	assert.Equal(t, []string{"u1"}, cleaner.cleaned)
	_, ok := repo.linked["u1"]
	assert.False(t, ok)
}

func TestUnlinkKeepsAccountWhenCleanupFails(t *testing.T) {
	repo := newFakeLinkRepo()
	repo.linked["u1"] = &entity.LinkedAccount{UserID: "u1", LinkCode: "code-1"}
	cleaner := &fakeCleaner{err: assert.AnError}
	svc := NewLinkService(repo, cleaner)

	appErr := svc.Unlink(context.Background(), "u1")
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrDeleteFailed, appErr.Code)
	_, ok := repo.linked["u1"]
	assert.True(t, ok)
}
