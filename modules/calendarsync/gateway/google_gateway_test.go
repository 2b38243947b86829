package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"presence-sync/core/config"
	apperrors "presence-sync/core/errors"
	linkentity "presence-sync/modules/link/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLinkRepo struct {
	afkCal *linkentity.AfkCalendar
	afkErr error
}

func (s *stubLinkRepo) CreateLinkedAccount(_ context.Context, _ *linkentity.LinkedAccount) (*linkentity.LinkedAccount, error) {
	return nil, sql.ErrNoRows
}

func (s *stubLinkRepo) GetLinkedAccounts(_ context.Context) ([]linkentity.LinkedAccount, error) {
	return nil, nil
}

func (s *stubLinkRepo) GetLinkedAccountByUserID(_ context.Context, _ string) (*linkentity.LinkedAccount, error) {
	return nil, sql.ErrNoRows
}

func (s *stubLinkRepo) DeleteLinkedAccount(_ context.Context, _ string) error {
	return nil
}

func (s *stubLinkRepo) GetCalendarAccountByLinkCode(_ context.Context, _ string) (*linkentity.CalendarAccount, error) {
	return nil, sql.ErrNoRows
}

func (s *stubLinkRepo) GetAfkCalendar(_ context.Context, _ string) (*linkentity.AfkCalendar, error) {
	if s.afkErr != nil {
		return nil, s.afkErr
	}
	return s.afkCal, nil
}

func (s *stubLinkRepo) UpsertAfkCalendar(_ context.Context, _ *linkentity.AfkCalendar) error {
	return nil
}

func fetchWindow() (time.Time, time.Time) {
	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

func TestFetchEventsNoSelectionIsEmpty(t *testing.T) {
	gw := NewGoogleGateway(&stubLinkRepo{afkErr: sql.ErrNoRows}, config.GoogleAPIConfig{})
	acc := &linkentity.CalendarAccount{UserID: "u1", ProviderAccountID: "g1"}

	start, end := fetchWindow()
	events, err := gw.FetchEvents(context.Background(), acc, start, end)
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestFetchEventsEmptySelectionIsEmpty(t *testing.T) {
	gw := NewGoogleGateway(&stubLinkRepo{afkCal: &linkentity.AfkCalendar{CalendarID: "g1", Calendars: " , "}}, config.GoogleAPIConfig{})
	acc := &linkentity.CalendarAccount{UserID: "u1", ProviderAccountID: "g1"}

	start, end := fetchWindow()
	events, err := gw.FetchEvents(context.Background(), acc, start, end)
	require.NoError(t, err)
	assert.Nil(t, events)
}

func TestFetchEventsSelectionReadFailureIsAnError(t *testing.T) {
	// A failed selection read must surface as a fetch error; an empty result
	// would make the engine treat every tracked event as removed.
	gw := NewGoogleGateway(&stubLinkRepo{afkErr: fmt.Errorf("pq: connection refused")}, config.GoogleAPIConfig{})
	acc := &linkentity.CalendarAccount{UserID: "u1", ProviderAccountID: "g1"}

	start, end := fetchWindow()
	events, err := gw.FetchEvents(context.Background(), acc, start, end)
	require.Error(t, err)
	assert.Nil(t, events)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrCalendarFetch, appErr.Code)
}
