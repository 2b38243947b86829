package service

import (
	"context"
	"time"

	"presence-sync/core/errors"
	"presence-sync/modules/calendarsync/dto"
	linkentity "presence-sync/modules/link/entity"
)

const allDayLayout = "2006-01-02"

// resolveWindow turns an event's raw start/end into concrete instants. Timed
// events carry RFC 3339 dateTime values; all-day events carry bare dates that
// only make sense in a timezone, taken from the event or, failing that, the
// calendar's default.
func (s *syncService) resolveWindow(ctx context.Context, acc *linkentity.CalendarAccount, ev *dto.CalendarEvent) (time.Time, time.Time, error) {
	start, err := s.resolveEventTime(ctx, acc, ev.CalendarID, ev.Start, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := s.resolveEventTime(ctx, acc, ev.CalendarID, ev.End, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *syncService) resolveEventTime(ctx context.Context, acc *linkentity.CalendarAccount, calendarID string, et dto.EventTime, isEnd bool) (time.Time, error) {
	if et.DateTime != "" {
		t, err := time.Parse(time.RFC3339, et.DateTime)
		if err != nil {
			return time.Time{}, errors.NewAppError(errors.ErrMalformedEvent, "unparseable event time", err)
		}
		return t, nil
	}

	if et.Date == "" {
		return time.Time{}, errors.NewAppError(errors.ErrMalformedEvent, "event time missing both dateTime and date", nil)
	}

	tz := et.TimeZone
	if tz == "" {
		ctz, err := s.gateway.CalendarTimeZone(ctx, acc, calendarID)
		if err != nil {
			return time.Time{}, errors.NewAppError(errors.ErrMalformedEvent, "no timezone for all-day event", err)
		}
		tz = ctz
	}
	if tz == "" {
		return time.Time{}, errors.NewAppError(errors.ErrMalformedEvent, "no timezone for all-day event", nil)
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.ErrMalformedEvent, "unknown event timezone", err)
	}

	d, err := time.ParseInLocation(allDayLayout, et.Date, loc)
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.ErrMalformedEvent, "unparseable all-day date", err)
	}

	if isEnd {
		// The all-day end date is exclusive; the window closes at the end of
		// the previous day.
		return time.Date(d.Year(), d.Month(), d.Day()-1, 23, 59, 59, int(time.Second-time.Nanosecond), loc), nil
	}
	return d, nil
}

// parseUpdated tolerates a missing or malformed updated stamp; revision
// comparison then falls back to the start/end times alone.
func parseUpdated(updated string) *time.Time {
	if updated == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, updated)
	if err != nil {
		return nil
	}
	return &t
}
