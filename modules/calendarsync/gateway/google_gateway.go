package gateway

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"presence-sync/core/config"
	"presence-sync/core/constants"
	"presence-sync/core/errors"
	"presence-sync/core/logger"
	"presence-sync/modules/calendarsync/dto"
	linkentity "presence-sync/modules/link/entity"
	linkrepo "presence-sync/modules/link/repository"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"

// Gateway fetches events for one linked calendar identity. Implementations
// are treated as unreliable: every call carries a timeout and failures are
// isolated per account by the caller.
type Gateway interface {
	FetchEvents(ctx context.Context, acc *linkentity.CalendarAccount, windowStart, windowEnd time.Time) ([]dto.CalendarEvent, error)
	CalendarTimeZone(ctx context.Context, acc *linkentity.CalendarAccount, calendarID string) (string, error)
}

type googleGateway struct {
	linkRepo linkrepo.LinkRepository
	oauthCfg *oauth2.Config

	// default timezones rarely change; cached per calendar id.
	tzCache sync.Map
}

func NewGoogleGateway(linkRepo linkrepo.LinkRepository, cfg config.GoogleAPIConfig) Gateway {
	return &googleGateway{
		linkRepo: linkRepo,
		oauthCfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
		},
	}
}

// httpClient returns an HTTP client that refreshes the stored access token
// automatically when it is close to expiry.
func (g *googleGateway) httpClient(ctx context.Context, acc *linkentity.CalendarAccount) *http.Client {
	token := &oauth2.Token{
		AccessToken:  acc.AccessToken,
		RefreshToken: acc.RefreshToken,
	}
	if acc.TokenExpiresAt != nil {
		token.Expiry = *acc.TokenExpiresAt
	}

	client := oauth2.NewClient(ctx, g.oauthCfg.TokenSource(ctx, token))
	client.Timeout = constants.DefaultTimeout
	return client
}

// FetchEvents lists single-instance events across the account's selected
// sub-calendars inside the given window. Recurring series are expanded by the
// API (singleEvents); only confirmed, default-type events survive the filter.
func (g *googleGateway) FetchEvents(ctx context.Context, acc *linkentity.CalendarAccount, windowStart, windowEnd time.Time) ([]dto.CalendarEvent, error) {
	selection, err := g.linkRepo.GetAfkCalendar(ctx, acc.ProviderAccountID)
	if err != nil {
		if err == sql.ErrNoRows {
			// No selection row means the user never picked calendars; nothing to sync.
			return nil, nil
		}
		// A selection read failure must not look like an empty calendar: an
		// empty result makes the engine release every tracked event.
		return nil, errors.NewAppError(errors.ErrCalendarFetch, "failed to read calendar selection", err)
	}

	var selected []string
	for _, id := range strings.Split(selection.Calendars, ",") {
		if id = strings.TrimSpace(id); id != "" {
			selected = append(selected, id)
		}
	}
	if len(selected) == 0 {
		return nil, nil
	}

	client := g.httpClient(ctx, acc)

	var events []dto.CalendarEvent
	for _, calendarID := range selected {
		items, err := g.listEvents(ctx, client, calendarID, windowStart, windowEnd)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrCalendarFetch,
				fmt.Sprintf("failed to fetch calendar %s", calendarID), err)
		}
		events = append(events, items...)
	}

	filtered := events[:0]
	for _, ev := range events {
		if ev.Status != "confirmed" {
			continue
		}
		if ev.EventType != "" && ev.EventType != "default" {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered, nil
}

func (g *googleGateway) listEvents(ctx context.Context, client *http.Client, calendarID string, windowStart, windowEnd time.Time) ([]dto.CalendarEvent, error) {
	params := url.Values{}
	params.Set("timeMin", windowStart.Format(time.RFC3339))
	params.Set("timeMax", windowEnd.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", "250")

	apiURL := fmt.Sprintf("%s/calendars/%s/events?%s",
		googleCalendarAPIBase, url.PathEscape(calendarID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logger.Warn("GoogleGateway:ListEvents:APIError",
			"calendar_id", calendarID, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("calendar API status %d", resp.StatusCode)
	}

	var result struct {
		Items []dto.CalendarEvent `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	for i := range result.Items {
		result.Items[i].CalendarID = calendarID
	}
	return result.Items, nil
}

// CalendarTimeZone returns the calendar's default IANA timezone, used to
// anchor all-day events that carry no timezone of their own.
func (g *googleGateway) CalendarTimeZone(ctx context.Context, acc *linkentity.CalendarAccount, calendarID string) (string, error) {
	if tz, ok := g.tzCache.Load(calendarID); ok {
		return tz.(string), nil
	}

	apiURL := fmt.Sprintf("%s/calendars/%s", googleCalendarAPIBase, url.PathEscape(calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := g.httpClient(ctx, acc).Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("calendar API status %d", resp.StatusCode)
	}

	var result struct {
		TimeZone string `json:"timeZone"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if result.TimeZone != "" {
		g.tzCache.Store(calendarID, result.TimeZone)
	}
	return result.TimeZone, nil
}
