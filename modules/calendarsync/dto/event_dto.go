package dto

// EventTime carries either a timed instant (DateTime, RFC 3339) or an
// all-day date (Date, YYYY-MM-DD) with an optional IANA timezone.
type EventTime struct {
	DateTime string `json:"dateTime"`
	Date     string `json:"date"`
	TimeZone string `json:"timeZone"`
}

// CalendarEvent is the gateway's projection of one upstream event. It is
// never persisted; the reconciliation engine derives ledger fields from it
// fresh on every tick.
type CalendarEvent struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendarId"`
	Status     string    `json:"status"`
	EventType  string    `json:"eventType"`
	Start      EventTime `json:"start"`
	End        EventTime `json:"end"`
	Recurrence []string  `json:"recurrence"`
	Updated    string    `json:"updated"`
}
