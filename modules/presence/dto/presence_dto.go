package dto

import "time"

// AwayRecord is the presence entry stored in Redis under Afk:<userID>. The
// key self-expires at EndsAt, so an away state never outlives its window even
// if the service is down when it ends.
type AwayRecord struct {
	StartedAt  time.Time  `json:"startedAt"`
	EndsAt     *time.Time `json:"endsAt,omitempty"`
	Text       string     `json:"text,omitempty"`
	Attachment string     `json:"attachment,omitempty"`
	EventID    string     `json:"eventId,omitempty"`
}

type SetAwayRequest struct {
	Text            string `json:"text"`
	DurationMinutes int    `json:"duration_minutes"`
	Attachment      string `json:"attachment"`
}

type AttachmentResponse struct {
	URL string `json:"url"`
}
