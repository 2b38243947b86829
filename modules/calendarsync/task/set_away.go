package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"presence-sync/core/logger"
	presencedto "presence-sync/modules/presence/dto"
	presencesvc "presence-sync/modules/presence/service"

	"github.com/hibiken/asynq"
)

// SetAwayPayload is the message the reconciliation engine enqueues for a
// future event. The task never touches the ledger; the engine converges the
// ledger on its next tick.
type SetAwayPayload struct {
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

// BuildAwayText renders the auto-away message for an event window. Windows
// longer than a day include the date so the range stays readable.
func BuildAwayText(start, end time.Time) string {
	layout := "15:04"
	if end.Sub(start) > 24*time.Hour {
		layout = "Jan 2 15:04"
	}
	return fmt.Sprintf("📅 %s - %s", start.Format(layout), end.Format(layout))
}

// NewSetAwayHandler returns the asynq handler applying a scheduled presence
// transition. Delivery is at-least-once, so the write is idempotent: setting
// the same away record twice is a no-op in effect. Malformed payloads are
// dropped rather than retried.
func NewSetAwayHandler(presence presencesvc.PresenceService) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SetAwayPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			logger.Warn("SetAwayTask:InvalidPayload", "error", err)
			return nil
		}
		if payload.UserID == "" || payload.StartTime.IsZero() || payload.EndTime.IsZero() {
			logger.Warn("SetAwayTask:IncompletePayload", "user_id", payload.UserID, "event_id", payload.EventID)
			return nil
		}

		endsAt := payload.EndTime
		rec := &presencedto.AwayRecord{
			StartedAt: payload.StartTime,
			EndsAt:    &endsAt,
			Text:      BuildAwayText(payload.StartTime, payload.EndTime),
			EventID:   payload.EventID,
		}

		if _, err := presence.Set(ctx, payload.UserID, rec); err != nil {
			logger.Error("SetAwayTask:SetError", "user_id", payload.UserID, "event_id", payload.EventID, "error", err)
			return err
		}

		logger.Info("SetAwayTask:Applied", "user_id", payload.UserID, "event_id", payload.EventID, "ends_at", endsAt)
		return nil
	}
}
