package entity

import (
	"time"

	"presence-sync/core/entity"
)

// SyncedEvent is one ledger row linking an upstream calendar event to its
// scheduled presence transition. Invariants the engine maintains:
//   - one row per (user_id, event_id);
//   - TaskID is set iff a not-yet-fired transition task exists for a future
//     start;
//   - AfkActive is true iff the engine believes the presence store holds an
//     away record for this event;
//   - a row with no task and AfkActive false is deleted, never kept.
type SyncedEvent struct {
	entity.BaseEntity
	UserID       string     `db:"user_id" json:"user_id"`
	EventID      string     `db:"event_id" json:"event_id"`
	TaskID       *string    `db:"task_id" json:"task_id"`
	StartTime    time.Time  `db:"start_time" json:"start_time"`
	EndTime      time.Time  `db:"end_time" json:"end_time"`
	LastModified *time.Time `db:"last_modified" json:"last_modified"`
	AfkActive    bool       `db:"afk_active" json:"afk_active"`
}

func (SyncedEvent) TableName() string {
	return "synced_events"
}

func (e *SyncedEvent) TaskHandle() string {
	if e.TaskID == nil {
		return ""
	}
	return *e.TaskID
}
