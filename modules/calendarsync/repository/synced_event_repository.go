package repository

import (
	"context"

	"presence-sync/core/database"
	"presence-sync/modules/calendarsync/entity"

	"github.com/google/uuid"
)

type SyncedEventRepository interface {
	GetByUserID(ctx context.Context, userID string) ([]entity.SyncedEvent, error)
	Create(ctx context.Context, ev *entity.SyncedEvent) error
	Update(ctx context.Context, ev *entity.SyncedEvent) error
	Delete(ctx context.Context, userID, eventID string) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type syncedEventRepository struct {
	db database.IDatabase
}

func NewSyncedEventRepository(db database.IDatabase) SyncedEventRepository {
	return &syncedEventRepository{db: db}
}

func (r *syncedEventRepository) GetByUserID(ctx context.Context, userID string) ([]entity.SyncedEvent, error) {
	query := `
		SELECT id, user_id, event_id, task_id, start_time, end_time, last_modified, afk_active, created_at, updated_at
		FROM synced_events
		WHERE user_id = $1
		ORDER BY start_time
	`
	var events []entity.SyncedEvent
	if err := r.db.SelectContext(ctx, &events, query, userID); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *syncedEventRepository) Create(ctx context.Context, ev *entity.SyncedEvent) error {
	query := `
		INSERT INTO synced_events (id, user_id, event_id, task_id, start_time, end_time, last_modified, afk_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	ev.ID = uuid.New()
	return r.db.QueryRowContext(ctx, query,
		ev.ID, ev.UserID, ev.EventID, ev.TaskID,
		ev.StartTime, ev.EndTime, ev.LastModified, ev.AfkActive,
	).Scan(&ev.CreatedAt, &ev.UpdatedAt)
}

func (r *syncedEventRepository) Update(ctx context.Context, ev *entity.SyncedEvent) error {
	query := `
		UPDATE synced_events
		SET task_id = $1, start_time = $2, end_time = $3, last_modified = $4, afk_active = $5, updated_at = NOW()
		WHERE user_id = $6 AND event_id = $7
	`
	return r.db.ExecContext(ctx, query,
		ev.TaskID, ev.StartTime, ev.EndTime, ev.LastModified, ev.AfkActive,
		ev.UserID, ev.EventID,
	)
}

func (r *syncedEventRepository) Delete(ctx context.Context, userID, eventID string) error {
	return r.db.ExecContext(ctx,
		`DELETE FROM synced_events WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	)
}

func (r *syncedEventRepository) DeleteByUserID(ctx context.Context, userID string) error {
	return r.db.ExecContext(ctx, `DELETE FROM synced_events WHERE user_id = $1`, userID)
}
