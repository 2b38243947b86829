package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"presence-sync/core/cache"
	"presence-sync/core/constants"
	"presence-sync/core/errors"
	"presence-sync/core/logger"
	"presence-sync/modules/presence/dto"
)

// PresenceService owns the away-record in the presence store. Writes for the
// same user are serialized so a reconciliation cleanup cannot interleave with
// a transition-task activation, and setting an identical record twice is a
// no-op in effect, which keeps at-least-once task delivery safe.
type PresenceService interface {
	Set(ctx context.Context, userID string, rec *dto.AwayRecord) (bool, error)
	Get(ctx context.Context, userID string) (*dto.AwayRecord, error)
	Clear(ctx context.Context, userID string) error
	// ExtendWindow rewrites the window and text of an existing record in
	// place, preserving attachment and event id. Missing record is a no-op.
	ExtendWindow(ctx context.Context, userID string, start, end time.Time, text string) error
}

type presenceService struct {
	cache cache.Cache

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPresenceService(c cache.Cache) PresenceService {
	return &presenceService{
		cache: c,
		locks: make(map[string]*sync.Mutex),
	}
}

func (s *presenceService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

func (s *presenceService) Set(ctx context.Context, userID string, rec *dto.AwayRecord) (bool, error) {
	if userID == "" {
		return false, errors.NewAppError(errors.ErrInvalidInput, "user id is required", nil)
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}

	// Bound the whole stored document: text, attachment URL, and event id all
	// count against the record budget.
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, errors.NewAppError(errors.ErrInvalidInput, "unencodable away record", err)
	}
	if len(raw) > constants.MaxAwayRecordBytes {
		return false, errors.NewAppError(errors.ErrInvalidInput, "away record too large", nil)
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	ok, err := s.cache.JSONSet(ctx, constants.TopicAfk, userID, rec)
	if err != nil || !ok {
		return false, errors.NewAppError(errors.ErrStoreWrite, "failed to write away record", err)
	}

	if rec.EndsAt != nil {
		if _, err := s.cache.ExpireAt(ctx, constants.TopicAfk, userID, *rec.EndsAt); err != nil {
			return false, errors.NewAppError(errors.ErrStoreWrite, "failed to set away expiry", err)
		}
	} else if err := s.cache.Persist(ctx, constants.TopicAfk, userID); err != nil {
		return false, errors.NewAppError(errors.ErrStoreWrite, "failed to clear away expiry", err)
	}

	logger.Debug("PresenceService:Set", "user_id", userID, "ends_at", rec.EndsAt)
	return true, nil
}

func (s *presenceService) Get(ctx context.Context, userID string) (*dto.AwayRecord, error) {
	var rec dto.AwayRecord
	found, err := s.cache.JSONGet(ctx, constants.TopicAfk, userID, &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

func (s *presenceService) Clear(ctx context.Context, userID string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.cache.JSONDel(ctx, constants.TopicAfk, userID); err != nil {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to clear away record", err)
	}
	logger.Debug("PresenceService:Clear", "user_id", userID)
	return nil
}

func (s *presenceService) ExtendWindow(ctx context.Context, userID string, start, end time.Time, text string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	var rec dto.AwayRecord
	found, err := s.cache.JSONGet(ctx, constants.TopicAfk, userID, &rec)
	if err != nil {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to read away record", err)
	}
	if !found {
		return nil
	}

	rec.StartedAt = start
	rec.EndsAt = &end
	rec.Text = text

	if ok, err := s.cache.JSONSet(ctx, constants.TopicAfk, userID, &rec); err != nil || !ok {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to update away record", err)
	}
	if _, err := s.cache.ExpireAt(ctx, constants.TopicAfk, userID, end); err != nil {
		return errors.NewAppError(errors.ErrStoreWrite, "failed to update away expiry", err)
	}

	logger.Debug("PresenceService:ExtendWindow", "user_id", userID, "ends_at", end)
	return nil
}
