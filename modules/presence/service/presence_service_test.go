package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"presence-sync/core/constants"
	apperrors "presence-sync/core/errors"
	"presence-sync/modules/presence/dto"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	docs    map[string][]byte
	expiry  map[string]time.Time
	setErr  error
	getErr  error
	setOps  int
	delOps  int
	expires int
}

func newMemCache() *memCache {
	return &memCache{docs: make(map[string][]byte), expiry: make(map[string]time.Time)}
}

func cacheKey(topic, key string) string { return topic + ":" + key }

func (m *memCache) JSONGet(_ context.Context, topic, key string, dest any) (bool, error) {
	if m.getErr != nil {
		return false, m.getErr
	}
	raw, ok := m.docs[cacheKey(topic, key)]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memCache) JSONSet(_ context.Context, topic, key string, value any) (bool, error) {
	if m.setErr != nil {
		return false, m.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	m.docs[cacheKey(topic, key)] = raw
	m.setOps++
	return true, nil
}

func (m *memCache) JSONDel(_ context.Context, topic, key string) error {
	delete(m.docs, cacheKey(topic, key))
	delete(m.expiry, cacheKey(topic, key))
	m.delOps++
	return nil
}

func (m *memCache) ExpireAt(_ context.Context, topic, key string, at time.Time) (bool, error) {
	m.expiry[cacheKey(topic, key)] = at
	m.expires++
	return true, nil
}

func (m *memCache) Persist(_ context.Context, topic, key string) error {
	delete(m.expiry, cacheKey(topic, key))
	return nil
}

func (m *memCache) Client() *redis.Client { return nil }

func TestPresenceSetAndGetRoundTrip(t *testing.T) {
	c := newMemCache()
	svc := NewPresenceService(c)

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	ok, err := svc.Set(context.Background(), "u1", &dto.AwayRecord{
		StartedAt: start, EndsAt: &end, Text: "in a meeting", EventID: "ev1",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "in a meeting", got.Text)
	assert.Equal(t, "ev1", got.EventID)
	require.NotNil(t, got.EndsAt)
	assert.True(t, got.EndsAt.Equal(end))

	// The record self-clears at its end time.
	assert.True(t, c.expiry[cacheKey(constants.TopicAfk, "u1")].Equal(end))
}

func TestPresenceSetOpenEndedPersists(t *testing.T) {
	c := newMemCache()
	svc := NewPresenceService(c)
	c.expiry[cacheKey(constants.TopicAfk, "u1")] = time.Now()

	_, err := svc.Set(context.Background(), "u1", &dto.AwayRecord{Text: "afk"})
	require.NoError(t, err)

	_, hasExpiry := c.expiry[cacheKey(constants.TopicAfk, "u1")]
	assert.False(t, hasExpiry)
}

func TestPresenceSetValidation(t *testing.T) {
	svc := NewPresenceService(newMemCache())

	_, err := svc.Set(context.Background(), "", &dto.AwayRecord{})
	require.Error(t, err)

	_, err = svc.Set(context.Background(), "u1", &dto.AwayRecord{
		Text: strings.Repeat("x", constants.MaxAwayRecordBytes+1),
	})
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrInvalidInput, appErr.Code)

	// The bound covers the whole stored document, not just the text: a short
	// message with an oversized attachment URL must be rejected too.
	_, err = svc.Set(context.Background(), "u1", &dto.AwayRecord{
		Text:       "brb",
		Attachment: "https://cdn.example.com/" + strings.Repeat("a", constants.MaxAwayRecordBytes),
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrInvalidInput, appErr.Code)
}

func TestPresenceGetMissingIsNil(t *testing.T) {
	svc := NewPresenceService(newMemCache())

	got, err := svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPresenceClear(t *testing.T) {
	c := newMemCache()
	svc := NewPresenceService(c)

	_, err := svc.Set(context.Background(), "u1", &dto.AwayRecord{Text: "afk"})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(context.Background(), "u1"))

	got, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPresenceExtendWindowPreservesAttachment(t *testing.T) {
	c := newMemCache()
	svc := NewPresenceService(c)

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	_, err := svc.Set(context.Background(), "u1", &dto.AwayRecord{
		StartedAt: start, EndsAt: &end, Text: "old", Attachment: "https://cdn/pic.png", EventID: "ev1",
	})
	require.NoError(t, err)

	newEnd := end.Add(2 * time.Hour)
	require.NoError(t, svc.ExtendWindow(context.Background(), "u1", start, newEnd, "new"))

	got, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, "https://cdn/pic.png", got.Attachment)
	assert.Equal(t, "ev1", got.EventID)
	assert.True(t, got.EndsAt.Equal(newEnd))
	assert.True(t, c.expiry[cacheKey(constants.TopicAfk, "u1")].Equal(newEnd))
}

func TestPresenceExtendWindowMissingRecordIsNoOp(t *testing.T) {
	c := newMemCache()
	svc := NewPresenceService(c)

	require.NoError(t, svc.ExtendWindow(context.Background(), "u1", time.Now(), time.Now().Add(time.Hour), "t"))
	assert.Zero(t, c.setOps)
}
