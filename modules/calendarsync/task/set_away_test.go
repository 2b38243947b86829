package task

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"presence-sync/core/constants"
	presencedto "presence-sync/modules/presence/dto"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPresence struct {
	records map[string]presencedto.AwayRecord
	sets    int
	setErr  error
}

func newRecordingPresence() *recordingPresence {
	return &recordingPresence{records: make(map[string]presencedto.AwayRecord)}
}

func (r *recordingPresence) Set(_ context.Context, userID string, rec *presencedto.AwayRecord) (bool, error) {
	if r.setErr != nil {
		return false, r.setErr
	}
	r.records[userID] = *rec
	r.sets++
	return true, nil
}

func (r *recordingPresence) Get(_ context.Context, userID string) (*presencedto.AwayRecord, error) {
	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *recordingPresence) Clear(_ context.Context, userID string) error {
	delete(r.records, userID)
	return nil
}

func (r *recordingPresence) ExtendWindow(_ context.Context, _ string, _, _ time.Time, _ string) error {
	return nil
}

func TestSetAwayHandlerAppliesTransition(t *testing.T) {
	presence := newRecordingPresence()
	handler := NewSetAwayHandler(presence)

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	payload, err := json.Marshal(SetAwayPayload{UserID: "u1", EventID: "ev1", StartTime: start, EndTime: end})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), asynq.NewTask(constants.TaskSetAway, payload)))

	rec, ok := presence.records["u1"]
	require.True(t, ok)
	assert.Equal(t, "ev1", rec.EventID)
	assert.True(t, rec.StartedAt.Equal(start))
	require.NotNil(t, rec.EndsAt)
	assert.True(t, rec.EndsAt.Equal(end))
	assert.Equal(t, "📅 15:00 - 16:00", rec.Text)
}

func TestSetAwayHandlerIsIdempotent(t *testing.T) {
	presence := newRecordingPresence()
	handler := NewSetAwayHandler(presence)

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(SetAwayPayload{UserID: "u1", EventID: "ev1", StartTime: start, EndTime: start.Add(time.Hour)})

	task := asynq.NewTask(constants.TaskSetAway, payload)
	require.NoError(t, handler(context.Background(), task))
	first := presence.records["u1"]
	require.NoError(t, handler(context.Background(), task))

	assert.Equal(t, first, presence.records["u1"])
}

func TestSetAwayHandlerDropsMalformedPayload(t *testing.T) {
	presence := newRecordingPresence()
	handler := NewSetAwayHandler(presence)

	// Returning nil acknowledges the task; a garbage payload must not retry.
	require.NoError(t, handler(context.Background(), asynq.NewTask(constants.TaskSetAway, []byte("{not json"))))
	require.NoError(t, handler(context.Background(), asynq.NewTask(constants.TaskSetAway, []byte(`{"eventId":"ev1"}`))))
	assert.Zero(t, presence.sets)
}

func TestSetAwayHandlerReturnsErrorForRetry(t *testing.T) {
	presence := newRecordingPresence()
	presence.setErr = assert.AnError
	handler := NewSetAwayHandler(presence)

	start := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(SetAwayPayload{UserID: "u1", EventID: "ev1", StartTime: start, EndTime: start.Add(time.Hour)})

	assert.Error(t, handler(context.Background(), asynq.NewTask(constants.TaskSetAway, payload)))
}

func TestBuildAwayText(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

	assert.Equal(t, "📅 09:30 - 11:00", BuildAwayText(start, start.Add(90*time.Minute)))
	assert.Equal(t, "📅 Jun 2 09:30 - Jun 4 08:00", BuildAwayText(start, start.Add(46*time.Hour+30*time.Minute)))
}
