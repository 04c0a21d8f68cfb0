package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/sst-server/internal/database"
)

type fakeStore struct {
	runs      []*database.JobRun
	insertErr error
}

func (f *fakeStore) InsertJobRun(_ context.Context, run *database.JobRun) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.runs = append(f.runs, run)
	return nil
}

func TestRunRecordsSuccess(t *testing.T) {
	store := &fakeStore{}
	clock := clockwork.NewFakeClock()
	recorder := NewRecorder(store, clock)

	err := recorder.Run(context.Background(), "aggregate-daily", func(context.Context) (string, error) {
		clock.Advance(3 * time.Minute)
		return "365 days aggregated", nil
	})
	require.NoError(t, err)

	require.Len(t, store.runs, 1)
	run := store.runs[0]
	assert.Equal(t, "aggregate-daily", run.JobName)
	assert.Equal(t, database.JobStatusSuccess, run.Status)
	assert.Equal(t, "365 days aggregated", run.Note)
	assert.Equal(t, 3*time.Minute, run.FinishedAt.Sub(run.StartedAt))
}

func TestRunRecordsError(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, clockwork.NewFakeClock())

	err := recorder.Run(context.Background(), "baselines", func(context.Context) (string, error) {
		return "", errors.New("connection refused")
	})
	require.Error(t, err)

	require.Len(t, store.runs, 1)
	assert.Equal(t, database.JobStatusError, store.runs[0].Status)
	assert.Equal(t, "connection refused", store.runs[0].Note)
}

func TestRunRecordsPartial(t *testing.T) {
	store := &fakeStore{}
	recorder := NewRecorder(store, clockwork.NewFakeClock())

	err := recorder.Run(context.Background(), "all", func(context.Context) (string, error) {
		return "", &PartialError{Note: "2 of 12 months failed"}
	})
	assert.NoError(t, err, "a partial run is not a failure")

	require.Len(t, store.runs, 1)
	assert.Equal(t, database.JobStatusPartial, store.runs[0].Status)
	assert.Equal(t, "2 of 12 months failed", store.runs[0].Note)
}

func TestRunSurvivesRecordingFailure(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("db down")}
	recorder := NewRecorder(store, clockwork.NewFakeClock())

	err := recorder.Run(context.Background(), "anomalies", func(context.Context) (string, error) {
		return "done", nil
	})
	assert.NoError(t, err, "the job result is not masked by a recording failure")
}
