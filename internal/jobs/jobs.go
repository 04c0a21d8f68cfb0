package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"

	"github.com/oceanobs/sst-server/internal/database"
)

// Store is the storage surface for job run records.
type Store interface {
	InsertJobRun(ctx context.Context, run *database.JobRun) error
}

// PartialError marks a job that finished but skipped or lost part of
// its work. The run is recorded with status partial and the job is
// not treated as failed.
type PartialError struct {
	Note string
}

func (e *PartialError) Error() string {
	return e.Note
}

// Recorder wraps pipeline jobs and writes an audit row for every run.
type Recorder struct {
	store Store
	clock clockwork.Clock
}

// NewRecorder creates a new job recorder. A nil clock means wall time.
func NewRecorder(store Store, clock clockwork.Clock) *Recorder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Recorder{store: store, clock: clock}
}

// Run executes fn and records its outcome under name. The note fn
// returns is stored on success. A PartialError is recorded as status
// partial and swallowed; any other error is recorded as status error
// and returned.
func (r *Recorder) Run(ctx context.Context, name string, fn func(context.Context) (string, error)) error {
	started := r.clock.Now().UTC()
	note, err := fn(ctx)
	finished := r.clock.Now().UTC()

	status := database.JobStatusSuccess
	var partial *PartialError
	switch {
	case err == nil:
	case errors.As(err, &partial):
		status = database.JobStatusPartial
		note = partial.Note
		err = nil
	default:
		status = database.JobStatusError
		note = err.Error()
	}

	run := &database.JobRun{
		JobName:    name,
		Status:     status,
		StartedAt:  started,
		FinishedAt: finished,
		Note:       note,
	}
	if insertErr := r.store.InsertJobRun(ctx, run); insertErr != nil {
		// The job outcome matters more than the audit row.
		log.Printf("Failed to record job run %s: %v", name, insertErr)
	}

	if err != nil {
		return fmt.Errorf("job %s failed: %w", name, err)
	}
	return nil
}
