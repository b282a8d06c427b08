package workflows

import (
	"context"
	"sync"

	"github.com/PolarWolf314/kete/internal/container"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Event is sent on a Job's event channel: Progress any number of times,
// then exactly one Done or Failed.
type Event interface {
	event()
}

// Progress reports how far the operation is, from 0 to 100.
type Progress struct {
	Percent int
}

// Done ends a successful job.
type Done struct {
	Message string
	Output  string
}

// Failed ends a job that returned an error.
type Failed struct {
	Err error
}

func (Progress) event() {}
func (Done) event()     {}
func (Failed) event()   {}

// Operation is the work a Job runs. It reports progress through progress
// and returns the Done event to send on success.
type Operation func(ctx context.Context, progress container.ProgressFunc) (Done, error)

// progressBuffer is how many progress updates may wait for a slow reader
// before newer ones are dropped.
const progressBuffer = 16

// Job is one operation running on its own goroutine.
type Job struct {
	ID string

	events chan Event
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// Start runs op on a new goroutine. Cancelling ctx or calling Cancel stops
// it between blocks.
func Start(ctx context.Context, op Operation) *Job {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.WithValue(ctx, jobIDKey{}, id))
	j := &Job{
		ID:     id,
		events: make(chan Event, progressBuffer),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	g, gctx := errgroup.WithContext(ctx)
	var result Done
	g.Go(func() error {
		var err error
		result, err = op(gctx, j.progress)
		return err
	})

	go func() {
		defer close(j.done)
		defer close(j.events)
		defer cancel()

		err := g.Wait()
		j.mu.Lock()
		j.err = err
		j.mu.Unlock()

		if err != nil {
			j.events <- Failed{Err: err}
			return
		}
		j.events <- Done{Message: result.Message, Output: result.Output}
	}()
	return j
}

type jobIDKey struct{}

// jobID returns the ID of the job running on ctx, or "" outside a job.
func jobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey{}).(string)
	return id
}

// progress never blocks the worker; when the buffer is full the update is dropped.
func (j *Job) progress(percent int) {
	select {
	case j.events <- Progress{Percent: percent}:
	default:
	}
}

// Events returns the job's event channel. It is closed after the terminal event.
func (j *Job) Events() <-chan Event {
	return j.events
}

// Cancel asks the operation to stop.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job has finished and returns its error. Events not
// yet read are discarded.
func (j *Job) Wait() error {
	for range j.events {
	}
	<-j.done
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}
