package workflows

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/PolarWolf314/kete/internal/audit"
	"github.com/PolarWolf314/kete/internal/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, j *Job) []Event {
	t.Helper()
	var events []Event
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-j.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("job did not finish")
		}
	}
}

func TestJobDone(t *testing.T) {
	j := Start(context.Background(), func(ctx context.Context, p container.ProgressFunc) (Done, error) {
		p(50)
		p(100)
		return Done{Message: "ok", Output: "out.enc"}, nil
	})
	assert.NotEmpty(t, j.ID)

	events := collect(t, j)
	require.Len(t, events, 3)
	assert.Equal(t, Progress{Percent: 50}, events[0])
	assert.Equal(t, Progress{Percent: 100}, events[1])
	assert.Equal(t, Done{Message: "ok", Output: "out.enc"}, events[2])
	assert.NoError(t, j.Wait())
}

func TestJobFailed(t *testing.T) {
	boom := errors.New("boom")
	j := Start(context.Background(), func(ctx context.Context, p container.ProgressFunc) (Done, error) {
		return Done{}, boom
	})

	events := collect(t, j)
	require.Len(t, events, 1)
	failed, ok := events[0].(Failed)
	require.True(t, ok)
	assert.ErrorIs(t, failed.Err, boom)
	assert.ErrorIs(t, j.Wait(), boom)
}

func TestJobProgressNeverBlocks(t *testing.T) {
	returned := make(chan struct{})
	j := Start(context.Background(), func(ctx context.Context, p container.ProgressFunc) (Done, error) {
		defer close(returned)
		for i := 0; i < 10*progressBuffer; i++ {
			p(i % 101)
		}
		return Done{Message: "finished"}, nil
	})

	// Nobody reads until the operation has returned; the surplus progress is dropped.
	select {
	case <-returned:
	case <-time.After(10 * time.Second):
		t.Fatal("progress blocked the worker")
	}
	events := collect(t, j)
	assert.LessOrEqual(t, len(events), progressBuffer+1)
	assert.Equal(t, Done{Message: "finished"}, events[len(events)-1])
}

func TestJobCancel(t *testing.T) {
	started := make(chan struct{})
	j := Start(context.Background(), func(ctx context.Context, p container.ProgressFunc) (Done, error) {
		close(started)
		<-ctx.Done()
		return Done{}, ctx.Err()
	})
	<-started
	j.Cancel()
	assert.ErrorIs(t, j.Wait(), context.Canceled)
}

func TestJobIDInAuditLog(t *testing.T) {
	useTempSettings(t)
	dir := t.TempDir()
	in := writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	j := Start(context.Background(), func(ctx context.Context, p container.ProgressFunc) (Done, error) {
		_, err := Encrypt(ctx, EncryptOptions{Inputs: []string{in}, Password: "pw"}, p)
		return Done{}, err
	})
	require.NoError(t, j.Wait())

	entries, err := audit.ReadEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, j.ID, entries[0].JobID)
}
