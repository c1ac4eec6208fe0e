package jobctl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/jobctl"
)

func TestJobControl_CheckpointPassesWhenRunning(t *testing.T) {
	jc := jobctl.New(1)
	require.NoError(t, jc.Checkpoint(context.Background()))
}

func TestJobControl_CancelIsObservedAtCheckpoint(t *testing.T) {
	jc := jobctl.New(1)
	jc.Cancel()
	require.True(t, jc.Cancelled())
	require.ErrorIs(t, jc.Checkpoint(context.Background()), jobctl.ErrCancelled)
}

func TestJobControl_PauseBlocksUntilResume(t *testing.T) {
	jc := jobctl.New(1)
	jc.Pause()

	done := make(chan error, 1)
	go func() { done <- jc.Checkpoint(context.Background()) }()

	select {
	case <-done:
		t.Fatal("checkpoint returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	jc.Resume()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not return after resume")
	}
}

func TestJobControl_CancelWakesPausedCheckpoint(t *testing.T) {
	jc := jobctl.New(1)
	jc.Pause()

	done := make(chan error, 1)
	go func() { done <- jc.Checkpoint(context.Background()) }()

	jc.Cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, jobctl.ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("checkpoint did not wake on cancel")
	}
}

func TestLogBuffer_EvictsOldest(t *testing.T) {
	buf := jobctl.NewLogBuffer()
	for i := 0; i < 150; i++ {
		buf.Append("line")
	}
	require.Len(t, buf.Lines(), 100)
}
