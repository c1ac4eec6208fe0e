package jobctl_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/jobctl"
)

func TestEmitter_EventCarriesLogSnapshot(t *testing.T) {
	e := jobctl.NewEmitter("step2_fingerprint")
	e.Log("starting batch %d", 1)
	ev := e.Event(jobctl.StatusRunning, 50, "halfway", nil)
	require.Equal(t, "step2_fingerprint", ev.StepID)
	require.Equal(t, jobctl.StatusRunning, ev.Status)
	require.Contains(t, ev.Logs[0], "starting batch 1")
}

func TestEncodeSSEBytes_ContainsEventName(t *testing.T) {
	e := jobctl.NewEmitter("step1_checkup")
	ev := e.Event(jobctl.StatusComplete, 100, "done", map[string]any{"series_count": 12})
	out, err := jobctl.EncodeSSEBytes(ev)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(out), "event:progress") || strings.Contains(string(out), "event: progress"))
	require.Contains(t, string(out), "series_count")
}
