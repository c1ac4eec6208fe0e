package jobctl

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-contrib/sse"
)

// Status is one of the fixed step lifecycle states (spec §6 "Job control
// and progress").
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusWarning  Status = "warning"
	StatusError    Status = "error"
	StatusSkipped  Status = "skipped"
)

// ProgressEvent is one emitted update for a single pipeline step.
type ProgressEvent struct {
	StepID        string         `json:"step_id"`
	Status        Status         `json:"status"`
	Progress      int            `json:"progress"` // 0..100
	Message       string         `json:"message"`
	Metrics       map[string]any `json:"metrics,omitempty"`
	CurrentAction string         `json:"current_action,omitempty"`
	Error         string         `json:"error,omitempty"`
	Logs          []string       `json:"logs"`
}

// Emitter builds and streams ProgressEvents for one step, attaching its
// rolling log buffer to every emit.
type Emitter struct {
	stepID string
	logs   *LogBuffer
}

// NewEmitter builds an Emitter for stepID with a fresh log buffer.
func NewEmitter(stepID string) *Emitter {
	return &Emitter{stepID: stepID, logs: NewLogBuffer()}
}

// Log appends a line to the step's rolling buffer without emitting an
// event.
func (e *Emitter) Log(format string, args ...any) {
	e.logs.Append(fmt.Sprintf(format, args...))
}

// Event builds a ProgressEvent carrying the current log buffer snapshot.
func (e *Emitter) Event(status Status, progress int, message string, metrics map[string]any) ProgressEvent {
	return ProgressEvent{
		StepID:   e.stepID,
		Status:   status,
		Progress: progress,
		Message:  message,
		Metrics:  metrics,
		Logs:     e.logs.Lines(),
	}
}

// EncodeSSE writes ev to w as a single Server-Sent Event named
// "progress", JSON-encoding the payload.
func EncodeSSE(w io.Writer, ev ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("jobctl: marshal progress event: %w", err)
	}
	return sse.Encode(w, sse.Event{Event: "progress", Data: json.RawMessage(payload)})
}

// EncodeSSEBytes is a convenience wrapper returning the encoded bytes
// instead of writing to an io.Writer, used by handlers that need to
// buffer before flushing.
func EncodeSSEBytes(ev ProgressEvent) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSSE(&buf, ev); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
