package extract

import (
	"sync"
	"time"
)

// BatchSizeSettings bounds the adaptive controller, grounded on
// original_source/backend/src/extract/batching.py's BatchSizeSettings.
type BatchSizeSettings struct {
	Initial   int
	Minimum   int
	Maximum   int
	TargetMS  int
	Enabled   bool
}

// AdaptiveBatchController nudges the shared batch size up/down by 25% if
// a batch's write latency falls outside [target/2, target*2], clamped to
// [Minimum, Maximum] (spec §4.7 "Batching"). Safe for concurrent use by
// multiple writers; no writer blocks on another's update (spec §5
// "Adaptive batching").
type AdaptiveBatchController struct {
	settings BatchSizeSettings
	mu       sync.Mutex
	current  int
}

// NewAdaptiveBatchController builds a controller clamped to its own bounds.
func NewAdaptiveBatchController(settings BatchSizeSettings) *AdaptiveBatchController {
	c := &AdaptiveBatchController{settings: settings}
	c.current = clamp(settings.Initial, settings.Minimum, settings.Maximum)
	return c
}

// CurrentSize returns the batch size writers should sample at the top of
// their next batch.
func (c *AdaptiveBatchController) CurrentSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Record reports one completed batch's write latency, nudging the target
// size if it fell outside the acceptable band.
func (c *AdaptiveBatchController) Record(instancesWritten int, duration time.Duration) {
	if instancesWritten <= 0 || !c.settings.Enabled {
		return
	}
	durationMS := float64(duration.Microseconds()) / 1000.0
	target := float64(c.settings.TargetMS)

	c.mu.Lock()
	defer c.mu.Unlock()
	current := c.current
	updated := current
	switch {
	case durationMS < target/2 && current < c.settings.Maximum:
		updated = clamp(maxInt(current+1, int(float64(current)*1.25)), c.settings.Minimum, c.settings.Maximum)
	case durationMS > target*2 && current > c.settings.Minimum:
		updated = clamp(maxInt(1, int(float64(current)/1.25)), c.settings.Minimum, c.settings.Maximum)
	}
	c.current = updated
}

// ClampToSafeRows additionally bounds the controller's maximum by the
// writer-reported safe-rows-per-statement ceiling (spec §4.8 "Parameter
// budget"), so adaptive batching never asks for more rows than one
// prepared statement can hold.
func (c *AdaptiveBatchController) ClampToSafeRows(safeRows int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if safeRows < c.settings.Maximum {
		c.settings.Maximum = safeRows
	}
	if c.current > c.settings.Maximum {
		c.current = c.settings.Maximum
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
