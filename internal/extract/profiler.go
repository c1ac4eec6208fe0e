package extract

import (
	"sync"
	"time"
)

// OperationStats accumulates count/min/max/total duration for one named
// operation, grounded on
// original_source/backend/src/extract/profiler.py's OperationStats.
type OperationStats struct {
	Count         int
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
}

func (s *OperationStats) record(d time.Duration) {
	s.Count++
	s.TotalDuration += d
	if s.Count == 1 || d < s.MinDuration {
		s.MinDuration = d
	}
	if d > s.MaxDuration {
		s.MaxDuration = d
	}
}

// AvgDuration returns the mean recorded duration, or zero if nothing has
// been recorded.
func (s *OperationStats) AvgDuration() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Count)
}

// Profiler is a thread-safe timing instrument for the named operations of
// the extraction pipeline: subject_discovery, dicom_parsing,
// batch_assembly, db_write_batch, db_commit, queue_put, queue_get.
type Profiler struct {
	mu         sync.Mutex
	stats      map[string]*OperationStats
	start, end time.Time
	filesDone  int
}

// NewProfiler builds an empty Profiler.
func NewProfiler() *Profiler {
	return &Profiler{stats: make(map[string]*OperationStats)}
}

// Start marks the beginning of the extraction run.
func (p *Profiler) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.start = time.Now()
}

// Stop marks the end of the extraction run.
func (p *Profiler) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.end = time.Now()
}

// Record appends one timing sample under operation.
func (p *Profiler) Record(operation string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stats[operation]
	if !ok {
		s = &OperationStats{}
		p.stats[operation] = s
	}
	s.record(d)
}

// Time runs fn, recording its wall-clock duration under operation.
func (p *Profiler) Time(operation string, fn func()) {
	started := time.Now()
	fn()
	p.Record(operation, time.Since(started))
}

// IncFilesProcessed bumps the processed-file counter by n.
func (p *Profiler) IncFilesProcessed(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filesDone += n
}

// Snapshot returns a copy of the per-operation stats and the total
// elapsed wall-clock time, safe to read while the profiler is still live.
func (p *Profiler) Snapshot() (stats map[string]OperationStats, filesProcessed int, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]OperationStats, len(p.stats))
	for k, v := range p.stats {
		out[k] = *v
	}

	end := p.end
	if end.IsZero() {
		end = time.Now()
	}
	var el time.Duration
	if !p.start.IsZero() {
		el = end.Sub(p.start)
	}
	return out, p.filesDone, el
}
