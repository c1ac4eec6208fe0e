// Package resume implements resume-by-path for the extraction engine
// (spec §4.7 "Resume"): an ExistingPathIndex that starts as an exact set
// per subject and flips to a Bloom filter once a subject's path count
// crosses a configured threshold, trading a small false-positive rate for
// bounded memory on cohorts with very large subjects.
package resume

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

const (
	defaultSubjectThreshold = 50_000
	defaultErrorRate        = 0.01
)

// SubjectPathEntry is the resume filter for a single subject, grounded on
// original_source/backend/src/extract/resume_index.py's
// SubjectPathEntry.
type SubjectPathEntry struct {
	threshold int
	errorRate float64

	mu    sync.RWMutex
	paths map[string]struct{}
	filt  *bloom.BloomFilter
	count int
}

func newSubjectPathEntry(threshold int, errorRate float64) *SubjectPathEntry {
	return &SubjectPathEntry{
		threshold: threshold,
		errorRate: errorRate,
		paths:     make(map[string]struct{}),
	}
}

// Add records a subject-relative path as already stored.
func (e *SubjectPathEntry) Add(relativePath string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.filt != nil {
		e.filt.AddString(relativePath)
		e.count++
		return
	}
	e.paths[relativePath] = struct{}{}
	e.count = len(e.paths)
	if e.count >= e.threshold {
		filt := bloom.NewWithEstimates(uint(e.count), e.errorRate)
		for p := range e.paths {
			filt.AddString(p)
		}
		e.paths = nil
		e.filt = filt
	}
}

// Contains reports whether relativePath was previously added. Once the
// entry has switched to a Bloom filter this may return a false positive
// (never a false negative).
func (e *SubjectPathEntry) Contains(relativePath string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.filt != nil {
		return e.filt.TestString(relativePath)
	}
	_, ok := e.paths[relativePath]
	return ok
}

// Len returns the count of paths added to this entry.
func (e *SubjectPathEntry) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.count
}

// ExistingPathIndex tracks, per subject, which relative DICOM file paths
// are already stored, so a resumed run can skip re-parsing them. Grounded
// on resume_index.py's ExistingPathIndex.
type ExistingPathIndex struct {
	subjectThreshold int
	errorRate        float64

	mu         sync.RWMutex
	subjects   map[string]*SubjectPathEntry
	totalPaths int
}

// Option configures an ExistingPathIndex's subject-level threshold and
// Bloom filter error rate.
type Option func(*ExistingPathIndex)

// WithSubjectThreshold overrides the default 50,000-path switchover point.
func WithSubjectThreshold(n int) Option {
	return func(idx *ExistingPathIndex) { idx.subjectThreshold = n }
}

// WithErrorRate overrides the default 1% Bloom filter false-positive rate.
func WithErrorRate(r float64) Option {
	return func(idx *ExistingPathIndex) { idx.errorRate = r }
}

// NewExistingPathIndex builds an empty index.
func NewExistingPathIndex(opts ...Option) *ExistingPathIndex {
	idx := &ExistingPathIndex{
		subjectThreshold: defaultSubjectThreshold,
		errorRate:        defaultErrorRate,
		subjects:         make(map[string]*SubjectPathEntry),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Add records subjectRelative as already stored for subjectKey.
func (idx *ExistingPathIndex) Add(subjectKey, subjectRelative string) {
	if subjectKey == "" {
		return
	}
	idx.mu.Lock()
	entry, ok := idx.subjects[subjectKey]
	if !ok {
		entry = newSubjectPathEntry(idx.subjectThreshold, idx.errorRate)
		idx.subjects[subjectKey] = entry
	}
	idx.totalPaths++
	idx.mu.Unlock()

	entry.Add(subjectRelative)
}

// ShouldSkip reports whether a file at subjectRelative, under subjectKey,
// has already been stored and should be skipped on resume.
func (idx *ExistingPathIndex) ShouldSkip(subjectKey, subjectRelative string) bool {
	idx.mu.RLock()
	entry, ok := idx.subjects[subjectKey]
	idx.mu.RUnlock()
	if !ok {
		return false
	}
	return entry.Contains(subjectRelative)
}

// EntryFor returns the per-subject filter entry, if any subject has been
// added with this key.
func (idx *ExistingPathIndex) EntryFor(subjectKey string) (*SubjectPathEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.subjects[subjectKey]
	return e, ok
}

// TotalPaths returns the number of paths loaded across all subjects.
func (idx *ExistingPathIndex) TotalPaths() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalPaths
}
