package extract

import (
	"hash/fnv"
	"sync"
)

// WriterRouter assigns each subject key to a writer index using
// hash(subject_key) mod N, sticky for the life of the run so the
// subject/study/series caches inside one writer never thrash (spec §4.7
// "Routing", §5 "Ordering guarantees").
type WriterRouter struct {
	numWriters int

	mu     sync.Mutex
	routed map[string]int
}

// NewWriterRouter builds a router over numWriters writers (numWriters
// must be >= 1).
func NewWriterRouter(numWriters int) *WriterRouter {
	if numWriters < 1 {
		numWriters = 1
	}
	return &WriterRouter{numWriters: numWriters, routed: make(map[string]int)}
}

// RouteSubject returns the writer index for subjectKey, assigning and
// remembering one on first use.
func (r *WriterRouter) RouteSubject(subjectKey string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.routed[subjectKey]; ok {
		return idx
	}
	idx := subjectHash(subjectKey) % r.numWriters
	r.routed[subjectKey] = idx
	return idx
}

func subjectHash(subjectKey string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectKey))
	return int(h.Sum32())
}
