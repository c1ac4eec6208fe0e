package extract

import (
	"github.com/codeninja55/go-radx/internal/dcmio"
	"github.com/codeninja55/go-radx/internal/sig"
)

// InstancePayload is the unit produced by a worker and consumed by the
// bulk writer: one instance's raw tags plus the derived identifiers the
// writer needs to merge it into subject/study/series/stack rows (spec
// §4.7 "Responsibility").
type InstancePayload struct {
	Raw        *dcmio.RawInstance
	Signature  sig.Signature
	SubjectKey string
	Subject    SubjectResolution
}

// Batch is a fixed-size group of payloads for a single subject, yielded by
// a worker as `(batch, last_sop_uid)` per spec §4.7 "Scheduling model".
type Batch struct {
	SubjectKey string
	Payloads   []InstancePayload
	LastSOPUID string
}
