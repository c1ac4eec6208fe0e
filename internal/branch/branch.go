// Package branch implements provenance-specific override logic for base,
// construct, technique, and directory_type (spec §4.5), grounded on
// original_source/backend/src/classification/branches/*.py. A branch
// with no override (RawRecon) contributes nothing; the SWI, SyMRI, and
// EPIMix branches are authoritative by construction when they set their
// skip_*_detection flags.
package branch

import "github.com/codeninja55/go-radx/internal/detect"

// Result is what a branch contributes on top of the standard detectors.
// When a Skip* flag is true its companion value is used verbatim and no
// conflict check applies against the standard detector's own result (the
// branch is authoritative by construction, spec §4.5).
type Result struct {
	Base          string
	SkipBase      bool
	Construct     string
	SkipConstruct bool
	Technique     string
	SkipTechnique bool
	DirectoryType string
	Modifiers     []string
	Confidence    float64
}

// Branch is the provenance-specific override operation.
type Branch interface {
	Name() string
	Apply(ctx *detect.Context) Result
}

// RawRecon is the no-op branch: standard detectors run unchanged.
type RawRecon struct{}

func (RawRecon) Name() string                        { return "RawRecon" }
func (RawRecon) Apply(ctx *detect.Context) Result     { return Result{} }

// Resolve returns the Branch for a provenance id, defaulting to RawRecon
// for any provenance without branch-specific override logic.
func Resolve(provenanceID string) Branch {
	switch provenanceID {
	case "symri":
		return SyMRI{}
	case "swi_recon":
		return SWI{}
	case "epimix":
		return EPIMix{}
	default:
		return RawRecon{}
	}
}
