package detect

import "strings"

// Context is the flattened, per-stack input every detector reads: parsed
// high-value token flags, the normalized text search blob, and the physics
// and geometry parameters used by the physics-range and heuristic tiers.
// One Context is built per stack_fingerprint row (internal/classify owns
// construction from a fingerprint; detectors only read it).
type Context struct {
	Modality           string
	Manufacturer       string
	ManufacturerModel  string
	TextSearchBlob     string
	ContrastAgentBlob  string
	SequenceName       string

	// Flags holds every parsed high-value DICOM token flag (has_swi,
	// has_adc, is_minip, is_3d, is_2d, is_screenshot, has_t1, has_flair,
	// ...). Exclusive/combination/alternative_flags tiers all read this set.
	Flags map[string]bool

	TR, TE, TI, FlipAngle *float64
	EchoTrainLength       *int
	BValues               []float64

	FOV                   float64
	AspectRatio           float64
	SliceCount            int
	Orientation           string
	OrientationConfidence float64

	ContrastBolusAgent string

	// Carried forward from earlier pipeline stages so later detectors
	// (base, body part, intent synthesis) can read prior axis decisions.
	Technique  string
	Provenance string
}

// HasFlag reports whether a named parsed flag is set.
func (c *Context) HasFlag(name string) bool {
	if c == nil || c.Flags == nil {
		return false
	}
	return c.Flags[name]
}

// HasAllFlags reports whether every named flag is set (the "combination"
// tier: AND over multiple parsed flags).
func (c *Context) HasAllFlags(names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		if !c.HasFlag(n) {
			return false
		}
	}
	return true
}

// HasAnyFlag reports whether at least one named flag is set (the
// "alternative_flags" OR tier).
func (c *Context) HasAnyFlag(names []string) bool {
	for _, n := range names {
		if c.HasFlag(n) {
			return true
		}
	}
	return false
}

// HasKeyword reports whether a keyword appears in the normalized text
// search blob as a standalone token run (the blob is already
// space-tokenized by internal/normalize, so a simple bounded substring
// check on " "-padded strings is sufficient and avoids regex
// backtracking concerns).
func (c *Context) HasKeyword(keyword string) bool {
	if keyword == "" {
		return false
	}
	return containsToken(c.TextSearchBlob, keyword)
}

func containsToken(blob, phrase string) bool {
	if blob == "" || phrase == "" {
		return false
	}
	padded := " " + blob + " "
	return strings.Contains(padded, " "+phrase+" ")
}
