// Package classify orchestrates the 9-stage classification pipeline (spec
// §4.6) that turns a stack's fingerprint context into a
// series_classification_cache row: provenance, technique, branch overrides,
// modifiers, acceleration, contrast, body part, intent synthesis, and
// review-reason aggregation.
package classify

import (
	"sort"
	"strings"
)

// Result mirrors a series_classification_cache row (spec §3): axes,
// intent, three-state flags, integer flags, and the sorted review-reasons
// CSV.
type Result struct {
	Base          string
	Technique     string
	ModifierCSV   string
	ConstructCSV  string
	Provenance    string
	AccelerationCSV string

	DirectoryType string

	PostContrast *bool
	SpinalCord   *bool

	Localizer             bool
	ManualReviewRequired  bool

	reviewReasons map[string]struct{}
}

// AddReviewReason inserts an `axis:mode` token, keeping the set
// deduplicated (spec §9 "Review-reason format").
func (r *Result) AddReviewReason(axis, mode string) {
	if r.reviewReasons == nil {
		r.reviewReasons = map[string]struct{}{}
	}
	r.reviewReasons[axis+":"+mode] = struct{}{}
}

// RemoveReviewReason deletes a token if present.
func (r *Result) RemoveReviewReason(axis, mode string) {
	if r.reviewReasons == nil {
		return
	}
	delete(r.reviewReasons, axis+":"+mode)
}

// HasReviewReason reports whether a token is present.
func (r *Result) HasReviewReason(axis, mode string) bool {
	if r.reviewReasons == nil {
		return false
	}
	_, ok := r.reviewReasons[axis+":"+mode]
	return ok
}

// ReviewReasonsCSV returns the sorted, deduplicated, comma-separated
// review-reasons string (spec Testable Property 6).
func (r *Result) ReviewReasonsCSV() string {
	if len(r.reviewReasons) == 0 {
		return ""
	}
	tokens := make([]string, 0, len(r.reviewReasons))
	for t := range r.reviewReasons {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, ",")
}

// Finalize sets ManualReviewRequired from whether any review reason is
// present (spec Testable Property 6: "manual_review_required = 1 iff the
// CSV is non-empty").
func (r *Result) Finalize() {
	r.ManualReviewRequired = len(r.reviewReasons) > 0
}
