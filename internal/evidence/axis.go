package evidence

import "sort"

// Failure modes for an AxisResult, in precedence order when more than one
// would apply: missing > conflict > low_confidence > ambiguous.
const (
	FailureMissing      = "missing"
	FailureConflict     = "conflict"
	FailureLowConfidence = "low_confidence"
	FailureAmbiguous    = "ambiguous"
)

const (
	defaultConfidentThreshold = 0.6
	defaultAmbiguousWindow    = 0.1
)

// Candidate is an alternative classification value with its confidence.
type Candidate struct {
	Value      string
	Confidence float64
}

// AxisResult is the outcome for a single classification axis: the chosen
// value, its confidence, the evidence that produced it, and any runner-up
// candidates considered along the way.
type AxisResult struct {
	Value          string
	HasValue       bool
	Confidence     float64
	Evidence       []Evidence
	Alternatives   []Candidate
	HasConflict    bool
	ConflictTarget string
}

// AddEvidence appends a piece of evidence to this result.
func (r *AxisResult) AddEvidence(e Evidence) {
	r.Evidence = append(r.Evidence, e)
}

// IsConfident reports whether the confidence meets the threshold. A zero
// threshold uses the default of 0.6.
func (r AxisResult) IsConfident(threshold float64) bool {
	if threshold == 0 {
		threshold = defaultConfidentThreshold
	}
	return r.Confidence >= threshold
}

// IsAmbiguous reports whether an alternative candidate sits within
// threshold of the top result's confidence. A zero threshold uses the
// default window of 0.1.
func (r AxisResult) IsAmbiguous(threshold float64) bool {
	if len(r.Alternatives) == 0 {
		return false
	}
	if threshold == 0 {
		threshold = defaultAmbiguousWindow
	}
	topAlt := r.Alternatives[0].Confidence
	for _, c := range r.Alternatives[1:] {
		if c.Confidence > topAlt {
			topAlt = c.Confidence
		}
	}
	return (r.Confidence - topAlt) < threshold
}

// FailureMode determines the failure mode, if any, applying the fixed
// precedence missing > conflict > low_confidence > ambiguous. Returns ""
// if the axis resolved cleanly.
func (r AxisResult) FailureMode() string {
	if !r.HasValue {
		return FailureMissing
	}
	if r.HasConflict {
		return FailureConflict
	}
	if !r.IsConfident(0) {
		return FailureLowConfidence
	}
	if r.IsAmbiguous(0) {
		return FailureAmbiguous
	}
	return ""
}

// CalculateConfidence computes the confidence for a target value from a
// list of evidence: the maximum evidence weight, boosted 0.05 per
// additional unique source type agreeing (capped at 0.99).
func CalculateConfidence(evidences []Evidence, target string) float64 {
	var relevant []Evidence
	for _, e := range evidences {
		if e.Target == target {
			relevant = append(relevant, e)
		}
	}
	if len(relevant) == 0 {
		return 0.0
	}

	maxWeight := relevant[0].Weight
	sourceTypes := map[Source]struct{}{relevant[0].Source: {}}
	for _, e := range relevant[1:] {
		if e.Weight > maxWeight {
			maxWeight = e.Weight
		}
		sourceTypes[e.Source] = struct{}{}
	}

	if len(sourceTypes) >= 2 {
		boost := 0.05 * float64(len(sourceTypes)-1)
		maxWeight += boost
		if maxWeight > 0.99 {
			maxWeight = 0.99
		}
	}
	return maxWeight
}

// SelectBestCandidate picks the best classification candidate from the
// collected evidence, returning its AxisResult with any runner-ups as
// Alternatives, sorted by descending confidence.
func SelectBestCandidate(evidences []Evidence, candidates []string) AxisResult {
	if len(evidences) == 0 {
		return AxisResult{}
	}

	type scored struct {
		value string
		conf  float64
	}
	var ranked []scored
	for _, c := range candidates {
		conf := CalculateConfidence(evidences, c)
		if conf > 0 {
			ranked = append(ranked, scored{c, conf})
		}
	}
	if len(ranked) == 0 {
		return AxisResult{Evidence: evidences}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].conf > ranked[j].conf })

	best := ranked[0]
	var alternatives []Candidate
	for _, s := range ranked[1:] {
		alternatives = append(alternatives, Candidate{Value: s.value, Confidence: s.conf})
	}

	var bestEvidence []Evidence
	for _, e := range evidences {
		if e.Target == best.value {
			bestEvidence = append(bestEvidence, e)
		}
	}

	return AxisResult{
		Value:        best.value,
		HasValue:     true,
		Confidence:   best.conf,
		Evidence:     bestEvidence,
		Alternatives: alternatives,
	}
}
