package classify

import (
	"sort"
	"strings"

	"github.com/codeninja55/go-radx/internal/branch"
	"github.com/codeninja55/go-radx/internal/detect"
	"github.com/codeninja55/go-radx/internal/evidence"
)

// Pipeline is the fixed 9-stage orchestration (spec §4.6), grounded on
// original_source/backend/src/classification/pipeline.py.
type Pipeline struct {
	reg *detect.Registry
}

// NewPipeline builds a classification pipeline from a loaded detector
// registry.
func NewPipeline(reg *detect.Registry) *Pipeline {
	return &Pipeline{reg: reg}
}

// Classify runs all 9 stages against one stack's context and returns the
// classification result. It never returns an error for a well-formed
// Context; callers (internal/sortpipe Step 3) are responsible for wrapping
// panics/exceptions from malformed input into the classification:error
// fallback per spec §4.11.
func (p *Pipeline) Classify(ctx *detect.Context) Result {
	var res Result

	// Stage 0: exclusion.
	if ctx.HasFlag("is_screenshot") || ctx.HasFlag("is_secondary_reformat") || ctx.HasFlag("is_error") {
		res.DirectoryType = "excluded"
		res.Finalize()
		return res
	}

	// Stage 1: provenance.
	provRes, _ := p.reg.Provenance.Detect(ctx)
	res.Provenance = provRes.Value
	ctx.Provenance = provRes.Value
	if provRes.FailureMode() != "" {
		res.AddReviewReason("provenance", provRes.FailureMode())
	}

	// Stage 2: technique (standard detector always runs; its conflict
	// flag is only finalized after stage 3 branch logic runs, per §4.6
	// stage 2 and §9 Open Question 1: branch wins).
	techRes, _ := p.reg.Technique.Detect(ctx)
	ctx.Technique = techRes.Value

	// Stage 3: branch.
	br := branch.Resolve(res.Provenance)
	branchResult := br.Apply(ctx)
	if branchResult.SkipTechnique {
		res.Technique = branchResult.Technique
		ctx.Technique = branchResult.Technique
		techRes.HasConflict = false // branch wins (§9 OQ1)
	} else {
		res.Technique = techRes.Value
		if techRes.FailureMode() != "" {
			res.AddReviewReason("technique", techRes.FailureMode())
		}
	}

	var baseRes evidence.AxisResult
	if branchResult.SkipBase {
		res.Base = branchResult.Base
	} else {
		baseRes, _ = p.reg.Base.Detect(ctx)
		res.Base = baseRes.Value
		if baseRes.FailureMode() != "" && baseRes.FailureMode() != "missing" {
			res.AddReviewReason("base", baseRes.FailureMode())
		}
	}

	confidences := map[string]evidence.AxisResult{
		"provenance": provRes,
		"technique":  techRes,
		"base":       baseRes,
	}
	if branchResult.SkipBase {
		confidences["base"] = evidence.AxisResult{HasValue: true, Confidence: branchResult.Confidence}
	}

	var constructRes evidence.AxisResult
	if branchResult.SkipConstruct {
		res.ConstructCSV = branchResult.Construct
		constructRes = evidence.AxisResult{HasValue: true, Confidence: branchResult.Confidence}
	} else {
		constructRes, _ = p.reg.Construct.Detect(ctx)
		res.ConstructCSV = constructRes.Value
	}
	confidences["construct"] = constructRes

	// Stage 4: modifier (always, additive, branch modifiers merged).
	modRes, _ := p.reg.Modifier.Detect(ctx)
	modValues := evidenceTargets(modRes.Evidence)
	modValues = mergeUnique(modValues, branchResult.Modifiers)
	res.ModifierCSV = joinSorted(modValues)
	confidences["modifier"] = modRes

	// Stage 5: acceleration (always).
	accelRes, _ := p.reg.Acceleration.Detect(ctx)
	res.AccelerationCSV = accelRes.Value

	// Stage 6: contrast.
	pc := p.reg.Contrast.DetectPostContrast(ctx)
	res.PostContrast = pc.Value
	contrastRes, _ := p.reg.Contrast.Detect(ctx)
	confidences["contrast"] = contrastRes

	// Stage 7: body part.
	bp := p.reg.BodyPart.DetectBodyPart(ctx)
	res.SpinalCord = bp.SpinalCord
	if bp.HasKeywordConflict {
		res.AddReviewReason("body_part", "conflict")
	} else if bp.FromHeuristic {
		res.AddReviewReason("body_part", "heuristic")
	}
	bodyPartRes, _ := p.reg.BodyPart.Detect(ctx)
	confidences["body_part"] = bodyPartRes

	// Stage 8: intent synthesis.
	res.DirectoryType = SynthesizeIntent(ctx, res, branchResult)
	if res.DirectoryType == "localizer" {
		res.Localizer = true
	}

	// Stage 9: review aggregation.
	p.aggregateReview(&res, confidences)

	res.Finalize()
	return res
}

// aggregateReview checks every tracked axis's confidence against the
// shared threshold (spec §4.6 stage 9), mirroring
// _aggregate_review_flags's loop over result._confidences.
func (p *Pipeline) aggregateReview(res *Result, confidences map[string]evidence.AxisResult) {
	const confidentThreshold = 0.60

	for _, axis := range []string{"provenance", "technique", "base", "construct", "modifier", "contrast", "body_part"} {
		if r, ok := confidences[axis]; ok && r.HasValue && r.Confidence < confidentThreshold {
			res.AddReviewReason(axis, "low_confidence")
		}
	}

	exemptBaseMissing := res.DirectoryType == "excluded" || res.DirectoryType == "localizer" ||
		res.DirectoryType == "func" || res.Base == "BOLD-EPI" || strings.Contains(res.Technique, "BOLD")

	if res.Base == "" && res.ConstructCSV == "" && !res.Localizer && !exemptBaseMissing {
		res.AddReviewReason("base", "missing")
	}
}

func evidenceTargets(evs []evidence.Evidence) []string {
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.Target)
	}
	return out
}

func joinSorted(values []string) string {
	if len(values) == 0 {
		return ""
	}
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

func mergeUnique(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, v := range append(append([]string{}, a...), b...) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
