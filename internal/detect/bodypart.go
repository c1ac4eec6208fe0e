package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// BodyPartDetector resolves spinal_cord (spec §4.4 Body part): text
// keywords resolve cleanly to spine (1) or brain (0); both matching is a
// conflict (unset + review); absent any keyword, a geometry heuristic
// (aspect ratio outside bounds, a "simple" technique, slice count below a
// ceiling) flags the stack for review without claiming a value. Heuristic
// thresholds are configuration (spec §9 Open Question 2), not constants.
type BodyPartDetector struct {
	doc              *Document
	spineKeywords    []string
	brainKeywords    []string
	aspectMin        float64
	aspectMax        float64
	maxSlices        int
	simpleTechniques map[string]struct{}
}

func NewBodyPartDetector(doc *Document) *BodyPartDetector {
	bd := &BodyPartDetector{doc: doc, simpleTechniques: map[string]struct{}{}}
	for _, c := range doc.Classes {
		switch c.ID {
		case "spine":
			bd.spineKeywords = c.Keywords
		case "brain":
			bd.brainKeywords = c.Keywords
		}
	}
	bd.aspectMin = physicsThreshold(doc, "aspect_ratio_min", 0.8)
	bd.aspectMax = physicsThreshold(doc, "aspect_ratio_max", 1.25)
	if ms, ok := doc.Rules.PhysicsThresholds["max_slices"]; ok {
		bd.maxSlices = int(ms)
	} else {
		bd.maxSlices = 80
	}
	for _, t := range doc.Rules.SimpleTechniques {
		bd.simpleTechniques[t] = struct{}{}
	}
	return bd
}

func (d *BodyPartDetector) AxisName() string { return "body_part" }

// BodyPartResult is the tri-state spinal_cord outcome plus whether it came
// from the geometry heuristic (for review-reason wording, spec §4.6
// stage 7).
type BodyPartResult struct {
	SpinalCord        *bool
	FromHeuristic      bool
	HasKeywordConflict bool
	Evidence           []evidence.Evidence
}

func (d *BodyPartDetector) DetectBodyPart(ctx *Context) BodyPartResult {
	spine := matchesAny(ctx, d.spineKeywords)
	brain := matchesAny(ctx, d.brainKeywords)

	switch {
	case spine != "" && brain != "":
		return BodyPartResult{HasKeywordConflict: true, Evidence: []evidence.Evidence{
			{Source: evidence.TextSearch, Field: "text_search_blob", Value: spine + "+" + brain,
				Target: "conflict", Weight: evidence.Weights[evidence.TextSearch],
				Description: "both spine and brain keywords present"},
		}}
	case spine != "":
		v := true
		return BodyPartResult{SpinalCord: &v, Evidence: []evidence.Evidence{
			{Source: evidence.TextSearch, Field: "text_search_blob", Value: spine, Target: "spine",
				Weight: evidence.Weights[evidence.TextSearch], Description: "spine keyword " + spine},
		}}
	case brain != "":
		v := false
		return BodyPartResult{SpinalCord: &v, Evidence: []evidence.Evidence{
			{Source: evidence.TextSearch, Field: "text_search_blob", Value: brain, Target: "brain",
				Weight: evidence.Weights[evidence.TextSearch], Description: "brain keyword " + brain},
		}}
	}

	// Geometry heuristic: no keyword signal at all, so flag for review
	// without claiming a value.
	_, simple := d.simpleTechniques[ctx.Technique]
	aspectOff := ctx.AspectRatio != 0 && (ctx.AspectRatio < d.aspectMin || ctx.AspectRatio > d.aspectMax)
	fewSlices := ctx.SliceCount > 0 && ctx.SliceCount < d.maxSlices
	if aspectOff && simple && fewSlices {
		return BodyPartResult{FromHeuristic: true, Evidence: []evidence.Evidence{
			{Source: evidence.GeometryHint, Field: "aspect_ratio", Value: "off-bounds",
				Target: "body_part_heuristic", Weight: evidence.Weights[evidence.GeometryHint],
				Description: "aspect ratio/simple technique/slice count flag for spine review"},
		}}
	}
	return BodyPartResult{}
}

func (d *BodyPartDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	res := d.DetectBodyPart(ctx)
	if res.SpinalCord == nil {
		return evidence.AxisResult{HasConflict: res.HasKeywordConflict, Evidence: res.Evidence}, nil
	}
	value := "0"
	if *res.SpinalCord {
		value = "1"
	}
	return evidence.AxisResult{Value: value, HasValue: true, Confidence: maxWeight(res.Evidence), Evidence: res.Evidence}, nil
}

func (d *BodyPartDetector) Explain(ctx *Context) string {
	res := d.DetectBodyPart(ctx)
	switch {
	case res.HasKeywordConflict:
		return "body_part: keyword conflict"
	case res.SpinalCord != nil && *res.SpinalCord:
		return "body_part: spine"
	case res.SpinalCord != nil:
		return "body_part: brain"
	case res.FromHeuristic:
		return "body_part: heuristic review flag"
	default:
		return "body_part: no signal"
	}
}

func physicsThreshold(doc *Document, name string, def float64) float64 {
	if v, ok := doc.Rules.PhysicsThresholds[name]; ok {
		return v
	}
	return def
}

func matchesAny(ctx *Context, keywords []string) string {
	for _, kw := range keywords {
		if ctx.HasKeyword(kw) {
			return kw
		}
	}
	return ""
}
