package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// BaseDetector resolves base contrast (spec §4.4 Base contrast): a
// four-tier resolution — technique inference, exclusive flag, keyword,
// physics — plus the two special cases called out in the spec: FLAIR
// disambiguated into T1w/T2w by TE (text preferred over TE), and dual-echo
// PD+T2 split by TE.
type BaseDetector struct {
	doc *Document
}

func NewBaseDetector(doc *Document) *BaseDetector {
	return &BaseDetector{doc: doc}
}

func (d *BaseDetector) AxisName() string { return "base" }

func (d *BaseDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	// Tier 1: technique inference.
	if ctx.Technique != "" {
		if impl, ok := d.doc.Rules.TechniqueImpliesBase[ctx.Technique]; ok {
			ev := evidence.FromTechnique(ctx.Technique, impl.Base, impl.Weight)
			return evidence.AxisResult{Value: impl.Base, HasValue: true, Confidence: ev.Weight, Evidence: []evidence.Evidence{ev}}, nil
		}
	}

	// Special case: dual-echo PD+T2, text mentions both and TE present.
	if ctx.HasKeyword("proton density") && ctx.HasKeyword("t2") && ctx.TE != nil {
		dualEchoTE := d.doc.Rules.PhysicsThresholds["dual_echo_te_max"]
		if dualEchoTE == 0 {
			dualEchoTE = 60
		}
		value := "T2w"
		if *ctx.TE < dualEchoTE {
			value = "PDw"
		}
		ev := evidence.Evidence{
			Source: evidence.TextSearch, Field: "mr_te", Value: "dual_echo_te",
			Target: value, Weight: 0.85, Description: "dual-echo PD/T2 series split by TE",
		}
		return evidence.AxisResult{Value: value, HasValue: true, Confidence: ev.Weight, Evidence: []evidence.Evidence{ev}}, nil
	}

	// Special case: FLAIR disambiguation. Text wins over TE when both a
	// t1 and t2 text token are present; otherwise fall back to TE
	// threshold.
	if ctx.HasKeyword("flair") {
		flairTE := d.doc.Rules.PhysicsThresholds["flair_te_threshold"]
		if flairTE == 0 {
			flairTE = 40
		}
		switch {
		case ctx.HasKeyword("t1") && !ctx.HasKeyword("t2"):
			ev := evidence.Evidence{Source: evidence.TextSearch, Field: "text_search_blob", Value: "t1",
				Target: "T1w", Weight: evidence.Weights[evidence.TextSearch], Description: "FLAIR disambiguated T1w by text"}
			return evidence.AxisResult{Value: "T1w", HasValue: true, Confidence: ev.Weight, Evidence: []evidence.Evidence{ev}}, nil
		case ctx.HasKeyword("t2") && !ctx.HasKeyword("t1"):
			ev := evidence.Evidence{Source: evidence.TextSearch, Field: "text_search_blob", Value: "t2",
				Target: "T2w", Weight: evidence.Weights[evidence.TextSearch], Description: "FLAIR disambiguated T2w by text"}
			return evidence.AxisResult{Value: "T2w", HasValue: true, Confidence: ev.Weight, Evidence: []evidence.Evidence{ev}}, nil
		case ctx.TE != nil:
			value := "T2w"
			if *ctx.TE < flairTE {
				value = "T1w"
			}
			ev := evidence.Evidence{Source: evidence.PhysicsDistinct, Field: "mr_te", Value: "flair_te",
				Target: value, Weight: evidence.Weights[evidence.PhysicsDistinct], Description: "FLAIR disambiguated by TE threshold"}
			return evidence.AxisResult{Value: value, HasValue: true, Confidence: ev.Weight, Evidence: []evidence.Evidence{ev}}, nil
		}
	}

	// Tiers 2-3: exclusive flag, then keyword.
	class, ev, matched := resolveExclusiveOrKeywordOrCombination(ctx, d.doc.Classes)
	if matched {
		return evidence.AxisResult{Value: class.Name, HasValue: true, Confidence: ev.Weight, Evidence: []evidence.Evidence{ev}}, nil
	}

	// Tier 4: physics range fallback is detector-specific per base class;
	// none of the base classes in this rule set carry a physics-only
	// fallback beyond FLAIR/dual-echo, which are handled above.
	return evidence.AxisResult{}, nil
}

func (d *BaseDetector) Explain(ctx *Context) string {
	res, _ := d.Detect(ctx)
	if !res.HasValue {
		return "base: no match"
	}
	return "base resolved to " + res.Value
}
