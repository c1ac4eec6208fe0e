package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// Detector is the shared operation set every axis detector implements
// (spec §9 "Dynamic dispatch"): a tagged-variant dispatch over a small
// interface rather than a class hierarchy or reflection.
type Detector interface {
	AxisName() string
	Detect(ctx *Context) (evidence.AxisResult, error)
	Explain(ctx *Context) string
}

// resolveExclusiveOrKeywordOrCombination runs the shared three-tier
// resolution order (spec §4.4) per candidate, already ordered by
// priority: for each class in turn, try its exclusive-flag tier, then its
// keyword tier, then its combination tier, before moving to the next
// class. This matches "first match wins" over candidates, not over
// tiers. Detectors needing the physics-range or family-fallback tiers
// layer them on top of this after calling it.
func resolveExclusiveOrKeywordOrCombination(ctx *Context, classes []ClassRule) (ClassRule, evidence.Evidence, bool) {
	for _, c := range classes {
		if c.IsDefault {
			continue
		}
		if c.Detection.Exclusive != "" && ctx.HasFlag(c.Detection.Exclusive) {
			return c, evidence.FromToken("flags", c.Detection.Exclusive, c.ID,
				c.Name+" exclusive flag "+c.Detection.Exclusive), true
		}
		for _, kw := range c.Keywords {
			if ctx.HasKeyword(kw) {
				return c, evidence.Evidence{
					Source: evidence.TextSearch, Field: "text_search_blob", Value: kw,
					Target: c.ID, Weight: evidence.Weights[evidence.TextSearch],
					Description: c.Name + " keyword " + kw,
				}, true
			}
		}
		if len(c.Detection.Combination) > 0 && ctx.HasAllFlags(c.Detection.Combination) {
			return c, evidence.Evidence{
				Source: evidence.HighValueToken, Field: "flags", Value: "combination",
				Target: c.ID, Weight: 0.75,
				Description: c.Name + " combination of flags",
			}, true
		}
	}
	return ClassRule{}, evidence.Evidence{}, false
}

func defaultClass(classes []ClassRule) (ClassRule, bool) {
	for _, c := range classes {
		if c.IsDefault {
			return c, true
		}
	}
	return ClassRule{}, false
}
