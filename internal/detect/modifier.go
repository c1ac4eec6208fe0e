package detect

import (
	"sort"

	"github.com/codeninja55/go-radx/internal/evidence"
)

// ModifierExclusionGroups are mutually exclusive modifier sets: only the
// highest-priority member of a group survives when more than one matches
// (spec §4.4 Modifier). Independent modifiers outside any group combine
// freely.
var ModifierExclusionGroups = [][]string{
	{"FLAIR", "STIR", "DIR", "PSIR", "IR"}, // IR_CONTRAST
	{"Radial", "Spiral"},                   // TRAJECTORY
}

// ModifierDetector is additive: every class whose tiers match contributes
// to the result, subject to exclusion-group pruning.
type ModifierDetector struct {
	doc *Document
}

func NewModifierDetector(doc *Document) *ModifierDetector {
	return &ModifierDetector{doc: doc}
}

func (d *ModifierDetector) AxisName() string { return "modifier" }

// DetectAll returns every matched modifier id (post exclusion-group
// pruning) with its supporting evidence, in priority order.
func (d *ModifierDetector) DetectAll(ctx *Context) []evidence.Evidence {
	var matches []ClassRule
	var evs []evidence.Evidence
	for _, c := range d.doc.Classes {
		if c.IsDefault {
			continue
		}
		if c.Detection.Exclusive != "" && ctx.HasFlag(c.Detection.Exclusive) {
			matches = append(matches, c)
			evs = append(evs, evidence.FromToken("flags", c.Detection.Exclusive, c.ID, c.Name+" exclusive flag"))
			continue
		}
		matchedKW := ""
		for _, kw := range c.Keywords {
			if ctx.HasKeyword(kw) {
				matchedKW = kw
				break
			}
		}
		if matchedKW != "" {
			matches = append(matches, c)
			evs = append(evs, evidence.Evidence{
				Source: evidence.TextSearch, Field: "text_search_blob", Value: matchedKW,
				Target: c.ID, Weight: evidence.Weights[evidence.TextSearch],
				Description: c.Name + " keyword " + matchedKW,
			})
			continue
		}
		if len(c.Detection.Combination) > 0 && ctx.HasAllFlags(c.Detection.Combination) {
			matches = append(matches, c)
			evs = append(evs, evidence.Evidence{
				Source: evidence.HighValueToken, Field: "flags", Value: "combination",
				Target: c.ID, Weight: 0.75, Description: c.Name + " combination of flags",
			})
		}
	}

	pruned := pruneExclusionGroups(matches)
	prunedIDs := make(map[string]struct{}, len(pruned))
	for _, c := range pruned {
		prunedIDs[c.ID] = struct{}{}
	}
	var out []evidence.Evidence
	for _, e := range evs {
		if _, ok := prunedIDs[e.Target]; ok {
			out = append(out, e)
		}
	}
	return out
}

func (d *ModifierDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	evs := d.DetectAll(ctx)
	if len(evs) == 0 {
		return evidence.AxisResult{}, nil
	}
	values := make([]string, 0, len(evs))
	for _, e := range evs {
		values = append(values, e.Target)
	}
	return evidence.AxisResult{
		Value: joinCSV(values), HasValue: true, Confidence: maxWeight(evs), Evidence: evs,
	}, nil
}

func (d *ModifierDetector) Explain(ctx *Context) string {
	res, _ := d.Detect(ctx)
	if !res.HasValue {
		return "modifier: no match"
	}
	return "modifier resolved to " + res.Value
}

func pruneExclusionGroups(matches []ClassRule) []ClassRule {
	inGroup := make(map[string]int) // id -> group index
	for gi, group := range ModifierExclusionGroups {
		for _, id := range group {
			inGroup[id] = gi
		}
	}
	bestInGroup := make(map[int]ClassRule)
	hasBest := make(map[int]bool)
	var out []ClassRule
	for _, c := range matches {
		gi, grouped := inGroup[c.Name]
		if !grouped {
			out = append(out, c)
			continue
		}
		if !hasBest[gi] || c.Priority < bestInGroup[gi].Priority {
			bestInGroup[gi] = c
			hasBest[gi] = true
		}
	}
	for _, c := range bestInGroup {
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

func joinCSV(values []string) string {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	out := ""
	for i, v := range sorted {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}

func maxWeight(evs []evidence.Evidence) float64 {
	max := 0.0
	for _, e := range evs {
		if e.Weight > max {
			max = e.Weight
		}
	}
	return max
}
