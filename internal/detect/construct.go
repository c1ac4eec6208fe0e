package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// ConstructDetector is additive (spec §4.4 Construct): every derived
// artifact class whose exclusive flag, keyword, or flag combination
// matches contributes, with no exclusion groups (unlike modifiers).
type ConstructDetector struct {
	doc *Document
}

func NewConstructDetector(doc *Document) *ConstructDetector {
	return &ConstructDetector{doc: doc}
}

func (d *ConstructDetector) AxisName() string { return "construct" }

// DetectAll returns every matched construct id with its evidence.
func (d *ConstructDetector) DetectAll(ctx *Context) []evidence.Evidence {
	var evs []evidence.Evidence
	for _, c := range d.doc.Classes {
		if c.IsDefault {
			continue
		}
		if c.Detection.Exclusive != "" && ctx.HasFlag(c.Detection.Exclusive) {
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
			evs = append(evs, evidence.Evidence{
				Source: evidence.TextSearch, Field: "text_search_blob", Value: matchedKW,
				Target: c.ID, Weight: evidence.Weights[evidence.TextSearch],
				Description: c.Name + " keyword " + matchedKW,
			})
			continue
		}
		if len(c.Detection.Combination) > 0 && ctx.HasAllFlags(c.Detection.Combination) {
			evs = append(evs, evidence.Evidence{
				Source: evidence.HighValueToken, Field: "flags", Value: "combination",
				Target: c.ID, Weight: 0.75, Description: c.Name + " combination of flags",
			})
		}
	}
	return evs
}

func (d *ConstructDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	evs := d.DetectAll(ctx)
	if len(evs) == 0 {
		return evidence.AxisResult{}, nil
	}
	values := make([]string, 0, len(evs))
	for _, e := range evs {
		name := e.Target
		if c, ok := d.doc.ByID(e.Target); ok {
			name = c.Name
		}
		values = append(values, name)
	}
	return evidence.AxisResult{Value: joinCSV(values), HasValue: true, Confidence: maxWeight(evs), Evidence: evs}, nil
}

func (d *ConstructDetector) Explain(ctx *Context) string {
	res, _ := d.Detect(ctx)
	if !res.HasValue {
		return "construct: no match"
	}
	return "construct resolved to " + res.Value
}
