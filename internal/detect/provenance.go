package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// ProvenanceDetector resolves which processing pipeline produced a stack
// (spec §4.4 Provenance), grounded on
// original_source/backend/src/classification/detectors/provenance.py. Per
// candidate (tried in rules.priority_order), the tier order is
// exclusive-flag -> alternative-flags (OR) -> keyword -> combination (AND);
// the first candidate producing any tier match wins outright with no
// cross-candidate scoring.
type ProvenanceDetector struct {
	doc *Document
}

// NewProvenanceDetector builds a detector from a parsed provenance-detection
// rule document.
func NewProvenanceDetector(doc *Document) *ProvenanceDetector {
	return &ProvenanceDetector{doc: doc}
}

func (d *ProvenanceDetector) AxisName() string { return "provenance" }

func (d *ProvenanceDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	for _, c := range d.doc.Rules.PriorityOrder {
		class, ok := d.doc.ByID(c)
		if !ok || class.IsDefault {
			continue
		}
		if ev, matched := d.evaluateCandidate(ctx, class); matched {
			return evidence.AxisResult{
				Value: class.ID, HasValue: true, Confidence: ev.Weight,
				Evidence: []evidence.Evidence{ev},
			}, nil
		}
	}

	def, ok := defaultClass(d.doc.Classes)
	if !ok {
		return evidence.AxisResult{}, nil
	}
	defaultWeight := d.doc.Threshold("default", 0.5)
	ev := evidence.Evidence{
		Source: evidence.TextSearch, Field: "provenance", Value: "no_specific_match",
		Target: def.ID, Weight: defaultWeight, Description: "no provenance candidate matched; default to " + def.Name,
	}
	return evidence.AxisResult{
		Value: def.ID, HasValue: true, Confidence: defaultWeight,
		Evidence: []evidence.Evidence{ev},
	}, nil
}

// evaluateCandidate runs the four-tier resolution order for a single
// provenance candidate.
func (d *ProvenanceDetector) evaluateCandidate(ctx *Context, class ClassRule) (evidence.Evidence, bool) {
	if class.Detection.Exclusive != "" && ctx.HasFlag(class.Detection.Exclusive) {
		return evidence.FromToken("flags", class.Detection.Exclusive, class.ID,
			class.Name+" exclusive flag"), true
	}
	if len(class.Detection.AlternativeFlags) > 0 && ctx.HasAnyFlag(class.Detection.AlternativeFlags) {
		return evidence.Evidence{
			Source: evidence.HighValueToken, Field: "flags", Value: "alternative_flags",
			Target: class.ID, Weight: evidence.Weights[evidence.HighValueToken],
			Description: class.Name + " alternative flag match",
		}, true
	}
	for _, kw := range class.Keywords {
		if ctx.HasKeyword(kw) {
			return evidence.Evidence{
				Source: evidence.TextSearch, Field: "text_search_blob", Value: kw,
				Target: class.ID, Weight: evidence.Weights[evidence.TextSearch],
				Description: class.Name + " keyword " + kw,
			}, true
		}
	}
	if len(class.Detection.Combination) > 0 && ctx.HasAllFlags(class.Detection.Combination) {
		return evidence.Evidence{
			Source: evidence.HighValueToken, Field: "flags", Value: "combination",
			Target: class.ID, Weight: 0.75, Description: class.Name + " combination of flags",
		}, true
	}
	return evidence.Evidence{}, false
}

func (d *ProvenanceDetector) Explain(ctx *Context) string {
	res, _ := d.Detect(ctx)
	if !res.HasValue {
		return "provenance: no match"
	}
	return "provenance resolved to " + res.Value
}
