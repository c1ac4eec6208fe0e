package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// TechniqueDetector resolves the acquisition technique (spec §4.4
// Technique): a three-tier resolution (exclusive -> keyword ->
// combination) over classes grouped into four physics families {SE, GRE,
// EPI, MIXED}. After a winner is chosen, a family conflict is flagged when
// a competing family also had flag/keyword support but the winning family
// did not.
type TechniqueDetector struct {
	doc *Document
}

func NewTechniqueDetector(doc *Document) *TechniqueDetector {
	return &TechniqueDetector{doc: doc}
}

func (d *TechniqueDetector) AxisName() string { return "technique" }

func (d *TechniqueDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	class, ev, matched := resolveExclusiveOrKeywordOrCombination(ctx, d.doc.Classes)
	if !matched {
		return evidence.AxisResult{}, nil
	}

	res := evidence.AxisResult{
		Value: class.Name, HasValue: true, Confidence: ev.Weight,
		Evidence: []evidence.Evidence{ev},
	}

	competingFamilies := map[string]bool{}
	for _, c := range d.doc.Classes {
		if c.ID == class.ID || c.Family == class.Family || c.Family == "" {
			continue
		}
		if c.Detection.Exclusive != "" && ctx.HasFlag(c.Detection.Exclusive) {
			competingFamilies[c.Family] = true
			continue
		}
		for _, kw := range c.Keywords {
			if ctx.HasKeyword(kw) {
				competingFamilies[c.Family] = true
				break
			}
		}
	}
	winningFamilyHasSupport := class.Detection.Exclusive != "" && ctx.HasFlag(class.Detection.Exclusive)
	if !winningFamilyHasSupport {
		for _, kw := range class.Keywords {
			if ctx.HasKeyword(kw) {
				winningFamilyHasSupport = true
				break
			}
		}
	}
	if !winningFamilyHasSupport && len(competingFamilies) > 0 {
		res.HasConflict = true
		res.ConflictTarget = class.Family
	}

	return res, nil
}

func (d *TechniqueDetector) Explain(ctx *Context) string {
	res, _ := d.Detect(ctx)
	if !res.HasValue {
		return "technique: no match"
	}
	return "technique resolved to " + res.Value
}

// Family returns the physics family for a technique id, "" if unknown.
func (d *TechniqueDetector) Family(techniqueID string) string {
	c, ok := d.doc.ByID(techniqueID)
	if !ok {
		return ""
	}
	return c.Family
}
