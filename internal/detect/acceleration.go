package detect

import (
	"regexp"
	"sync"

	"github.com/codeninja55/go-radx/internal/evidence"
)

// AccelerationDetector is additive (spec §4.4 Acceleration): 5 methods
// matched with bounded-word-boundary regex patterns so short acronyms
// (e.g. "arc") don't false-positive inside longer words ("search").
// Every keyword is quoted and compiled as `\b<keyword>\b` and matched
// against the text search blob.
type AccelerationDetector struct {
	doc      *Document
	mu       sync.Mutex
	compiled map[string]*regexp.Regexp
}

func NewAccelerationDetector(doc *Document) *AccelerationDetector {
	return &AccelerationDetector{doc: doc, compiled: map[string]*regexp.Regexp{}}
}

func (d *AccelerationDetector) AxisName() string { return "acceleration" }

func (d *AccelerationDetector) pattern(keyword string) *regexp.Regexp {
	d.mu.Lock()
	defer d.mu.Unlock()
	if re, ok := d.compiled[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	d.compiled[keyword] = re
	return re
}

func (d *AccelerationDetector) matchesKeyword(ctx *Context, keyword string) bool {
	return d.pattern(keyword).MatchString(ctx.TextSearchBlob)
}

func (d *AccelerationDetector) DetectAll(ctx *Context) []evidence.Evidence {
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
			if d.matchesKeyword(ctx, kw) {
				matchedKW = kw
				break
			}
		}
		if matchedKW != "" {
			evs = append(evs, evidence.Evidence{
				Source: evidence.TextSearch, Field: "text_search_blob", Value: matchedKW,
				Target: c.ID, Weight: evidence.Weights[evidence.TextSearch],
				Description: c.Name + " bounded keyword " + matchedKW,
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

func (d *AccelerationDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	evs := d.DetectAll(ctx)
	if len(evs) == 0 {
		return evidence.AxisResult{}, nil
	}
	values := make([]string, 0, len(evs))
	for _, e := range evs {
		values = append(values, e.Target)
	}
	return evidence.AxisResult{Value: joinCSV(values), HasValue: true, Confidence: maxWeight(evs), Evidence: evs}, nil
}

func (d *AccelerationDetector) Explain(ctx *Context) string {
	res, _ := d.Detect(ctx)
	if !res.HasValue {
		return "acceleration: no match"
	}
	return "acceleration resolved to " + res.Value
}
