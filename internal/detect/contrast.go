package detect

import "github.com/codeninja55/go-radx/internal/evidence"

// ContrastDetector resolves the post_contrast three-state flag (spec §4.4
// Contrast agent): DICOM contrast fields populated wins outright; absent
// that, negative text keywords (multilingual: "utan gd", "pre-contrast",
// ...) override positive keywords; absent any signal, post_contrast is
// left unset (None/NULL).
type ContrastDetector struct {
	doc              *Document
	negativeKeywords []string
	positiveKeywords []string
}

func NewContrastDetector(doc *Document) *ContrastDetector {
	cd := &ContrastDetector{doc: doc}
	for _, c := range doc.Classes {
		switch c.ID {
		case "negative":
			cd.negativeKeywords = c.Keywords
		case "positive":
			cd.positiveKeywords = c.Keywords
		}
	}
	return cd
}

// PostContrast is the three-state result: nil means unresolved (None).
type PostContrast struct {
	Value    *bool
	Evidence evidence.Evidence
}

func (d *ContrastDetector) AxisName() string { return "contrast" }

// DetectPostContrast runs the two-tier resolution.
func (d *ContrastDetector) DetectPostContrast(ctx *Context) PostContrast {
	if ctx.ContrastBolusAgent != "" {
		v := true
		return PostContrast{Value: &v, Evidence: evidence.Evidence{
			Source: evidence.DICOMStructured, Field: "contrast_bolus_agent", Value: ctx.ContrastBolusAgent,
			Target: "post_contrast", Weight: evidence.Weights[evidence.DICOMStructured],
			Description: "ContrastBolusAgent populated",
		}}
	}

	for _, kw := range d.negativeKeywords {
		if ctx.HasKeyword(kw) {
			v := false
			return PostContrast{Value: &v, Evidence: evidence.Evidence{
				Source: evidence.TextSearch, Field: "text_search_blob", Value: kw,
				Target: "post_contrast", Weight: evidence.Weights[evidence.TextSearch],
				Description: "negative contrast keyword " + kw,
			}}
		}
	}
	for _, kw := range d.positiveKeywords {
		if ctx.HasKeyword(kw) {
			v := true
			return PostContrast{Value: &v, Evidence: evidence.Evidence{
				Source: evidence.TextSearch, Field: "text_search_blob", Value: kw,
				Target: "post_contrast", Weight: evidence.Weights[evidence.TextSearch],
				Description: "positive contrast keyword " + kw,
			}}
		}
	}
	return PostContrast{}
}

func (d *ContrastDetector) Detect(ctx *Context) (evidence.AxisResult, error) {
	pc := d.DetectPostContrast(ctx)
	if pc.Value == nil {
		return evidence.AxisResult{}, nil
	}
	value := "0"
	if *pc.Value {
		value = "1"
	}
	return evidence.AxisResult{Value: value, HasValue: true, Confidence: pc.Evidence.Weight, Evidence: []evidence.Evidence{pc.Evidence}}, nil
}

func (d *ContrastDetector) Explain(ctx *Context) string {
	pc := d.DetectPostContrast(ctx)
	if pc.Value == nil {
		return "contrast: unresolved"
	}
	if *pc.Value {
		return "contrast: post-contrast"
	}
	return "contrast: pre-contrast"
}
