package branch

import "github.com/codeninja55/go-radx/internal/detect"

// SyMRI overrides base/construct for SyMRI-provenance stacks: synthetic
// quantitative maps and synthesized contrast-weighted images derived from
// a single multi-parametric acquisition.
type SyMRI struct{}

func (SyMRI) Name() string { return "SyMRI" }

func (SyMRI) Apply(ctx *detect.Context) Result {
	switch {
	case ctx.HasFlag("has_synthetic_t1"), ctx.HasKeyword("synthetic t1"):
		return Result{Base: "T1w", SkipBase: true, Construct: "SyntheticT1w", SkipConstruct: true,
			DirectoryType: "anat", Confidence: 0.90}
	case ctx.HasFlag("has_synthetic_t2"), ctx.HasKeyword("synthetic t2"):
		return Result{Base: "T2w", SkipBase: true, Construct: "SyntheticT2w", SkipConstruct: true,
			DirectoryType: "anat", Confidence: 0.90}
	case ctx.HasFlag("has_synthetic_flair"), ctx.HasKeyword("synthetic flair"):
		return Result{Base: "T2w", SkipBase: true, Construct: "SyntheticFLAIR", SkipConstruct: true,
			DirectoryType: "anat", Confidence: 0.90}
	case ctx.HasFlag("has_t1_map"), ctx.HasFlag("has_qmri"):
		return Result{Construct: "T1map", SkipConstruct: true, DirectoryType: "anat", Confidence: 0.85}
	case ctx.HasFlag("has_t2_map"):
		return Result{Construct: "T2map", SkipConstruct: true, DirectoryType: "anat", Confidence: 0.85}
	default:
		return Result{DirectoryType: "anat", Confidence: 0.60}
	}
}
