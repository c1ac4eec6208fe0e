package branch

import "github.com/codeninja55/go-radx/internal/detect"

// SWI overrides base/construct/technique for SWIRecon-provenance stacks
// (spec §8 scenario (c)): the reconstructed magnitude/phase/MinIP outputs
// are always SWI base, GRE technique; the construct distinguishes which
// SWI-family output this stack holds.
type SWI struct{}

func (SWI) Name() string { return "SWIRecon" }

func (SWI) Apply(ctx *detect.Context) Result {
	construct := "SWI"
	switch {
	case ctx.HasFlag("is_minip"):
		construct = "MinIP"
	case ctx.HasFlag("is_phase"):
		construct = "Phase"
	case ctx.HasFlag("is_magnitude"):
		construct = "Magnitude"
	case ctx.HasFlag("has_qsm"):
		construct = "QSM"
	}
	return Result{
		Base: "SWI", SkipBase: true,
		Construct: construct, SkipConstruct: true,
		Technique: "GRE", SkipTechnique: true,
		DirectoryType: "anat",
		Confidence:    0.95,
	}
}
