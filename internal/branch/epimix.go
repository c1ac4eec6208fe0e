package branch

import "github.com/codeninja55/go-radx/internal/detect"

// EPIMix overrides base/technique/modifier for EPIMix-provenance stacks
// (spec §8 scenario (d)): a single-shot EPI acquisition reconstructed into
// several contrast-weighted series from one scan.
type EPIMix struct{}

func (EPIMix) Name() string { return "EPIMix" }

func (e EPIMix) Apply(ctx *detect.Context) Result {
	switch {
	case ctx.HasFlag("has_t1") && ctx.HasFlag("has_flair"), ctx.HasKeyword("t1") && ctx.HasKeyword("flair"):
		return Result{
			Base: "T1w", SkipBase: true,
			Technique: "SE-EPI", SkipTechnique: true,
			Modifiers: []string{"FLAIR"}, DirectoryType: "anat", Confidence: 0.90,
		}
	case ctx.HasFlag("has_t2") && ctx.HasFlag("has_flair"), ctx.HasKeyword("t2") && ctx.HasKeyword("flair"):
		return Result{
			Base: "T2w", SkipBase: true,
			Technique: "SE-EPI", SkipTechnique: true,
			Modifiers: []string{"FLAIR"}, DirectoryType: "anat", Confidence: 0.90,
		}
	case ctx.HasFlag("has_adc"), ctx.HasKeyword("adc"):
		return Result{
			Base: "DWI", SkipBase: true,
			Technique: "DWI-EPI", SkipTechnique: true,
			DirectoryType: "dwi", Confidence: 0.90,
		}
	case ctx.HasFlag("has_t2") || ctx.HasKeyword("t2"):
		return Result{
			Base: "T2w", SkipBase: true,
			Technique: "SE-EPI", SkipTechnique: true,
			DirectoryType: "anat", Confidence: 0.85,
		}
	default:
		return Result{
			Technique: "SE-EPI", SkipTechnique: true,
			DirectoryType: "anat", Confidence: 0.60,
		}
	}
}
