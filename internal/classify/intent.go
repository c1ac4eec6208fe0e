package classify

import (
	"strings"

	"github.com/codeninja55/go-radx/internal/branch"
	"github.com/codeninja55/go-radx/internal/detect"
)

// SynthesizeIntent maps (provenance, constructs, base, modifiers, text) to
// one of {anat, dwi, func, fmap, perf, localizer, misc, excluded} via the
// fixed priority ladder (spec §4.6 stage 8): provenance-driven localizer
// short-circuit, branch directory_type override, diffusion/perfusion/fmap
// construct families, functional keywords gated on an EPI-family
// technique, base+modifier anatomical check gated on absence of perfusion
// modifiers, SWI/projection/quantitative/synthetic/Dixon construct
// fallbacks, provenance-name fallback, default misc.
func SynthesizeIntent(ctx *detect.Context, res Result, br branch.Result) string {
	if res.Provenance == "localizer" {
		return "localizer"
	}
	if br.DirectoryType != "" {
		return br.DirectoryType
	}

	constructs := strings.Split(res.ConstructCSV, ",")
	hasConstruct := func(names ...string) bool {
		for _, c := range constructs {
			for _, n := range names {
				if c == n {
					return true
				}
			}
		}
		return false
	}

	if hasConstruct("ADC", "FA", "Trace") {
		return "dwi"
	}
	if hasConstruct("CBF", "CBV") {
		return "perf"
	}
	if hasConstruct("FieldMap", "B0Map") {
		return "fmap"
	}

	isEPIFamily := strings.Contains(res.Technique, "EPI")
	if isEPIFamily && (ctx.HasKeyword("bold") || ctx.HasKeyword("fmri") || ctx.HasKeyword("resting state")) {
		return "func"
	}
	if res.Provenance == "bold_recon" {
		return "func"
	}

	hasPerfusionModifier := hasConstruct("CBF", "CBV", "MTT", "TTP")
	if !hasPerfusionModifier && (res.Base == "T1w" || res.Base == "T2w" || res.Base == "PDw") {
		return "anat"
	}
	if res.Base == "DWI" {
		return "dwi"
	}

	if hasConstruct("MinIP", "MIP") && res.Base == "SWI" {
		return "anat"
	}
	if hasConstruct("Phase", "Magnitude", "QSM") {
		return "anat"
	}
	if hasConstruct("T1map", "T2map") {
		return "anat"
	}
	if hasConstruct("SyntheticT1w", "SyntheticT2w", "SyntheticFLAIR") {
		return "anat"
	}
	if hasConstruct("Water", "Fat", "InPhase", "OutPhase") {
		return "anat"
	}

	switch res.Provenance {
	case "dti_recon":
		return "dwi"
	case "perfusion_recon", "asl_recon":
		return "perf"
	case "bold_recon":
		return "func"
	}

	return "misc"
}
