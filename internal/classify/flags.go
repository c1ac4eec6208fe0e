package classify

import "strings"

// flagKeywords maps each high-value token flag the detection YAMLs read
// (spec §4.4, the alternative_flags/combination lists) to the search-blob
// keywords that set it. original_source/backend/src/classification/
// core/context.py's from_fingerprint()/unified_flags property parsed
// these from raw DICOM fields directly, but only its docstring and
// imports survived in the retrieval pack; this table is rebuilt from the
// flag vocabulary the detection YAMLs themselves reference, not
// transcribed (see DESIGN.md Open Question resolutions).
var flagKeywords = map[string][]string{
	"has_swi":           {"swi", "susceptibility weighted"},
	"has_swi_map":       {"swi map", "mip swi"},
	"has_adc":           {"adc"},
	"has_tensor":        {"tensor", "fa map", "dti"},
	"has_diffusion":     {"diffusion", "dwi", "dti"},
	"has_multi_bvalue":  {"multi b", "multi-b", "trace"},
	"has_symri_map":     {"symri", "synthetic mr"},
	"has_qmri":          {"qmri", "quantitative mr", "relaxometry"},
	"has_cbf_map":       {"cbf"},
	"has_cbv_map":       {"cbv"},
	"has_pcasl":         {"pcasl"},
	"has_pasl":          {"pasl"},
	"has_fmri":          {"fmri", "bold", "resting state"},
	"has_bold":          {"bold"},
	"has_epimix_series": {"epimix"},
	"has_epi":           {"epi"},
	"has_se":            {"spin echo", " se "},
	"has_gre":           {"gre", "gradient echo"},
	"is_mip":            {"mip"},
	"is_minip":          {"minip"},
	"is_scout":          {"scout", "localizer", "localiser"},
	"is_screenshot":     {"screen save", "screenshot", "secondary capture"},
	"is_secondary_reformat": {"secondary reformat", "reformatted"},
	"is_error":          {"error", "rejected"},
}

// DeriveFlags scans a normalized search blob for every keyword in
// flagKeywords and returns the set of flags that matched. searchBlob is
// expected to already be space-tokenized by internal/normalize, so
// substring containment suffices (the blob has no punctuation to produce
// false partial-word matches for the multi-word phrases here).
func DeriveFlags(searchBlob string) map[string]bool {
	flags := make(map[string]bool, len(flagKeywords))
	for flag, keywords := range flagKeywords {
		for _, kw := range keywords {
			if strings.Contains(searchBlob, kw) {
				flags[flag] = true
				break
			}
		}
	}
	return flags
}
