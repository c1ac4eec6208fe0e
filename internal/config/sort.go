package config

// SortConfig drives the four-step sorting pipeline (spec §4.9-§4.12,
// §6 "Config").
type SortConfig struct {
	CohortID           int64    `yaml:"cohort_id" validate:"required"`
	SkipClassified     bool     `yaml:"skip_classified"`
	ForceReprocess     bool     `yaml:"force_reprocess"`
	Profile            bool     `yaml:"profile"`
	SelectedModalities []string `yaml:"selected_modalities"`
}

// DefaultSortConfig mirrors the conservative defaults implied by spec §4.9:
// skip already-classified series, no forced reprocessing, no profiling.
func DefaultSortConfig() SortConfig {
	return SortConfig{
		SkipClassified:     true,
		ForceReprocess:     false,
		Profile:            false,
		SelectedModalities: []string{"MR", "CT", "PT"},
	}
}
