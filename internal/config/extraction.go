package config

import "strings"

// ExtensionMode selects which file extensions the directory walker accepts
// (spec §6 "Filesystem").
type ExtensionMode string

const (
	ExtensionDCM      ExtensionMode = "dcm"
	ExtensionDCMUpper ExtensionMode = "DCM"
	ExtensionAllDCM   ExtensionMode = "all_dcm"
	ExtensionNoExt    ExtensionMode = "no_ext"
	ExtensionAll      ExtensionMode = "all"
)

// DuplicatePolicy controls how the bulk writer's instance insert handles an
// existing SOPInstanceUID (spec §4.8 "Duplicate policy").
type DuplicatePolicy string

const (
	DuplicateSkip         DuplicatePolicy = "skip"
	DuplicateOverwrite    DuplicatePolicy = "overwrite"
	DuplicateAppendSeries DuplicatePolicy = "append_series"
)

// ExtractionConfig drives the parallel extraction engine (spec §4.7, §6
// "Config"), grounded on original_source/backend/src/extract/config.py.
type ExtractionConfig struct {
	CohortID   int64  `yaml:"cohort_id" validate:"required"`
	CohortName string `yaml:"cohort_name" validate:"required"`
	RawRoot    string `yaml:"raw_root" validate:"required"`

	MaxWorkers            int             `yaml:"max_workers" validate:"gte=1,lte=128"`
	BatchSize             int             `yaml:"batch_size" validate:"gte=10,lte=5000"`
	QueueSize             int             `yaml:"queue_size" validate:"gte=1,lte=500"`
	ExtensionMode         ExtensionMode   `yaml:"extension_mode" validate:"oneof=dcm DCM all_dcm no_ext all"`
	DuplicatePolicy       DuplicatePolicy `yaml:"duplicate_policy" validate:"oneof=skip overwrite append_series"`
	Resume                bool            `yaml:"resume"`
	ResumeByPath          bool            `yaml:"resume_by_path"`
	SeriesWorkersPerSubj  int             `yaml:"series_workers_per_subject" validate:"gte=1,lte=16"`
	AdaptiveBatching      bool            `yaml:"adaptive_batching_enabled"`
	TargetTxMillis        int             `yaml:"target_tx_ms" validate:"gte=50,lte=2000"`
	MinBatchSize          int             `yaml:"min_batch_size" validate:"gte=10,lte=10000"`
	MaxBatchSize          int             `yaml:"max_batch_size" validate:"gte=50,lte=20000"`
	UseSpecificTags       bool            `yaml:"use_specific_tags"`
	DBWriterPoolSize      int             `yaml:"db_writer_pool_size" validate:"gte=1,lte=16"`
	SubjectIDTypeID       *int64          `yaml:"subject_id_type_id"`
	SubjectCodeMap        map[string]string `yaml:"-"`
	SubjectCodeSeed       string          `yaml:"subject_code_seed"`
	SubjectCodeMapName    string          `yaml:"subject_code_map_name"`
}

// DefaultExtractionConfig returns an ExtractionConfig with the same
// defaults as the Python dataclass it is grounded on.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		MaxWorkers:           4,
		BatchSize:            100,
		QueueSize:            10,
		ExtensionMode:        ExtensionAll,
		DuplicatePolicy:      DuplicateSkip,
		Resume:               true,
		ResumeByPath:         false,
		SeriesWorkersPerSubj: 1,
		AdaptiveBatching:     false,
		TargetTxMillis:       200,
		MinBatchSize:         50,
		MaxBatchSize:         1000,
		UseSpecificTags:      true,
		DBWriterPoolSize:     1,
	}
}

// ResolvedSubjectCodeSeed returns the non-empty, upper-cased seed used to
// key the subject-code BLAKE2b hash, falling back to the cohort name and
// finally a fixed default.
func (c ExtractionConfig) ResolvedSubjectCodeSeed() string {
	base := c.SubjectCodeSeed
	if base == "" {
		base = c.CohortName
	}
	if base == "" {
		base = "default-seed"
	}
	return strings.ToUpper(base)
}
