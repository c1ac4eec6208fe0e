// Package config defines and loads the GlobalConfig/ExtractionConfig/
// SortConfig trees that drive both CLI entrypoints (spec §6 "Config"),
// grounded on original_source/backend/src/extract/config.py and the
// teacher's cmd/radx/internal/config package layout.
package config

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadExtractionConfig reads and validates an ExtractionConfig from a YAML
// file, starting from DefaultExtractionConfig so unset fields keep their
// defaults.
func LoadExtractionConfig(path string) (ExtractionConfig, error) {
	cfg := DefaultExtractionConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read extraction config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse extraction config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: validate extraction config: %w", err)
	}
	return cfg, nil
}

// LoadSortConfig reads and validates a SortConfig from a YAML file.
func LoadSortConfig(path string) (SortConfig, error) {
	cfg := DefaultSortConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read sort config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse sort config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config: validate sort config: %w", err)
	}
	return cfg, nil
}

// LoadSubjectCodeCSV parses a two-column CSV mapping PatientID to an
// override subject_code, grounded on
// original_source/backend/src/extract/subject_mapping.py's
// load_subject_code_csv.
func LoadSubjectCodeCSV(path, patientColumn, subjectColumn string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open subject code csv: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("config: read subject code csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("config: subject code csv is missing a header row")
	}

	header := records[0]
	patientIdx, subjectIdx := -1, -1
	for i, col := range header {
		switch col {
		case patientColumn:
			patientIdx = i
		case subjectColumn:
			subjectIdx = i
		}
	}
	if patientIdx == -1 {
		return nil, fmt.Errorf("config: subject code csv missing patient column %q", patientColumn)
	}
	if subjectIdx == -1 {
		return nil, fmt.Errorf("config: subject code csv missing subject code column %q", subjectColumn)
	}

	mapping := make(map[string]string, len(records)-1)
	for _, row := range records[1:] {
		if patientIdx >= len(row) || subjectIdx >= len(row) {
			continue
		}
		patientValue := row[patientIdx]
		subjectValue := row[subjectIdx]
		if patientValue == "" && subjectValue == "" {
			continue
		}
		if patientValue == "" {
			return nil, fmt.Errorf("config: subject code csv row missing PatientID")
		}
		if subjectValue == "" {
			return nil, fmt.Errorf("config: subject code csv row for PatientID %q missing subject_code", patientValue)
		}
		if existing, ok := mapping[patientValue]; ok && existing != subjectValue {
			return nil, fmt.Errorf("config: subject code csv has conflicting subject_code values for PatientID %q", patientValue)
		}
		mapping[patientValue] = subjectValue
	}
	return mapping, nil
}
