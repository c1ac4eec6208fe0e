package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/config"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadExtractionConfig_AppliesDefaultsAndValidates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "extraction.yaml", `
cohort_id: 7
cohort_name: demo-cohort
raw_root: /data/raw
`)
	cfg, err := config.LoadExtractionConfig(path)
	require.NoError(t, err)
	require.Equal(t, int64(7), cfg.CohortID)
	require.Equal(t, config.ExtensionAll, cfg.ExtensionMode)
	require.Equal(t, config.DuplicateSkip, cfg.DuplicatePolicy)
	require.Equal(t, 4, cfg.MaxWorkers)
}

func TestLoadExtractionConfig_MissingRequiredFieldFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "extraction.yaml", `cohort_name: demo-cohort`)
	_, err := config.LoadExtractionConfig(path)
	require.Error(t, err)
}

func TestResolvedSubjectCodeSeed_FallsBackToCohortName(t *testing.T) {
	cfg := config.DefaultExtractionConfig()
	cfg.CohortName = "My Cohort"
	require.Equal(t, "MY COHORT", cfg.ResolvedSubjectCodeSeed())
}

func TestLoadSubjectCodeCSV_ParsesMapping(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "map.csv", "PatientID,subject_code\nPAT1,SUBJ-001\nPAT2,SUBJ-002\n")
	mapping, err := config.LoadSubjectCodeCSV(path, "PatientID", "subject_code")
	require.NoError(t, err)
	require.Equal(t, "SUBJ-001", mapping["PAT1"])
	require.Equal(t, "SUBJ-002", mapping["PAT2"])
}

func TestLoadSubjectCodeCSV_ConflictingMappingFails(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "map.csv", "PatientID,subject_code\nPAT1,SUBJ-001\nPAT1,SUBJ-002\n")
	_, err := config.LoadSubjectCodeCSV(path, "PatientID", "subject_code")
	require.Error(t, err)
}
