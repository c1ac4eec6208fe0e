package classify_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/classify"
	"github.com/codeninja55/go-radx/internal/detect"
)

func newPipeline(t *testing.T) *classify.Pipeline {
	t.Helper()
	reg, err := detect.LoadDefaultRegistry()
	require.NoError(t, err)
	return classify.NewPipeline(reg)
}

// Scenario (a): MPRAGE anatomical, spec §8.
func TestClassify_MPRAGEAnatomical(t *testing.T) {
	p := newPipeline(t)
	res := p.Classify(&detect.Context{Flags: map[string]bool{"has_mprage": true}})
	require.Equal(t, "T1w", res.Base)
	require.Equal(t, "anat", res.DirectoryType)
	require.False(t, res.ManualReviewRequired)
}

// Scenario (c): SWI MinIP, spec §8.
func TestClassify_SWIMinIP(t *testing.T) {
	p := newPipeline(t)
	res := p.Classify(&detect.Context{Flags: map[string]bool{"has_swi": true, "is_minip": true}})
	require.Equal(t, "SWI", res.Base)
	require.Equal(t, "MinIP", res.ConstructCSV)
	require.Equal(t, "GRE", res.Technique)
	require.Equal(t, "anat", res.DirectoryType)
}

// Scenario (d): EPIMix T1-FLAIR, spec §8.
func TestClassify_EPIMixT1FLAIR(t *testing.T) {
	p := newPipeline(t)
	res := p.Classify(&detect.Context{Flags: map[string]bool{"has_epimix": true}, TextSearchBlob: "t1 flair"})
	require.Equal(t, "T1w", res.Base)
	require.Equal(t, "SE-EPI", res.Technique)
	require.Contains(t, res.ModifierCSV, "FLAIR")
	require.Equal(t, "anat", res.DirectoryType)
}

// Scenario (e): ADC from DTIRecon, spec §8.
func TestClassify_ADCFromDTIRecon(t *testing.T) {
	p := newPipeline(t)
	res := p.Classify(&detect.Context{Flags: map[string]bool{"has_dti": true, "has_adc": true}, TextSearchBlob: "adc"})
	require.Equal(t, "dti_recon", res.Provenance)
	require.Equal(t, "DWI", res.Base)
	require.Contains(t, res.ConstructCSV, "ADC")
	require.Equal(t, "dwi", res.DirectoryType)
}

func TestClassify_ExcludedScreenshot(t *testing.T) {
	p := newPipeline(t)
	res := p.Classify(&detect.Context{Flags: map[string]bool{"is_screenshot": true}})
	require.Equal(t, "excluded", res.DirectoryType)
	require.False(t, res.ManualReviewRequired)
}

func TestResult_ReviewReasonsCSVIsSortedAndDeduped(t *testing.T) {
	var r classify.Result
	r.AddReviewReason("technique", "low_confidence")
	r.AddReviewReason("base", "missing")
	r.AddReviewReason("base", "missing")
	require.Equal(t, "base:missing,technique:low_confidence", r.ReviewReasonsCSV())
}
