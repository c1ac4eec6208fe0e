package detect_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/detect"
)

func loadRegistry(t *testing.T) *detect.Registry {
	t.Helper()
	reg, err := detect.LoadDefaultRegistry()
	require.NoError(t, err)
	return reg
}

func TestTechniqueDetector_MPRAGEImpliesT1w(t *testing.T) {
	reg := loadRegistry(t)

	ctx := &detect.Context{Flags: map[string]bool{"has_mprage": true}}
	technique, err := reg.Technique.Detect(ctx)
	require.NoError(t, err)
	require.Equal(t, "MPRAGE", technique.Value)
	require.InDelta(t, 0.95, technique.Confidence, 1e-9)

	ctx.Technique = "MPRAGE"
	base, err := reg.Base.Detect(ctx)
	require.NoError(t, err)
	require.Equal(t, "T1w", base.Value)
	require.InDelta(t, 0.95, base.Confidence, 1e-9)
}

func TestProvenanceDetector_DefaultsToRawRecon(t *testing.T) {
	reg := loadRegistry(t)
	res, err := reg.Provenance.Detect(&detect.Context{})
	require.NoError(t, err)
	require.Equal(t, "raw_recon", res.Value)
}

func TestModifierDetector_ExclusionGroupKeepsHighestPriority(t *testing.T) {
	reg := loadRegistry(t)
	ctx := &detect.Context{Flags: map[string]bool{"has_flair": true, "has_stir": true}}
	res, err := reg.Modifier.Detect(ctx)
	require.NoError(t, err)
	require.Equal(t, "flair", res.Value)
}

func TestContrastDetector_DICOMFieldWinsOverText(t *testing.T) {
	reg := loadRegistry(t)
	pc := reg.Contrast.DetectPostContrast(&detect.Context{
		ContrastBolusAgent: "Gadovist",
		TextSearchBlob:     "pre-contrast",
	})
	require.NotNil(t, pc.Value)
	require.True(t, *pc.Value)
}

func TestContrastDetector_NegativeTextOverridesPositive(t *testing.T) {
	reg := loadRegistry(t)
	pc := reg.Contrast.DetectPostContrast(&detect.Context{
		TextSearchBlob: "gadolinium pre-contrast",
	})
	require.NotNil(t, pc.Value)
	require.False(t, *pc.Value)
}

func TestBaseDetector_DualEchoPDT2SplitByTE(t *testing.T) {
	reg := loadRegistry(t)
	te := 22.0
	res, err := reg.Base.Detect(&detect.Context{
		TextSearchBlob: "proton density t2",
		TE:             &te,
	})
	require.NoError(t, err)
	require.Equal(t, "PDw", res.Value)
	require.InDelta(t, 0.85, res.Confidence, 1e-9)
}

func TestBaseDetector_ADCFlagImpliesDWI(t *testing.T) {
	reg := loadRegistry(t)
	res, err := reg.Base.Detect(&detect.Context{Flags: map[string]bool{"has_adc": true}})
	require.NoError(t, err)
	require.Equal(t, "DWI", res.Value)
}

func TestAccelerationDetector_BoundedRegexAvoidsFalsePositive(t *testing.T) {
	reg := loadRegistry(t)
	res, err := reg.Acceleration.Detect(&detect.Context{TextSearchBlob: "advanced search protocol"})
	require.NoError(t, err)
	require.False(t, res.HasValue)

	res, err = reg.Acceleration.Detect(&detect.Context{TextSearchBlob: "arc enabled"})
	require.NoError(t, err)
	require.True(t, res.HasValue)
	require.Equal(t, "parallel_imaging", res.Value)
}

func TestBodyPartDetector_ConflictWhenBothMatch(t *testing.T) {
	reg := loadRegistry(t)
	res := reg.BodyPart.DetectBodyPart(&detect.Context{TextSearchBlob: "brain and spine survey"})
	require.True(t, res.HasKeywordConflict)
	require.Nil(t, res.SpinalCord)
}
