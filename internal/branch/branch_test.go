package branch_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/branch"
	"github.com/codeninja55/go-radx/internal/detect"
)

func TestSWIBranch_MinIP(t *testing.T) {
	b := branch.Resolve("swi_recon")
	require.Equal(t, "SWIRecon", b.Name())
	res := b.Apply(&detect.Context{Flags: map[string]bool{"is_minip": true}})
	require.Equal(t, "SWI", res.Base)
	require.True(t, res.SkipBase)
	require.Equal(t, "MinIP", res.Construct)
	require.Equal(t, "GRE", res.Technique)
	require.Equal(t, "anat", res.DirectoryType)
}

func TestEPIMixBranch_T1FLAIR(t *testing.T) {
	b := branch.Resolve("epimix")
	res := b.Apply(&detect.Context{TextSearchBlob: "t1 flair"})
	require.Equal(t, "T1w", res.Base)
	require.Equal(t, "SE-EPI", res.Technique)
	require.Contains(t, res.Modifiers, "FLAIR")
	require.Equal(t, "anat", res.DirectoryType)
	require.InDelta(t, 0.90, res.Confidence, 1e-9)
}

func TestRawReconBranch_NoOp(t *testing.T) {
	b := branch.Resolve("dti_recon")
	require.Equal(t, "RawRecon", b.Name())
	res := b.Apply(&detect.Context{})
	require.False(t, res.SkipBase)
	require.False(t, res.SkipTechnique)
}
