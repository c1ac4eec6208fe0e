package resume_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/extract/resume"
)

func TestExistingPathIndex_ExactSetBelowThreshold(t *testing.T) {
	idx := resume.NewExistingPathIndex(resume.WithSubjectThreshold(1000))
	idx.Add("subj-1", "study1/series1/file1.dcm")
	require.True(t, idx.ShouldSkip("subj-1", "study1/series1/file1.dcm"))
	require.False(t, idx.ShouldSkip("subj-1", "study1/series1/file2.dcm"))
	require.False(t, idx.ShouldSkip("subj-2", "study1/series1/file1.dcm"))
}

func TestExistingPathIndex_SwitchesToBloomAtThreshold(t *testing.T) {
	idx := resume.NewExistingPathIndex(resume.WithSubjectThreshold(50), resume.WithErrorRate(0.01))
	for i := 0; i < 60; i++ {
		idx.Add("subj-1", fmt.Sprintf("file%d.dcm", i))
	}
	entry, ok := idx.EntryFor("subj-1")
	require.True(t, ok)
	require.Equal(t, 60, entry.Len())
	for i := 0; i < 60; i++ {
		require.True(t, idx.ShouldSkip("subj-1", fmt.Sprintf("file%d.dcm", i)))
	}
}

func TestExistingPathIndex_TotalPaths(t *testing.T) {
	idx := resume.NewExistingPathIndex()
	idx.Add("subj-1", "a.dcm")
	idx.Add("subj-1", "b.dcm")
	idx.Add("subj-2", "a.dcm")
	require.Equal(t, 3, idx.TotalPaths())
}
