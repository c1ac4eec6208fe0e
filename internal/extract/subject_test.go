package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/extract"
)

func TestSubjectResolver_CSVOverrideWins(t *testing.T) {
	r := extract.NewSubjectResolver("seed", map[string]string{"PAT001": "SUBJ-001"})
	res, err := r.Resolve("PAT001", "Doe^John", "1.2.3")
	require.NoError(t, err)
	require.Equal(t, "SUBJ-001", res.SubjectCode)
	require.Equal(t, "csv", res.Source)
}

func TestSubjectResolver_HashFallbackIsDeterministic(t *testing.T) {
	r := extract.NewSubjectResolver("seed", nil)
	a, err := r.Resolve("PAT002", "", "1.2.3")
	require.NoError(t, err)
	b, err := r.Resolve("PAT002", "", "1.2.3")
	require.NoError(t, err)
	require.Equal(t, a.SubjectCode, b.SubjectCode)
	require.Equal(t, "hash", a.Source)
}

func TestSubjectResolver_DifferentSeedsDifferentCodes(t *testing.T) {
	a, _ := extract.NewSubjectResolver("seed-a", nil).Resolve("PAT003", "", "1.2.3")
	b, _ := extract.NewSubjectResolver("seed-b", nil).Resolve("PAT003", "", "1.2.3")
	require.NotEqual(t, a.SubjectCode, b.SubjectCode)
}

func TestSubjectResolver_MissingPatientIDFallsBackToStudyUID(t *testing.T) {
	r := extract.NewSubjectResolver("seed", nil)
	res, err := r.Resolve("", "", "1.2.840.113")
	require.NoError(t, err)
	require.Equal(t, "hash", res.Source)
}

func TestSubjectResolver_NoFallbackKeyIsError(t *testing.T) {
	r := extract.NewSubjectResolver("seed", nil)
	_, err := r.Resolve("", "", "")
	require.Error(t, err)
}

func TestSplitSubjectRelative(t *testing.T) {
	key, rest := extract.SplitSubjectRelative("subject001/study1/series1/file.dcm")
	require.Equal(t, "subject001", key)
	require.Equal(t, "study1/series1/file.dcm", rest)
}
