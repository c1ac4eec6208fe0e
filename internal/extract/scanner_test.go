package extract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/extract"
)

func TestDiscoverSubjects_ListsImmediateDirsSorted(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"subj-b", "subj-a", "subj-c"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "not-a-dir.txt"), []byte("x"), 0o644))

	subjects, err := extract.DiscoverSubjects(root)
	require.NoError(t, err)
	require.Len(t, subjects, 3)
	require.Equal(t, "subj-a", subjects[0].SubjectKey)
	require.Equal(t, "subj-b", subjects[1].SubjectKey)
	require.Equal(t, "subj-c", subjects[2].SubjectKey)
}
