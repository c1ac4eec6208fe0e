package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/codeninja55/go-radx/internal/config"
)

// SubjectFolder is one immediate child directory of the cohort raw root,
// grounded on original_source/backend/src/extract/scanner.py.
type SubjectFolder struct {
	SubjectKey string
	Path       string
}

// DiscoverSubjects lists the immediate subdirectories of rawRoot in
// deterministic (lexicographic) order.
func DiscoverSubjects(rawRoot string) ([]SubjectFolder, error) {
	abs, err := filepath.Abs(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("extract: resolve raw root: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("extract: read raw root: %w", err)
	}

	var out []SubjectFolder
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		out = append(out, SubjectFolder{SubjectKey: e.Name(), Path: filepath.Join(abs, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectKey < out[j].SubjectKey })
	return out, nil
}

// acceptsExtension reports whether a file name matches the configured
// ExtensionMode (spec §6 "Filesystem").
func acceptsExtension(name string, mode config.ExtensionMode) bool {
	switch mode {
	case config.ExtensionDCM:
		return strings.HasSuffix(name, ".dcm")
	case config.ExtensionDCMUpper:
		return strings.HasSuffix(name, ".DCM")
	case config.ExtensionAllDCM:
		return strings.HasSuffix(strings.ToLower(name), ".dcm")
	case config.ExtensionNoExt:
		return filepath.Ext(name) == ""
	case config.ExtensionAll:
		return true
	default:
		return true
	}
}

// discoverFiles walks a single subject directory recursively, returning
// every file path accepted under mode, in deterministic order.
func discoverFiles(subjectPath string, mode config.ExtensionMode) ([]string, error) {
	var files []string
	err := filepath.WalkDir(subjectPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // permission errors are skipped, not fatal (spec §7)
		}
		if d.IsDir() {
			return nil
		}
		if acceptsExtension(d.Name(), mode) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("extract: walk subject directory %s: %w", subjectPath, err)
	}
	sort.Strings(files)
	return files, nil
}
