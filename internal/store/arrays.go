package store

import "strings"

// csvJoin mirrors the Python writer's habit of storing list-valued DICOM
// fields (ScanningSequence, SequenceVariant, ...) as a backslash-joined
// DICOM multivalue turned comma-separated string for the detail tables.
// Returns nil (SQL NULL) for an empty slice.
func csvJoin(values []string) *string {
	if len(values) == 0 {
		return nil
	}
	joined := strings.Join(values, ",")
	return &joined
}
