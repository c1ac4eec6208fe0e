package dcmio

import "errors"

// ErrMissingSOPInstanceUID is returned when an instance carries no
// SOPInstanceUID; such instances cannot be uniquely identified and are
// skipped rather than ingested.
var ErrMissingSOPInstanceUID = errors.New("dcmio: missing SOPInstanceUID")

// ErrMissingStudyOrSeriesUID is returned when StudyInstanceUID or
// SeriesInstanceUID is absent.
var ErrMissingStudyOrSeriesUID = errors.New("dcmio: missing StudyInstanceUID or SeriesInstanceUID")

// ErrDisallowedSOPClass is returned when the instance's SOPClassUID is not in
// the fixed acceptance filter (spec §3).
var ErrDisallowedSOPClass = errors.New("dcmio: SOPClassUID not in allow-list")

// ErrUnsupportedModality is returned when Modality does not normalize to one
// of MR, CT, PT.
var ErrUnsupportedModality = errors.New("dcmio: unsupported modality")
