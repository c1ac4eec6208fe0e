package extract

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

const defaultSubjectCodeDigestSize = 8

// SubjectResolution is the outcome of resolving a subject code for one
// study, grounded on
// original_source/backend/src/extract/subject_mapping.py's
// SubjectResolution.
type SubjectResolution struct {
	SubjectCode string
	PatientID   string
	PatientName string
	Source      string // "csv" or "hash"
}

// SubjectResolver derives a stable subject_code from a PatientID, using an
// optional CSV override map and falling back to a keyed BLAKE2b hash.
type SubjectResolver struct {
	seed       string
	digestSize int
	overrides  map[string]string
}

// NewSubjectResolver builds a resolver. overrides maps PatientID -> forced
// subject_code; it may be nil.
func NewSubjectResolver(seed string, overrides map[string]string) *SubjectResolver {
	return &SubjectResolver{seed: seed, digestSize: defaultSubjectCodeDigestSize, overrides: overrides}
}

// Resolve returns a SubjectResolution for the given identifiers.
// studyInstanceUID is used as the hash input when patientID is empty.
func (r *SubjectResolver) Resolve(patientID, patientName, studyInstanceUID string) (SubjectResolution, error) {
	if patientID != "" {
		if mapped, ok := r.overrides[patientID]; ok {
			return SubjectResolution{SubjectCode: mapped, PatientID: patientID, PatientName: patientName, Source: "csv"}, nil
		}
	}

	fallbackKey := patientID
	if fallbackKey == "" {
		fallbackKey = studyInstanceUID
	}
	if fallbackKey == "" {
		return SubjectResolution{}, fmt.Errorf("extract: cannot derive subject_code without PatientID or StudyInstanceUID")
	}

	code, err := subjectCodeGen(fallbackKey, r.seed, r.digestSize)
	if err != nil {
		return SubjectResolution{}, err
	}
	return SubjectResolution{SubjectCode: code, PatientID: patientID, PatientName: patientName, Source: "hash"}, nil
}

// subjectCodeGen computes a keyed BLAKE2b digest of input, hex-encoded,
// grounded on subject_mapping.py's subject_code_gen.
func subjectCodeGen(input, key string, digestSize int) (string, error) {
	h, err := blake2b.New(digestSize, []byte(key))
	if err != nil {
		return "", fmt.Errorf("extract: build blake2b hasher: %w", err)
	}
	if _, err := h.Write([]byte(input)); err != nil {
		return "", fmt.Errorf("extract: hash subject identifier: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SplitSubjectRelative splits a raw file path into its top-level subject
// key and the remaining subject-relative path, grounded on
// resume_index.py's split_subject_relative.
func SplitSubjectRelative(filePath string) (subjectKey, remainder string) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(filePath, "\\", "/"))
	if cleaned == "" {
		return "", ""
	}
	var parts []string
	for _, seg := range strings.Split(cleaned, "/") {
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], "/")
}
