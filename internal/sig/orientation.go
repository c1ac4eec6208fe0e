// Package sig computes the multi-parameter stack signature (spec §4.2) that
// determines stack membership, plus the stack-key label that explains why a
// series split into multiple stacks (grounded on
// original_source/backend/src/sort/stack_key.py).
package sig

import "math"

// Orientation is one of the three canonical imaging planes.
type Orientation string

const (
	Axial    Orientation = "Axial"
	Coronal  Orientation = "Coronal"
	Sagittal Orientation = "Sagittal"
)

// OrientationResult is the categorized orientation plus its confidence.
type OrientationResult struct {
	Orientation Orientation
	Confidence  float64
}

// CategorizeOrientation derives the stack orientation from the six-value
// ImageOrientationPatient direction cosines (row cosines then column
// cosines). On missing/malformed input it returns (Axial, 0.5) per spec §8
// Testable Property 11.
func CategorizeOrientation(iop []float64) OrientationResult {
	if len(iop) != 6 {
		return OrientationResult{Orientation: Axial, Confidence: 0.5}
	}
	row := [3]float64{iop[0], iop[1], iop[2]}
	col := [3]float64{iop[3], iop[4], iop[5]}
	normal := cross(row, col)

	norm := math.Sqrt(normal[0]*normal[0] + normal[1]*normal[1] + normal[2]*normal[2])
	if norm == 0 {
		return OrientationResult{Orientation: Axial, Confidence: 0.5}
	}

	abs := [3]float64{math.Abs(normal[0]), math.Abs(normal[1]), math.Abs(normal[2])}
	// Sagittal > Coronal > Axial priority, each check >= the remaining
	// axes, so a tie resolves to the earlier plane in that order (Axial
	// is the true fallback, reached only when neither x nor y wins).
	var orientation Orientation
	var maxVal float64
	switch {
	case abs[0] >= abs[1] && abs[0] >= abs[2]:
		orientation, maxVal = Sagittal, abs[0]
	case abs[1] >= abs[0] && abs[1] >= abs[2]:
		orientation, maxVal = Coronal, abs[1]
	default:
		orientation, maxVal = Axial, abs[2]
	}

	return OrientationResult{
		Orientation: orientation,
		Confidence:  maxVal / norm,
	}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
