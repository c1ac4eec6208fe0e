// Package evidence implements the weighted evidence and confidence model
// used across the classification axes, grounded on
// original_source/backend/src/classification/core/evidence.py.
package evidence

import "fmt"

// Source is a categorical evidence source with an implicit confidence
// weight. Higher weights indicate more reliable evidence.
type Source string

const (
	// High confidence sources (0.90-0.95).
	HighValueToken      Source = "high_value_token"
	TechniqueInference  Source = "technique_inference"
	DICOMStructured     Source = "dicom_structured"

	// Medium confidence sources (0.70-0.80).
	TextSearch         Source = "text_search"
	ModifierInference  Source = "modifier_inference"
	PhysicsDistinct    Source = "physics_distinct"

	// Low confidence sources (0.40-0.50).
	PhysicsOverlap Source = "physics_overlap"
	GeometryHint   Source = "geometry_hint"
)

// Weights maps each evidence source to its base confidence weight.
var Weights = map[Source]float64{
	HighValueToken:     0.95,
	TechniqueInference: 0.90,
	DICOMStructured:    0.95,
	TextSearch:         0.75,
	ModifierInference:  0.80,
	PhysicsDistinct:    0.70,
	PhysicsOverlap:     0.50,
	GeometryHint:       0.40,
}

// Evidence tracks a single decision point in classification: a source
// supporting a target classification value with a confidence weight.
type Evidence struct {
	Source      Source
	Field       string
	Value       string
	Target      string
	Weight      float64
	Description string
}

// FromToken builds evidence from a parsed DICOM token flag (ImageType,
// ScanningSequence, SequenceVariant, ScanOptions, or SequenceName).
func FromToken(field, value, target, description string) Evidence {
	if description == "" {
		description = fmt.Sprintf("%s token in %s", value, field)
	}
	return Evidence{
		Source: HighValueToken, Field: field, Value: value, Target: target,
		Weight: Weights[HighValueToken], Description: description,
	}
}

// FromTextSearch builds evidence from a text_search_blob pattern match.
func FromTextSearch(pattern, target, description string) Evidence {
	if description == "" {
		description = fmt.Sprintf("%q found in text_search_blob", pattern)
	}
	return Evidence{
		Source: TextSearch, Field: "text_search_blob", Value: pattern, Target: target,
		Weight: Weights[TextSearch], Description: description,
	}
}

// FromTechnique builds evidence from technique inference (e.g. MPRAGE
// implies T1w). A confidence of 0 uses the default technique-inference
// weight.
func FromTechnique(technique, impliedBase string, confidence float64) Evidence {
	weight := confidence
	if weight == 0 {
		weight = Weights[TechniqueInference]
	}
	return Evidence{
		Source: TechniqueInference, Field: "technique", Value: technique, Target: impliedBase,
		Weight: weight, Description: fmt.Sprintf("%s implies %s", technique, impliedBase),
	}
}

// FromModifier builds evidence from a modifier plus physics inference
// (e.g. FLAIR + TE>60 implies T2w).
func FromModifier(modifier, physicsHint, impliedBase, description string) Evidence {
	value := fmt.Sprintf("%s+%s", modifier, physicsHint)
	if description == "" {
		description = fmt.Sprintf("%s with %s implies %s", modifier, physicsHint, impliedBase)
	}
	return Evidence{
		Source: ModifierInference, Field: "modifier+physics", Value: value, Target: impliedBase,
		Weight: Weights[ModifierInference], Description: description,
	}
}

// FromPhysics builds evidence from physics parameters. isDistinct selects
// between the non-overlapping (higher confidence) and overlapping (lower
// confidence, ambiguous) evidence sources.
func FromPhysics(paramStr, target string, isDistinct bool, description string) Evidence {
	source := PhysicsDistinct
	if !isDistinct {
		source = PhysicsOverlap
	}
	if description == "" {
		description = fmt.Sprintf("Physics (%s) suggests %s", paramStr, target)
	}
	return Evidence{
		Source: source, Field: "physics", Value: paramStr, Target: target,
		Weight: Weights[source], Description: description,
	}
}

// FromGeometry builds evidence from a geometry-based heuristic (FOV,
// aspect ratio, etc).
func FromGeometry(hint, target, description string) Evidence {
	if description == "" {
		description = fmt.Sprintf("Geometry (%s) suggests %s", hint, target)
	}
	return Evidence{
		Source: GeometryHint, Field: "geometry", Value: hint, Target: target,
		Weight: Weights[GeometryHint], Description: description,
	}
}
