// Package detect implements the eight YAML-driven classification axis
// detectors (spec §4.4): provenance, technique, modifier, base, construct,
// acceleration, contrast agent, and body part. Every detector shares the
// same three-to-five-tier resolution order and the same typed rule
// configuration shape, grounded on
// original_source/backend/src/classification/detectors/*.py.
package detect

import (
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DetectionRule is the `detection:` block of a single class rule.
type DetectionRule struct {
	Exclusive        string   `yaml:"exclusive"`
	Combination      []string `yaml:"combination"`
	AlternativeFlags []string `yaml:"alternative_flags"`
}

// ClassRule is one `<class_id>:` entry in a detector's rule file.
type ClassRule struct {
	ID        string        `yaml:"-"`
	Name      string        `yaml:"name" validate:"required"`
	Family    string        `yaml:"family"`
	Priority  int           `yaml:"priority"`
	IsDefault bool          `yaml:"is_default"`
	Keywords  []string      `yaml:"keywords"`
	Detection DetectionRule `yaml:"detection"`
}

// RulesMeta is the top-level `rules:` block shared by every detector file.
type RulesMeta struct {
	PriorityOrder        []string                         `yaml:"priority_order"`
	ConfidenceThresholds map[string]float64                `yaml:"confidence_thresholds"`
	PhysicsThresholds    map[string]float64                `yaml:"physics_thresholds"`
	TechniqueImpliesBase map[string]TechniqueImplication    `yaml:"technique_implies_base"`
	SimpleTechniques     []string                          `yaml:"simple_techniques"`
}

// TechniqueImplication is a single `technique_implies_base` entry: a
// technique id that directly implies a base contrast value (e.g. MPRAGE
// implies T1w), used by the base-detection tier 1 (spec §4.4 Base
// contrast, "technique inference").
type TechniqueImplication struct {
	Base   string  `yaml:"base"`
	Weight float64 `yaml:"weight"`
}

// Document is a fully parsed detector rule file: the `rules:` meta block
// plus every other top-level key as a ClassRule, ordered by
// rules.priority_order (entries absent from priority_order sort after, in
// file order).
type Document struct {
	Rules   RulesMeta
	Classes []ClassRule
}

// ByID returns the class rule for id, if present.
func (d *Document) ByID(id string) (ClassRule, bool) {
	for _, c := range d.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return ClassRule{}, false
}

// Threshold returns a named confidence threshold, or def if absent.
func (d *Document) Threshold(name string, def float64) float64 {
	if v, ok := d.Rules.ConfidenceThresholds[name]; ok {
		return v
	}
	return def
}

var validate = validator.New()

// UnmarshalYAML splits the flat `{rules: {...}, class_a: {...}, ...}`
// document shape (spec §6) into the typed Rules/Classes split, preserving
// file order for classes absent from priority_order.
func (d *Document) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("detect: rule document must be a mapping, got %v", value.Kind)
	}

	var raw struct {
		Rules RulesMeta `yaml:"rules"`
	}
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("detect: decode rules meta: %w", err)
	}
	d.Rules = raw.Rules

	classes := make(map[string]ClassRule)
	var fileOrder []string
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if key == "rules" {
			continue
		}
		var cr ClassRule
		if err := value.Content[i+1].Decode(&cr); err != nil {
			return fmt.Errorf("detect: decode class %q: %w", key, err)
		}
		cr.ID = key
		if err := validate.Struct(cr); err != nil {
			return fmt.Errorf("detect: validate class %q: %w", key, err)
		}
		classes[key] = cr
		fileOrder = append(fileOrder, key)
	}

	order := d.Rules.PriorityOrder
	seen := make(map[string]struct{}, len(order))
	var ordered []ClassRule
	for _, id := range order {
		if cr, ok := classes[id]; ok {
			ordered = append(ordered, cr)
			seen[id] = struct{}{}
		}
	}
	var rest []string
	for _, id := range fileOrder {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool {
		return classes[rest[i]].Priority < classes[rest[j]].Priority
	})
	for _, id := range rest {
		ordered = append(ordered, classes[id])
	}

	d.Classes = ordered
	return nil
}

// ParseDocument parses raw YAML bytes into a Document.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("detect: parse document: %w", err)
	}
	return &doc, nil
}
