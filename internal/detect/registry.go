package detect

import (
	"embed"
	"fmt"
)

//go:embed config/*.yaml
var embeddedConfig embed.FS

// Registry holds every constructed detector plus the parsed documents they
// were built from, so callers (internal/classify, internal/branch) can
// reach axis-specific helpers (e.g. TechniqueDetector.Family) alongside the
// generic Detector interface.
type Registry struct {
	Provenance   *ProvenanceDetector
	Technique    *TechniqueDetector
	Modifier     *ModifierDetector
	Base         *BaseDetector
	Construct    *ConstructDetector
	Acceleration *AccelerationDetector
	Contrast     *ContrastDetector
	BodyPart     *BodyPartDetector
}

// LoadDefaultRegistry parses the 8 embedded YAML rule files (spec §6) and
// constructs every detector. Embedding keeps the rule set self-contained in
// the binary while still being an ordinary YAML document a deployer could
// override by pointing LoadRegistry at an external directory.
func LoadDefaultRegistry() (*Registry, error) {
	docs := make(map[string]*Document, 8)
	for name, file := range map[string]string{
		"provenance":   "config/provenance-detection.yaml",
		"technique":    "config/technique-detection.yaml",
		"modifier":     "config/modifier-detection.yaml",
		"base":         "config/base-detection.yaml",
		"construct":    "config/construct-detection.yaml",
		"acceleration": "config/acceleration-detection.yaml",
		"contrast":     "config/contrast-detection.yaml",
		"body_part":    "config/body_part-detection.yaml",
	} {
		data, err := embeddedConfig.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("detect: read embedded %s: %w", file, err)
		}
		doc, err := ParseDocument(data)
		if err != nil {
			return nil, fmt.Errorf("detect: parse %s: %w", name, err)
		}
		docs[name] = doc
	}

	return buildRegistry(docs), nil
}

// EmbeddedSemanticTokenMap returns the raw bytes of the canonical
// semantic-token-map.yaml embedded alongside the 8 detector rule files, so
// internal/normalize's default normalizer is built from the same
// single source of truth (spec §6 "Classification configuration" lists
// all nine YAML files together).
func EmbeddedSemanticTokenMap() ([]byte, error) {
	data, err := embeddedConfig.ReadFile("config/semantic-token-map.yaml")
	if err != nil {
		return nil, fmt.Errorf("detect: read embedded semantic-token-map.yaml: %w", err)
	}
	return data, nil
}

func buildRegistry(docs map[string]*Document) *Registry {
	return &Registry{
		Provenance:   NewProvenanceDetector(docs["provenance"]),
		Technique:    NewTechniqueDetector(docs["technique"]),
		Modifier:     NewModifierDetector(docs["modifier"]),
		Base:         NewBaseDetector(docs["base"]),
		Construct:    NewConstructDetector(docs["construct"]),
		Acceleration: NewAccelerationDetector(docs["acceleration"]),
		Contrast:     NewContrastDetector(docs["contrast"]),
		BodyPart:     NewBodyPartDetector(docs["body_part"]),
	}
}
