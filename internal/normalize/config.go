// Package normalize implements the deterministic semantic text normalizer
// (spec §4.1): a position-preserving pipeline that turns free-text DICOM
// fields into a deduplicated, canonicalized token stream suitable for exact
// keyword matching by the detectors in internal/detect.
package normalize

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codeninja55/go-radx/internal/detect"
)

// TokenMapConfig is the typed shape of semantic-token-map.yaml (spec §6).
type TokenMapConfig struct {
	CharacterReplacements struct {
		Meaningful map[string]string `yaml:"meaningful"`
		ToSpace    []string          `yaml:"to_space"`
		Remove     []string          `yaml:"remove"`
	} `yaml:"character_replacements"`
	RawRemovals        []string                     `yaml:"raw_removals"`
	TokenReplacements  map[string][]string          `yaml:"token_replacements"`
	TokenRemovals      []string                     `yaml:"token_removals"`
	ConditionalRules    map[string]ConditionalRuleYAML `yaml:"conditional_replacements"`
}

// ConditionalRuleYAML is one entry under conditional_replacements.
type ConditionalRuleYAML struct {
	Replace    string   `yaml:"replace"`
	WhenHasAny []string `yaml:"when_has_any"`
	WhenHasAll []string `yaml:"when_has_all"`
}

// LoadTokenMapConfig reads and parses a semantic-token-map.yaml file.
func LoadTokenMapConfig(path string) (*TokenMapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("normalize: read token map: %w", err)
	}
	return ParseTokenMapConfig(data)
}

// NewDefault builds a Normalizer from the canonical semantic-token-map.yaml
// embedded in internal/detect, so every caller (sorting Step 2's
// fingerprint materialization, ad-hoc tooling) shares one token map
// without needing a filesystem path.
func NewDefault() (*Normalizer, error) {
	data, err := detect.EmbeddedSemanticTokenMap()
	if err != nil {
		return nil, err
	}
	cfg, err := ParseTokenMapConfig(data)
	if err != nil {
		return nil, err
	}
	return New(cfg), nil
}

// ParseTokenMapConfig parses already-loaded YAML bytes, used by callers
// that source the document from an embed.FS (internal/detect carries the
// canonical copy alongside the other 8 rule files) rather than a path.
func ParseTokenMapConfig(data []byte) (*TokenMapConfig, error) {
	var cfg TokenMapConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("normalize: parse token map: %w", err)
	}
	return &cfg, nil
}
