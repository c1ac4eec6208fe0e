package normalize

import (
	"regexp"
	"strings"
)

// conditionalRule is the resolved, lowercased form of a ConditionalRuleYAML
// entry, retaining its canonical name.
type conditionalRule struct {
	canonical  string
	replace    string
	whenHasAny []string
	whenHasAll []string
}

// Normalizer applies the 12-step pipeline from spec §4.1, grounded on
// original_source/backend/src/sort/semantic_normalizer.py.
type Normalizer struct {
	rawRemovals     []string
	meaningfulChars map[string]string
	toSpaceChars    []string
	removeChars     []string
	tokenMap        map[string]string
	tokensToRemove  map[string]struct{}
	conditional     []conditionalRule
}

var (
	signRe  = regexp.MustCompile(`([+\-])`)
	noiseRe = regexp.MustCompile(`[^a-z0-9\s_+\-]`)
	splitRe = regexp.MustCompile(`[\s_]+`)
)

// New builds a Normalizer from a parsed token-map config. A zero-value
// config (e.g. an empty YAML file) yields a normalizer that only performs
// structural tokenization with no replacements, matching the Python
// implementation's behavior when the config fails to load.
func New(cfg *TokenMapConfig) *Normalizer {
	n := &Normalizer{
		meaningfulChars: map[string]string{},
		tokenMap:        map[string]string{},
		tokensToRemove:  map[string]struct{}{},
	}
	if cfg == nil {
		return n
	}
	for _, r := range cfg.RawRemovals {
		if strings.TrimSpace(r) != "" {
			n.rawRemovals = append(n.rawRemovals, r)
		}
	}
	if cfg.CharacterReplacements.Meaningful != nil {
		n.meaningfulChars = cfg.CharacterReplacements.Meaningful
	}
	n.toSpaceChars = cfg.CharacterReplacements.ToSpace
	n.removeChars = cfg.CharacterReplacements.Remove

	for canonical, tokens := range cfg.TokenReplacements {
		for _, tok := range tokens {
			n.tokenMap[strings.ToLower(tok)] = strings.ToLower(canonical)
		}
	}
	for _, tok := range cfg.TokenRemovals {
		if tok != "" {
			n.tokensToRemove[strings.ToLower(tok)] = struct{}{}
		}
	}
	for canonical, rule := range cfg.ConditionalRules {
		cr := conditionalRule{
			canonical: strings.ToLower(canonical),
			replace:   strings.ToLower(rule.Replace),
		}
		for _, t := range rule.WhenHasAny {
			cr.whenHasAny = append(cr.whenHasAny, strings.ToLower(t))
		}
		for _, t := range rule.WhenHasAll {
			cr.whenHasAll = append(cr.whenHasAll, strings.ToLower(t))
		}
		n.conditional = append(n.conditional, cr)
	}
	return n
}

// Normalize runs the full pipeline. Returns "" (and false) if the input is
// empty or normalizes to nothing, mirroring the Python implementation's
// None return.
func (n *Normalizer) Normalize(text string) (string, bool) {
	if text == "" {
		return "", false
	}

	for _, removal := range n.rawRemovals {
		if strings.Contains(text, removal) {
			text = strings.ReplaceAll(text, removal, " ")
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	for char, repl := range n.meaningfulChars {
		text = strings.ReplaceAll(text, char, repl)
	}
	for _, char := range n.toSpaceChars {
		text = strings.ReplaceAll(text, char, " ")
	}
	for _, char := range n.removeChars {
		text = strings.ReplaceAll(text, char, "")
	}

	text = strings.ToLower(text)
	text = signRe.ReplaceAllString(text, " $1 ")
	text = noiseRe.ReplaceAllString(text, " ")

	rawTokens := splitRe.Split(text, -1)
	tokens := make([]string, 0, len(rawTokens))
	for _, t := range rawTokens {
		if trimmed := strings.TrimSpace(t); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}

	tokens = dedupePreserveOrder(tokens)

	if len(n.tokensToRemove) > 0 {
		filtered := tokens[:0:0]
		for _, t := range tokens {
			if _, drop := n.tokensToRemove[t]; !drop {
				filtered = append(filtered, t)
			}
		}
		tokens = filtered
	}
	if len(tokens) == 0 {
		return "", false
	}

	for i, t := range tokens {
		if canonical, ok := n.tokenMap[t]; ok {
			tokens[i] = canonical
		}
	}

	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	for _, rule := range n.conditional {
		if _, present := tokenSet[rule.replace]; !present {
			continue
		}
		shouldReplace := false
		if len(rule.whenHasAny) > 0 {
			for _, ctx := range rule.whenHasAny {
				if _, ok := tokenSet[ctx]; ok {
					shouldReplace = true
					break
				}
			}
		}
		if len(rule.whenHasAll) > 0 {
			all := true
			for _, ctx := range rule.whenHasAll {
				if _, ok := tokenSet[ctx]; !ok {
					all = false
					break
				}
			}
			if all {
				shouldReplace = true
			}
		}
		if !shouldReplace {
			continue
		}
		for i, t := range tokens {
			if t == rule.replace {
				tokens[i] = rule.canonical
			}
		}
		delete(tokenSet, rule.replace)
		tokenSet[rule.canonical] = struct{}{}
	}

	if len(tokens) == 0 {
		return "", false
	}
	return strings.Join(tokens, " "), true
}

// NormalizeSequenceName strips vendor *-markers before delegating to
// Normalize, matching normalize_sequence_name in the source.
func (n *Normalizer) NormalizeSequenceName(sequenceName string) (string, bool) {
	if sequenceName == "" {
		return "", false
	}
	cleaned := strings.ReplaceAll(sequenceName, "*", "")
	return n.Normalize(cleaned)
}

func dedupePreserveOrder(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
