package normalize

import "testing"

func testConfig() *TokenMapConfig {
	cfg := &TokenMapConfig{}
	cfg.CharacterReplacements.Meaningful = map[string]string{"*": "star"}
	cfg.TokenReplacements = map[string][]string{
		"t2": {"t2w", "t2-weighted"},
	}
	cfg.TokenRemovals = []string{"sequence", "localizer"}
	cfg.ConditionalRules = map[string]ConditionalRuleYAML{
		"t1_flair": {
			Replace:    "flair",
			WhenHasAny: []string{"t1"},
		},
	}
	return cfg
}

func TestNormalizeBasic(t *testing.T) {
	n := New(testConfig())

	got, ok := n.Normalize("T2W FLAIR Sequence")
	if !ok {
		t.Fatalf("expected ok=true")
	}
	want := "t2 flair"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeConditionalReplacement(t *testing.T) {
	n := New(testConfig())
	got, ok := n.Normalize("t1 flair")
	if !ok || got != "t1 t1_flair" {
		t.Errorf("Normalize() = %q,%v want %q,true", got, ok, "t1 t1_flair")
	}
}

func TestNormalizePreservesSignTokens(t *testing.T) {
	n := New(&TokenMapConfig{})
	got, ok := n.Normalize("mp2rage+gd")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := "mp2rage + gd"
	if got != want {
		t.Errorf("Normalize() = %q, want %q", got, want)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	n := New(testConfig())
	inputs := []string{"T2W FLAIR Sequence", "mp2rage+gd", "*fl3d2_ns", "", "   "}
	for _, in := range inputs {
		first, ok1 := n.Normalize(in)
		if !ok1 {
			continue
		}
		second, ok2 := n.Normalize(first)
		if !ok2 || first != second {
			t.Errorf("Normalize not idempotent for %q: first=%q second=%q ok2=%v", in, first, second, ok2)
		}
	}
}

func TestNormalizeEmpty(t *testing.T) {
	n := New(&TokenMapConfig{})
	if _, ok := n.Normalize(""); ok {
		t.Errorf("expected ok=false for empty input")
	}
}

func TestNormalizeSequenceNameStripsAsterisk(t *testing.T) {
	n := New(&TokenMapConfig{})
	got, ok := n.NormalizeSequenceName("*fl3d2_ns")
	if !ok {
		t.Fatalf("expected ok")
	}
	want := "fl3d2 ns"
	if got != want {
		t.Errorf("NormalizeSequenceName() = %q, want %q", got, want)
	}
}
