package evidence

import "testing"

func TestCalculateConfidenceSingleSource(t *testing.T) {
	evs := []Evidence{FromToken("image_type", "DIFFUSION", "DWI", "")}
	got := CalculateConfidence(evs, "DWI")
	if got != Weights[HighValueToken] {
		t.Errorf("CalculateConfidence() = %v, want %v", got, Weights[HighValueToken])
	}
}

func TestCalculateConfidenceBoostTwoSources(t *testing.T) {
	evs := []Evidence{
		FromToken("image_type", "DIFFUSION", "DWI", ""),
		FromTextSearch("dwi", "DWI", ""),
	}
	got := CalculateConfidence(evs, "DWI")
	want := 0.99 // 0.95 + 0.05 boost, capped at 0.99
	if got != want {
		t.Errorf("CalculateConfidence() = %v, want %v", got, want)
	}
}

func TestCalculateConfidenceBoostCappedAt99(t *testing.T) {
	evs := []Evidence{
		FromToken("image_type", "DIFFUSION", "DWI", ""),
		FromTextSearch("dwi", "DWI", ""),
		Evidence{Source: TechniqueInference, Target: "DWI", Weight: Weights[TechniqueInference]},
		Evidence{Source: DICOMStructured, Target: "DWI", Weight: Weights[DICOMStructured]},
	}
	got := CalculateConfidence(evs, "DWI")
	if got != 0.99 {
		t.Errorf("CalculateConfidence() = %v, want capped 0.99", got)
	}
}

func TestCalculateConfidenceNoRelevantEvidence(t *testing.T) {
	evs := []Evidence{FromToken("image_type", "DIFFUSION", "DWI", "")}
	if got := CalculateConfidence(evs, "T1w"); got != 0.0 {
		t.Errorf("CalculateConfidence() = %v, want 0", got)
	}
}

func TestSelectBestCandidateOrdersByConfidence(t *testing.T) {
	evs := []Evidence{
		FromToken("image_type", "DIFFUSION", "DWI", ""),
		FromTextSearch("flair", "T2w", ""),
	}
	result := SelectBestCandidate(evs, []string{"DWI", "T2w"})
	if !result.HasValue || result.Value != "DWI" {
		t.Fatalf("expected DWI to win, got %+v", result)
	}
	if len(result.Alternatives) != 1 || result.Alternatives[0].Value != "T2w" {
		t.Errorf("expected T2w as sole alternative, got %+v", result.Alternatives)
	}
}

func TestSelectBestCandidateNoEvidence(t *testing.T) {
	result := SelectBestCandidate(nil, []string{"DWI"})
	if result.HasValue {
		t.Errorf("expected no value for empty evidence, got %+v", result)
	}
}

func TestAxisResultFailureModePrecedence(t *testing.T) {
	missing := AxisResult{}
	if got := missing.FailureMode(); got != FailureMissing {
		t.Errorf("FailureMode() = %q, want %q", got, FailureMissing)
	}

	conflict := AxisResult{HasValue: true, Confidence: 0.95, HasConflict: true}
	if got := conflict.FailureMode(); got != FailureConflict {
		t.Errorf("FailureMode() = %q, want %q", got, FailureConflict)
	}

	lowConf := AxisResult{HasValue: true, Confidence: 0.3}
	if got := lowConf.FailureMode(); got != FailureLowConfidence {
		t.Errorf("FailureMode() = %q, want %q", got, FailureLowConfidence)
	}

	ambiguous := AxisResult{
		HasValue: true, Confidence: 0.8,
		Alternatives: []Candidate{{Value: "alt", Confidence: 0.75}},
	}
	if got := ambiguous.FailureMode(); got != FailureAmbiguous {
		t.Errorf("FailureMode() = %q, want %q", got, FailureAmbiguous)
	}

	clean := AxisResult{HasValue: true, Confidence: 0.95}
	if got := clean.FailureMode(); got != "" {
		t.Errorf("FailureMode() = %q, want empty", got)
	}
}

func TestAxisResultIsAmbiguousBoundary(t *testing.T) {
	r := AxisResult{Confidence: 0.8, Alternatives: []Candidate{{Value: "alt", Confidence: 0.7}}}
	if r.IsAmbiguous(0) {
		t.Errorf("expected not ambiguous at exactly the 0.1 boundary")
	}
	r.Alternatives[0].Confidence = 0.71
	if !r.IsAmbiguous(0) {
		t.Errorf("expected ambiguous when gap < 0.1")
	}
}
