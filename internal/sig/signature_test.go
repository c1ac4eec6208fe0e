package sig

import (
	"testing"

	"github.com/codeninja55/go-radx/internal/dcmio"
)

func float64p(v float64) *float64 { return &v }
func int64p(v int64) *int64       { return &v }

func TestComputeSignatureEchoTimeRoundingBoundary(t *testing.T) {
	orient := OrientationResult{Orientation: Axial, Confidence: 1.0}

	a := &dcmio.RawInstance{Modality: dcmio.ModalityMR, EchoTime: float64p(30.000), RepetitionTime: float64p(2000), FlipAngle: float64p(90)}
	b := &dcmio.RawInstance{Modality: dcmio.ModalityMR, EchoTime: float64p(30.004), RepetitionTime: float64p(2000), FlipAngle: float64p(90)}
	c := &dcmio.RawInstance{Modality: dcmio.ModalityMR, EchoTime: float64p(30.011), RepetitionTime: float64p(2000), FlipAngle: float64p(90)}

	sigA := ComputeSignature(a, orient.Orientation)
	sigB := ComputeSignature(b, orient.Orientation)
	sigC := ComputeSignature(c, orient.Orientation)

	if sigA.Key() != sigB.Key() {
		t.Errorf("expected instances differing by 0.004ms to share a stack, got %q vs %q", sigA.Key(), sigB.Key())
	}
	if sigA.Key() == sigC.Key() {
		t.Errorf("expected instances differing by 0.011ms to NOT share a stack, got equal key %q", sigA.Key())
	}
}

func TestComputeSignatureByModality(t *testing.T) {
	ct := &dcmio.RawInstance{
		Modality:        dcmio.ModalityCT,
		KVP:             float64p(120.4),
		Exposure:        float64p(200),
		XRayTubeCurrent: float64p(300),
	}
	s := ComputeSignature(ct, Axial)
	if s.KVP == nil || *s.KVP != 120 {
		t.Errorf("expected KVP rounded to 0dp = 120, got %v", s.KVP)
	}
	if s.EchoTime != nil {
		t.Errorf("CT signature should not populate MR fields")
	}
}

func TestSignatureWithPETFields(t *testing.T) {
	pet := &dcmio.RawInstance{Modality: dcmio.ModalityPET}
	s := ComputeSignature(pet, Axial).WithPETFields(int64p(2), "STATIC")
	if s.BedIndex == nil || *s.BedIndex != 2 || s.FrameType != "STATIC" {
		t.Errorf("WithPETFields did not set fields correctly: %+v", s)
	}
}

func TestGenerateStackKeySingleStack(t *testing.T) {
	if got := GenerateStackKey(nil); got != "" {
		t.Errorf("expected empty key for 0 stacks, got %q", got)
	}
	one := []StackColumns{{EchoTime: 30.0}}
	if got := GenerateStackKey(one); got != "" {
		t.Errorf("expected empty key for single stack, got %q", got)
	}
}

func TestGenerateStackKeyMultiEcho(t *testing.T) {
	stacks := []StackColumns{
		{EchoTime: 10.0, RepetitionTime: 2000.0},
		{EchoTime: 30.0, RepetitionTime: 2000.0},
	}
	if got := GenerateStackKey(stacks); got != "multi_echo" {
		t.Errorf("expected multi_echo, got %q", got)
	}
}

func TestGenerateStackKeyPriorityOrder(t *testing.T) {
	// Both echo_time and orientation vary; echo wins by priority.
	stacks := []StackColumns{
		{EchoTime: 10.0, ImageOrientationPatient: "axial"},
		{EchoTime: 30.0, ImageOrientationPatient: "sagittal"},
	}
	if got := GenerateStackKey(stacks); got != "multi_echo" {
		t.Errorf("expected multi_echo to take priority over orientation, got %q", got)
	}
}

func TestGenerateStackKeyMultiParameter(t *testing.T) {
	// Two columns outside the labeled priority list vary and nothing in the list does.
	stacks := []StackColumns{
		{RepetitionTime: 2000.0, KVP: 100.0},
		{RepetitionTime: 3000.0, KVP: 120.0},
	}
	if got := GenerateStackKey(stacks); got != "multi_parameter" {
		t.Errorf("expected multi_parameter when >1 lower-priority column varies, got %q", got)
	}
}

func TestGenerateStackKeyDefaultMultiStack(t *testing.T) {
	stacks := []StackColumns{
		{FlipAngle: 10.0},
		{FlipAngle: 10.0},
	}
	if got := GenerateStackKey(stacks); got != "multi_stack" {
		t.Errorf("expected multi_stack fallback for >1 identical stacks with no varying column, got %q", got)
	}
}
