package sig

import (
	"fmt"
	"math"
	"strings"

	"github.com/codeninja55/go-radx/internal/dcmio"
)

// Signature is the rounded, comparable tuple that determines stack
// membership (spec §4.2). Two instances belong to the same stack iff their
// signatures are equal.
type Signature struct {
	Modality dcmio.Modality

	// MR
	EchoTime        *float64
	InversionTime   *float64
	EchoNumbers     *int64
	EchoTrainLength *int64
	RepetitionTime  *float64
	FlipAngle       *float64
	ReceiveCoilName string

	// CT
	KVP             *float64
	Exposure        *float64
	TubeCurrent     *float64

	// PET
	BedIndex  *int64
	FrameType string

	// always included
	Orientation Orientation
	ImageType   string
}

const (
	teRoundDP   = 2
	trTiRoundDP = 1
	flipRoundDP = 1
	kvpRoundDP  = 0
)

func round(v float64, dp int) float64 {
	m := math.Pow(10, float64(dp))
	return math.Round(v*m) / m
}

func roundPtr(v *float64, dp int) *float64 {
	if v == nil {
		return nil
	}
	r := round(*v, dp)
	return &r
}

// ComputeSignature builds the stack signature for a raw instance, given its
// already-categorized orientation.
func ComputeSignature(ri *dcmio.RawInstance, orientation Orientation) Signature {
	s := Signature{
		Modality:    ri.Modality,
		Orientation: orientation,
		ImageType:   strings.Join(ri.ImageType, "\\"),
	}
	switch ri.Modality {
	case dcmio.ModalityMR:
		s.EchoTime = roundPtr(ri.EchoTime, teRoundDP)
		s.InversionTime = roundPtr(ri.InversionTime, trTiRoundDP)
		s.EchoNumbers = ri.EchoNumbers
		s.EchoTrainLength = ri.EchoTrainLength
		s.RepetitionTime = roundPtr(ri.RepetitionTime, trTiRoundDP)
		s.FlipAngle = roundPtr(ri.FlipAngle, flipRoundDP)
		s.ReceiveCoilName = ri.ReceiveCoilName
	case dcmio.ModalityCT:
		s.KVP = roundPtr(ri.KVP, kvpRoundDP)
		s.Exposure = ri.Exposure
		s.TubeCurrent = ri.XRayTubeCurrent
	case dcmio.ModalityPET:
		// Bed index / frame type are not in the base RawInstance tag
		// whitelist (private/vendor-specific in most PET protocols); callers
		// that parse them from vendor-private tags set them via
		// WithPETFields before comparing signatures.
	}
	return s
}

// WithPETFields returns a copy of s with PET-specific stack-defining fields
// set. Kept separate from ComputeSignature because bed index/frame type
// extraction is vendor-specific and not part of the core tag whitelist.
func (s Signature) WithPETFields(bedIndex *int64, frameType string) Signature {
	s.BedIndex = bedIndex
	s.FrameType = frameType
	return s
}

// Key returns a comparable string key for use as a map key (e.g. the
// writer's stack_cache), so two equal Signatures always produce the same
// key regardless of pointer identity.
func (s Signature) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|", s.Modality, s.Orientation, s.ImageType)
	switch s.Modality {
	case dcmio.ModalityMR:
		fmt.Fprintf(&b, "te=%s|ti=%s|en=%s|etl=%s|tr=%s|fa=%s|coil=%s",
			f(s.EchoTime), f(s.InversionTime), i(s.EchoNumbers), i(s.EchoTrainLength),
			f(s.RepetitionTime), f(s.FlipAngle), s.ReceiveCoilName)
	case dcmio.ModalityCT:
		fmt.Fprintf(&b, "kvp=%s|exp=%s|cur=%s", f(s.KVP), f(s.Exposure), f(s.TubeCurrent))
	case dcmio.ModalityPET:
		fmt.Fprintf(&b, "bed=%s|frame=%s", i(s.BedIndex), s.FrameType)
	}
	return b.String()
}

func f(v *float64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%g", *v)
}

func i(v *int64) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%d", *v)
}
