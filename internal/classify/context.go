package classify

import (
	"github.com/codeninja55/go-radx/internal/detect"
	"github.com/codeninja55/go-radx/internal/sortpipe/frame"
)

// BuildContext constructs a detect.Context from a materialized stack
// fingerprint row, deriving the high-value token flags from its
// normalized search blob (spec §4.10/§4.11: the fingerprint is a pure
// function's worth of input, Context construction is classify's job per
// internal/detect.Context's own doc comment).
func BuildContext(f frame.Frame) *detect.Context {
	return &detect.Context{
		Modality:              f.Modality,
		Manufacturer:          f.Manufacturer,
		ManufacturerModel:     f.ManufacturerModel,
		TextSearchBlob:        f.SearchBlob,
		ContrastAgentBlob:     f.ContrastBlob,
		SequenceName:          f.SequenceName,
		Flags:                 DeriveFlags(f.SearchBlob),
		TR:                    f.TR,
		TE:                    f.TE,
		TI:                    f.TI,
		FlipAngle:             f.FlipAngle,
		EchoTrainLength:       int64PtrToIntPtr(f.ETL),
		BValues:               bValueSlice(f.BValue),
		FOV:                   derefFloat(f.FOV),
		AspectRatio:           derefFloat(f.AspectRatio),
		SliceCount:            f.SliceCount,
		Orientation:           f.Orientation,
		OrientationConfidence: f.OrientationConfidence,
		ContrastBolusAgent:    f.ContrastBolusAgent,
	}
}

func int64PtrToIntPtr(v *int64) *int {
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func bValueSlice(v *float64) []float64 {
	if v == nil {
		return nil
	}
	return []float64{*v}
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
