package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/dcmio"
	"github.com/codeninja55/go-radx/internal/sig"
)

func TestNilIfEmpty(t *testing.T) {
	require.Nil(t, nilIfEmpty(""))
	v := nilIfEmpty("x")
	require.NotNil(t, v)
	require.Equal(t, "x", *v)
}

func TestCSVJoin(t *testing.T) {
	require.Nil(t, csvJoin(nil))
	v := csvJoin([]string{"A", "B"})
	require.NotNil(t, v)
	require.Equal(t, "A,B", *v)
}

func TestReconstructSignature_RoundTripsMRStack(t *testing.T) {
	te := 2.5
	tr := 500.0
	row := stackRow{
		orientation: string(sig.Axial),
		echoTime:    &te,
		repetitionTime: &tr,
	}
	got := reconstructSignature(dcmio.ModalityMR, row)
	want := sig.Signature{Modality: dcmio.ModalityMR, Orientation: sig.Axial, EchoTime: &te, RepetitionTime: &tr}
	require.Equal(t, want.Key(), got.Key())
}

func TestNilSliceIfEmpty(t *testing.T) {
	require.Nil(t, nilSliceIfEmpty(nil))
	require.Nil(t, nilSliceIfEmpty([]float64{}))
	require.Equal(t, []float64{1, 2}, nilSliceIfEmpty([]float64{1, 2}))
}
