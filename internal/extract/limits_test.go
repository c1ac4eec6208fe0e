package extract_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/extract"
)

func TestSafeRowsForParams(t *testing.T) {
	rows := extract.SafeRowsForParams(extract.EstimateInstanceParamsPerRow(), extract.PGParamMargin)
	require.Greater(t, rows, 0)
	require.LessOrEqual(t, rows*extract.EstimateInstanceParamsPerRow(), extract.MaxPGParams-extract.PGParamMargin)
}

func TestBuildParameterChunkPlan_SplitsOversizedInput(t *testing.T) {
	maxRows := extract.SafeRowsForParams(10, 0)
	rows := make([]extract.InstancePayload, maxRows*2+5)
	chunks, usedMax := extract.BuildParameterChunkPlan(rows, 10, 0)
	require.Equal(t, maxRows, usedMax)
	require.Len(t, chunks, 3)
	require.Len(t, chunks[0], maxRows)
	require.Len(t, chunks[2], 5)
}

func TestBuildParameterChunkPlan_EmptyInput(t *testing.T) {
	chunks, _ := extract.BuildParameterChunkPlan(nil, 10, 0)
	require.Nil(t, chunks)
}
