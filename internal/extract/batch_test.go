package extract_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeninja55/go-radx/internal/extract"
)

func TestAdaptiveBatchController_GrowsOnFastBatches(t *testing.T) {
	c := extract.NewAdaptiveBatchController(extract.BatchSizeSettings{
		Initial: 100, Minimum: 10, Maximum: 1000, TargetMS: 200, Enabled: true,
	})
	c.Record(100, 10*time.Millisecond) // well under target/2
	require.Greater(t, c.CurrentSize(), 100)
}

func TestAdaptiveBatchController_ShrinksOnSlowBatches(t *testing.T) {
	c := extract.NewAdaptiveBatchController(extract.BatchSizeSettings{
		Initial: 100, Minimum: 10, Maximum: 1000, TargetMS: 200, Enabled: true,
	})
	c.Record(100, 500*time.Millisecond) // well over target*2
	require.Less(t, c.CurrentSize(), 100)
}

func TestAdaptiveBatchController_DisabledIsNoOp(t *testing.T) {
	c := extract.NewAdaptiveBatchController(extract.BatchSizeSettings{
		Initial: 100, Minimum: 10, Maximum: 1000, TargetMS: 200, Enabled: false,
	})
	c.Record(100, 10*time.Millisecond)
	require.Equal(t, 100, c.CurrentSize())
}

func TestAdaptiveBatchController_ClampToSafeRows(t *testing.T) {
	c := extract.NewAdaptiveBatchController(extract.BatchSizeSettings{
		Initial: 900, Minimum: 10, Maximum: 1000, TargetMS: 200, Enabled: true,
	})
	c.ClampToSafeRows(500)
	require.LessOrEqual(t, c.CurrentSize(), 500)
}

func TestWriterRouter_StickyRouting(t *testing.T) {
	r := extract.NewWriterRouter(4)
	first := r.RouteSubject("subject-a")
	for i := 0; i < 10; i++ {
		require.Equal(t, first, r.RouteSubject("subject-a"))
	}
}
