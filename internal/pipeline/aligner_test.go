package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqforge/internal/dataset"
	"seqforge/internal/features"
)

var testSources = features.Sources{Index: "spx", Tracking: "spy", Volatility: "vix"}

func minuteStamps(start time.Time, minutes ...int) []time.Time {
	out := make([]time.Time, len(minutes))
	for i, m := range minutes {
		out[i] = start.Add(time.Duration(m) * time.Minute)
	}
	return out
}

func rawSeries(t *testing.T, stamps []time.Time, prices []float64) *dataset.Frame {
	t.Helper()
	f := dataset.NewWithTimestamps(stamps)
	require.NoError(t, f.AddColumn(dataset.ColPrice, prices))
	return f
}

func TestAligner_DisjointTimestampUnion(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	index := rawSeries(t, minuteStamps(base, 0, 2, 4), []float64{1, 2, 3})
	tracking := rawSeries(t, minuteStamps(base, 1, 3, 5), []float64{10, 20, 30})
	volatility := rawSeries(t, minuteStamps(base, 0), []float64{15})

	merged, err := NewAligner(3*time.Minute, nil).Align(index, tracking, volatility, testSources)
	require.NoError(t, err)

	// Union of all post-resampling timestamps; no row silently dropped.
	assert.Equal(t, 6, merged.Rows())
	assert.True(t, merged.HasColumn("spx_price"))
	assert.True(t, merged.HasColumn("spy_price"))
	assert.True(t, merged.HasColumn("vix_price"))
}

func TestAligner_ForwardFillInvariant(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	index := rawSeries(t, minuteStamps(base, 0, 1, 2, 3, 4, 5), []float64{1, 2, 3, 4, 5, 6})
	tracking := rawSeries(t, minuteStamps(base, 3), []float64{99})
	volatility := rawSeries(t, minuteStamps(base, 0, 5), []float64{15, 16})

	merged, err := NewAligner(3*time.Minute, nil).Align(index, tracking, volatility, testSources)
	require.NoError(t, err)

	for _, col := range merged.Columns() {
		vals := merged.Column(col)
		seen := false
		for i, v := range vals {
			if !math.IsNaN(v) {
				seen = true
				continue
			}
			assert.False(t, seen, "column %s has a gap after its first observation at row %d", col, i)
		}
	}
	// Tracking column is missing before its first observation only.
	spy := merged.Column("spy_price")
	assert.True(t, math.IsNaN(spy[0]))
	assert.Equal(t, float64(99), spy[len(spy)-1])
}

func TestAligner_ResamplesVolatility(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	index := rawSeries(t, minuteStamps(base, 0, 3, 6, 9), []float64{1, 2, 3, 4})
	tracking := rawSeries(t, minuteStamps(base, 0, 3, 6, 9), []float64{1, 2, 3, 4})
	// Sparse volatility observations: minute 1 and minute 9 only.
	volatility := rawSeries(t, minuteStamps(base, 1, 9), []float64{15, 18})

	merged, err := NewAligner(3*time.Minute, nil).Align(index, tracking, volatility, testSources)
	require.NoError(t, err)

	vix := merged.Column("vix_price")
	require.NotNil(t, vix)
	// The interior 09:03 / 09:06 buckets are filled from 09:00's value.
	for i := 0; i < merged.Rows()-1; i++ {
		assert.Equal(t, float64(15), vix[i], "row %d", i)
	}
	assert.Equal(t, float64(18), vix[merged.Rows()-1])
}

func TestAligner_AllEmptyInputs(t *testing.T) {
	merged, err := NewAligner(3*time.Minute, nil).
		Align(dataset.New(), dataset.New(), dataset.New(), testSources)

	require.NoError(t, err)
	assert.True(t, merged.Empty())
}

func TestAligner_UnparseableTimestampsKept(t *testing.T) {
	base := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	index := rawSeries(t, []time.Time{base, {}}, []float64{1, 2})
	tracking := rawSeries(t, minuteStamps(base, 1), []float64{10})
	volatility := rawSeries(t, minuteStamps(base, 0), []float64{15})

	merged, err := NewAligner(3*time.Minute, nil).Align(index, tracking, volatility, testSources)
	require.NoError(t, err)

	// The missing-timestamp row survives the join, sorted last.
	require.Equal(t, 3, merged.Rows())
	assert.True(t, merged.Timestamp(merged.Rows()-1).IsZero())
}
