package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqforge/internal/dataset"
	apperrors "seqforge/internal/errors"
)

func trackedFrame(t *testing.T, prices []float64) *dataset.Frame {
	t.Helper()
	ts := make([]time.Time, len(prices))
	for i := range ts {
		ts[i] = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
	}
	f := dataset.NewWithTimestamps(ts)
	require.NoError(t, f.AddColumn("spy_price", prices))
	return f
}

func TestTargetBuilder_Build(t *testing.T) {
	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = float64(100 + i)
	}
	f := trackedFrame(t, prices)

	builder := NewTargetBuilder("spy", "target_1h", 20, nil)
	require.NoError(t, builder.Build(f))

	label := f.Column("target_1h")
	require.NotNil(t, label)
	for i := 0; i < 10; i++ {
		assert.Equal(t, prices[i+20], label[i], "label[%d] must equal price %d rows ahead", i, 20)
	}
	for i := 10; i < 30; i++ {
		assert.True(t, math.IsNaN(label[i]), "final horizon rows have no label (row %d)", i)
	}
}

func TestTargetBuilder_MissingTrackingPrice(t *testing.T) {
	f := dataset.NewWithTimestamps([]time.Time{time.Now()})
	require.NoError(t, f.AddColumn("spx_price", []float64{1}))

	err := NewTargetBuilder("spy", "target_1h", 20, nil).Build(f)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCannotBuildLabel))
	assert.True(t, apperrors.IsFatal(err))
}

func TestTargetBuilder_ShortFrame(t *testing.T) {
	f := trackedFrame(t, []float64{1, 2, 3})

	require.NoError(t, NewTargetBuilder("spy", "target_1h", 20, nil).Build(f))

	for _, v := range f.Column("target_1h") {
		assert.True(t, math.IsNaN(v), "horizon longer than frame leaves every label undefined")
	}
}
