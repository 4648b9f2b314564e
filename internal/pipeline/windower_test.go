package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqforge/internal/config"
	"seqforge/internal/dataset"
	apperrors "seqforge/internal/errors"
)

// labelledFrame builds n rows with two feature columns and a label
// equal to 1000+i, so a window's label identifies its final row.
func labelledFrame(t *testing.T, n int) *dataset.Frame {
	t.Helper()
	ts := make([]time.Time, n)
	a := make([]float64, n)
	b := make([]float64, n)
	label := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute)
		a[i] = float64(i)
		b[i] = float64(i) * 10
		label[i] = float64(1000 + i)
	}
	f := dataset.NewWithTimestamps(ts)
	require.NoError(t, f.AddColumn("a", a))
	require.NoError(t, f.AddColumn("b", b))
	require.NoError(t, f.AddColumn("target_1h", label))
	return f
}

func collectBatches(t *testing.T, w *Windower, f *dataset.Frame) []*WindowBatch {
	t.Helper()
	var batches []*WindowBatch
	err := w.Produce(f, "train", func(b *WindowBatch) error {
		batches = append(batches, b)
		return nil
	})
	require.NoError(t, err)
	return batches
}

func TestWindower_ExactlyOneWindow(t *testing.T) {
	cfg := config.Default().Pipeline
	f := labelledFrame(t, cfg.WindowLength)

	batches := collectBatches(t, NewWindower(cfg, nil), f)

	require.Len(t, batches, 1)
	b := batches[0]
	assert.Equal(t, 1, b.Count)
	assert.Equal(t, []int{1, cfg.WindowLength, 2}, b.XShape())
	assert.Equal(t, []int{1, 1}, b.YShape())
	assert.Equal(t, float32(1000+cfg.WindowLength-1), b.Y[0], "label comes from the window's final row")
}

func TestWindower_TooFewRows(t *testing.T) {
	cfg := config.Default().Pipeline
	f := labelledFrame(t, cfg.WindowLength-1)

	called := false
	err := NewWindower(cfg, nil).Produce(f, "val", func(*WindowBatch) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeInsufficientData))
	assert.False(t, called, "nothing is emitted for an undersized partition")
}

func TestWindower_StrideOneContiguity(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.WindowLength = 5
	f := labelledFrame(t, 8) // 4 windows

	batches := collectBatches(t, NewWindower(cfg, nil), f)
	require.Len(t, batches, 1)
	b := batches[0]
	require.Equal(t, 4, b.Count)

	// Window k+1 is window k shifted by one row: the first row of
	// window 1 equals the second row of window 0.
	rowLen := b.FeatureCount
	winLen := b.WindowLength * rowLen
	assert.Equal(t, b.X[winLen:winLen+rowLen], b.X[rowLen:2*rowLen])

	// Feature order within a row is the frame's column order.
	assert.Equal(t, float32(0), b.X[0])  // a[0]
	assert.Equal(t, float32(0), b.X[1])  // b[0]
	assert.Equal(t, float32(1), b.X[2])  // a[1]
	assert.Equal(t, float32(10), b.X[3]) // b[1]
}

func TestWindower_Chunking(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.WindowLength = 6
	cfg.ChunkSize = 10
	f := labelledFrame(t, 30) // 25 windows

	batches := collectBatches(t, NewWindower(cfg, nil), f)

	require.Len(t, batches, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{batches[0].Index, batches[1].Index, batches[2].Index})
	assert.Equal(t, 10, batches[0].Count)
	assert.Equal(t, 10, batches[1].Count)
	assert.Equal(t, 5, batches[2].Count)

	// Labels across chunks stay consecutive.
	assert.Equal(t, float32(1005), batches[0].Y[0])
	assert.Equal(t, float32(1015), batches[1].Y[0])
	assert.Equal(t, float32(1029), batches[2].Y[4])
}

func TestWindower_TimestampsNeverEnterTensor(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.WindowLength = 4
	f := labelledFrame(t, 10)

	batches := collectBatches(t, NewWindower(cfg, nil), f)
	require.Len(t, batches, 1)
	b := batches[0]

	assert.Equal(t, 2, b.FeatureCount, "timestamp and label are not features")
	assert.Len(t, b.X, b.Count*b.WindowLength*b.FeatureCount)
	assert.Len(t, b.EndTimestamps, b.Count)
	assert.Equal(t, f.Timestamp(3), b.EndTimestamps[0])
}

func TestWindower_MissingLabelColumn(t *testing.T) {
	cfg := config.Default().Pipeline
	f := dataset.NewWithTimestamps([]time.Time{time.Now()})
	require.NoError(t, f.AddColumn("a", []float64{1}))

	err := NewWindower(cfg, nil).Produce(f, "test", func(*WindowBatch) error { return nil })

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeCannotBuildLabel))
}
