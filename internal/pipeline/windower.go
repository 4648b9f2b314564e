package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"seqforge/internal/config"
	"seqforge/internal/dataset"
	apperrors "seqforge/internal/errors"
)

// WindowBatch is one bounded chunk of sequence windows. X is a
// row-major [Count][WindowLength][FeatureCount] tensor flattened into
// a single float32 slice; Y holds one label per window. EndTimestamps
// records each window's final row timestamp for bookkeeping only; it
// is never part of the feature tensor.
type WindowBatch struct {
	Index         int
	Count         int
	WindowLength  int
	FeatureCount  int
	X             []float32
	Y             []float32
	EndTimestamps []time.Time
}

// XShape returns the tensor shape of X.
func (b *WindowBatch) XShape() []int {
	return []int{b.Count, b.WindowLength, b.FeatureCount}
}

// YShape returns the tensor shape of Y.
func (b *WindowBatch) YShape() []int {
	return []int{b.Count, 1}
}

// Windower slices a partition into fixed-length, stride-1 sequence
// windows and hands them to an emit callback in chunks of bounded
// size. Chunks are produced strictly in order; each one can be
// externalized and discarded before the next is built, which is what
// bounds peak memory.
type Windower struct {
	windowLength int
	chunkSize    int
	labelColumn  string
	logger       *slog.Logger
}

// NewWindower creates a windower.
func NewWindower(cfg config.PipelineConfig, logger *slog.Logger) *Windower {
	if logger == nil {
		logger = slog.Default()
	}
	return &Windower{
		windowLength: cfg.WindowLength,
		chunkSize:    cfg.ChunkSize,
		labelColumn:  cfg.LabelColumn,
		logger:       logger,
	}
}

// Produce walks the partition and calls emit once per chunk. The
// timestamp axis never enters the feature tensor, and the label of a
// window is simply its final row's pre-computed label column value.
// Fewer rows than one window length yields an INSUFFICIENT_DATA error
// and no emissions.
func (w *Windower) Produce(f *dataset.Frame, name string, emit func(*WindowBatch) error) error {
	label := f.Column(w.labelColumn)
	if label == nil {
		return apperrors.New(apperrors.ErrTypeCannotBuildLabel,
			fmt.Sprintf("partition %s has no label column %s", name, w.labelColumn))
	}

	featureCols := make([]string, 0, len(f.Columns()))
	for _, col := range f.Columns() {
		if col != w.labelColumn {
			featureCols = append(featureCols, col)
		}
	}

	n := f.Rows()
	if n < w.windowLength {
		return apperrors.New(apperrors.ErrTypeInsufficientData,
			fmt.Sprintf("partition %s has %d rows, need %d for one window", name, n, w.windowLength))
	}

	features := make([][]float64, len(featureCols))
	for i, col := range featureCols {
		features[i] = f.Column(col)
	}

	totalWindows := n - w.windowLength + 1
	w.logger.Info("building sequence windows",
		slog.String("partition", name),
		slog.Int("rows", n),
		slog.Int("window_length", w.windowLength),
		slog.Int("total_windows", totalWindows),
		slog.Int("feature_count", len(featureCols)))

	for start, index := 0, 0; start < totalWindows; index++ {
		end := start + w.chunkSize
		if end > totalWindows {
			end = totalWindows
		}
		batch := w.buildBatch(index, start, end, features, label, f.Timestamps())
		if err := emit(batch); err != nil {
			return fmt.Errorf("emit chunk %d of partition %s: %w", index, name, err)
		}
		start = end
	}
	return nil
}

// buildBatch materializes windows [start, end) into one batch.
func (w *Windower) buildBatch(index, start, end int, features [][]float64, label []float64, ts []time.Time) *WindowBatch {
	count := end - start
	featureCount := len(features)
	batch := &WindowBatch{
		Index:         index,
		Count:         count,
		WindowLength:  w.windowLength,
		FeatureCount:  featureCount,
		X:             make([]float32, count*w.windowLength*featureCount),
		Y:             make([]float32, count),
		EndTimestamps: make([]time.Time, count),
	}

	pos := 0
	for k := start; k < end; k++ {
		for row := k; row < k+w.windowLength; row++ {
			for _, col := range features {
				batch.X[pos] = float32(col[row])
				pos++
			}
		}
		last := k + w.windowLength - 1
		batch.Y[k-start] = float32(label[last])
		batch.EndTimestamps[k-start] = ts[last]
	}
	return batch
}
