package pipeline

import (
	"log/slog"

	"seqforge/internal/config"
	"seqforge/internal/dataset"
)

// Partitions holds the three chronological segments of the cleaned
// dataset.
type Partitions struct {
	Train *dataset.Frame
	Val   *dataset.Frame
	Test  *dataset.Frame
}

// Splitter partitions the cleaned dataset into train/validation/test
// segments by row position. There is no shuffling: order is the whole
// point, any reordering would leak future rows into training.
type Splitter struct {
	trainFrac float64
	valFrac   float64
	logger    *slog.Logger
}

// NewSplitter creates a splitter from the configured fractions.
func NewSplitter(cfg config.PipelineConfig, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{trainFrac: cfg.TrainFrac, valFrac: cfg.ValFrac, logger: logger}
}

// Split re-sorts defensively and cuts the dataset into three
// contiguous segments. Boundary indices truncate the fractional row
// counts.
func (s *Splitter) Split(f *dataset.Frame) Partitions {
	f.SortByTimestamp()

	n := f.Rows()
	trainEnd := int(float64(n) * s.trainFrac)
	valEnd := int(float64(n) * (s.trainFrac + s.valFrac))

	p := Partitions{
		Train: f.Slice(0, trainEnd),
		Val:   f.Slice(trainEnd, valEnd),
		Test:  f.Slice(valEnd, n),
	}
	s.logger.Info("chronological split",
		slog.Int("total_rows", n),
		slog.Int("train_rows", p.Train.Rows()),
		slog.Int("val_rows", p.Val.Rows()),
		slog.Int("test_rows", p.Test.Rows()))
	return p
}
