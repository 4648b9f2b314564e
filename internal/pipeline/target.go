package pipeline

import (
	"fmt"
	"log/slog"
	"math"

	"seqforge/internal/dataset"
	apperrors "seqforge/internal/errors"
	"seqforge/internal/features"
)

// TargetBuilder appends the supervised label column: the tracking
// instrument's price shifted backward by the horizon, so row i is
// labelled with the price observed h rows later. The final h rows
// have no label.
type TargetBuilder struct {
	tracking    string
	labelColumn string
	horizon     int
	logger      *slog.Logger
}

// NewTargetBuilder creates a target builder for the named tracking
// source.
func NewTargetBuilder(tracking, labelColumn string, horizon int, logger *slog.Logger) *TargetBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &TargetBuilder{
		tracking:    tracking,
		labelColumn: labelColumn,
		horizon:     horizon,
		logger:      logger,
	}
}

// Build appends the label column in place. A missing tracking price
// column is fatal: without it no label, and therefore no dataset, can
// be produced.
func (t *TargetBuilder) Build(f *dataset.Frame) error {
	price := f.Column(features.PriceColumn(t.tracking))
	if price == nil {
		return apperrors.New(apperrors.ErrTypeCannotBuildLabel,
			fmt.Sprintf("tracking price column %s missing, cannot build label",
				features.PriceColumn(t.tracking)))
	}

	n := len(price)
	label := make([]float64, n)
	for i := range label {
		if i+t.horizon < n {
			label[i] = price[i+t.horizon]
		} else {
			label[i] = math.NaN()
		}
	}
	if err := f.AddColumn(t.labelColumn, label); err != nil {
		return err
	}

	t.logger.Info("label column built",
		slog.String("column", t.labelColumn),
		slog.Int("horizon_rows", t.horizon),
		slog.Int("unlabelled_tail_rows", min(t.horizon, n)))
	return nil
}
