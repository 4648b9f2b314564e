package pipeline

import (
	"log/slog"
	"math"

	"seqforge/internal/config"
	"seqforge/internal/dataset"
	apperrors "seqforge/internal/errors"
)

// Cleaner turns the featured dataset into the cleaned, scaled dataset
// the splitter consumes. Its steps are strictly ordered: label rows
// first, warm-up trimming, infinity handling, column-mean imputation,
// residual row drops, and finally the one-time min-max scaling.
type Cleaner struct {
	cfg    config.PipelineConfig
	logger *slog.Logger
}

// NewCleaner creates a cleaner.
func NewCleaner(cfg config.PipelineConfig, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{cfg: cfg, logger: logger}
}

// Clean runs the cleaning sequence and returns the scaled dataset
// together with the fitted scaler. When cleaning legitimately removes
// every row it returns an empty frame and an ALL_ROWS_DROPPED error;
// the caller halts without treating it as a crash.
func (c *Cleaner) Clean(f *dataset.Frame) (*dataset.Frame, *MinMaxScaler, error) {
	initial := f.Rows()

	// 1) Drop every row without a label.
	label := f.Column(c.cfg.LabelColumn)
	if label == nil {
		return dataset.New(), nil, apperrors.New(apperrors.ErrTypeCannotBuildLabel,
			"label column missing before cleaning")
	}
	keep := make([]bool, f.Rows())
	for i, v := range label {
		keep[i] = !math.IsNaN(v)
	}
	f = f.FilterRows(keep)
	c.logger.Info("dropped unlabelled rows",
		slog.Int("before", initial),
		slog.Int("after", f.Rows()))

	// 2) Trim warm-up and cool-down rows, best effort only.
	if f.Rows() >= c.cfg.MinRows {
		lo := c.cfg.WarmupTrim
		hi := f.Rows() - c.cfg.CooldownTrim
		if lo < hi {
			f = f.Slice(lo, hi)
			c.logger.Info("trimmed warm-up and cool-down rows",
				slog.Int("warmup", c.cfg.WarmupTrim),
				slog.Int("cooldown", c.cfg.CooldownTrim),
				slog.Int("remaining", f.Rows()))
		}
	} else {
		c.logger.Warn("degraded data: too few rows, skipping warm-up trim",
			slog.Int("rows", f.Rows()),
			slog.Int("min_rows", c.cfg.MinRows))
	}

	// 3) Infinities from divisions become missing values.
	for _, name := range f.Columns() {
		vals := f.Column(name)
		for i, v := range vals {
			if math.IsInf(v, 0) {
				vals[i] = math.NaN()
			}
		}
	}

	// 4) Mean-fill partially missing columns; drop fully missing ones.
	for _, name := range f.Columns() {
		vals := f.Column(name)
		sum, count := 0.0, 0
		for _, v := range vals {
			if !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		if count == 0 {
			c.logger.Info("dropping column with no observed values", slog.String("column", name))
			f.DropColumn(name)
			continue
		}
		mean := sum / float64(count)
		for i, v := range vals {
			if math.IsNaN(v) {
				vals[i] = mean
			}
		}
	}

	// 5) The label must have survived the column drops.
	if !f.HasColumn(c.cfg.LabelColumn) {
		c.logger.Warn("label column gone after cleaning, no data can be produced")
		return dataset.New(), nil, apperrors.New(apperrors.ErrTypeAllRowsDropped,
			"label column entirely missing after cleaning")
	}
	featureCols := c.featureColumns(f)

	// 6) Drop any row still missing a feature value.
	before := f.Rows()
	keep = keep[:0]
	for i := 0; i < f.Rows(); i++ {
		ok := true
		for _, name := range featureCols {
			if math.IsNaN(f.Column(name)[i]) {
				ok = false
				break
			}
		}
		keep = append(keep, ok)
	}
	f = f.FilterRows(keep)
	c.logger.Info("dropped rows with residual missing values",
		slog.Int("before", before),
		slog.Int("after", f.Rows()))

	// 7) Nothing left is a data-driven outcome, not a crash.
	if f.Empty() {
		c.logger.Warn("all rows removed during cleaning")
		return f, nil, apperrors.New(apperrors.ErrTypeAllRowsDropped,
			"cleaning removed every row")
	}

	// 8) Fit the scaler once and scale features in place. The label
	// keeps its original units.
	scaler := NewMinMaxScaler()
	if err := scaler.Fit(f, featureCols); err != nil {
		return nil, nil, err
	}
	if err := scaler.Transform(f); err != nil {
		return nil, nil, err
	}
	c.logger.Info("cleaning complete",
		slog.Int("initial_rows", initial),
		slog.Int("final_rows", f.Rows()),
		slog.Int("scaled_columns", len(featureCols)))

	return f, scaler, nil
}

// featureColumns returns every column except the label.
func (c *Cleaner) featureColumns(f *dataset.Frame) []string {
	cols := make([]string, 0, len(f.Columns()))
	for _, name := range f.Columns() {
		if name != c.cfg.LabelColumn {
			cols = append(cols, name)
		}
	}
	return cols
}
