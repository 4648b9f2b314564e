package pipeline

import (
	"log/slog"
	"time"

	"seqforge/internal/dataset"
	"seqforge/internal/features"
)

// Aligner merges the three raw series onto one strictly increasing
// timestamp axis. The volatility series is sampled at a lower
// frequency than the other two and is resampled up to the common
// cadence before joining.
type Aligner struct {
	cadence time.Duration
	logger  *slog.Logger
}

// NewAligner creates an aligner for the given cadence.
func NewAligner(cadence time.Duration, logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{cadence: cadence, logger: logger}
}

// Align sorts, prefixes, resamples and outer-joins the three series,
// then forward-fills the merged table. Sources are identified by the
// name that prefixes their columns (e.g. "spx" yields "spx_price").
// If every input is empty the result is an empty frame, not an error;
// downstream stages handle emptiness themselves.
func (a *Aligner) Align(index, tracking, volatility *dataset.Frame, names features.Sources) (*dataset.Frame, error) {
	a.prepare(index, names.Index)
	a.prepare(tracking, names.Tracking)
	a.prepare(volatility, names.Volatility)

	// Last observation per interval, then forward-fill, so the
	// resampled series has no interior gaps before it joins the
	// higher-frequency pair.
	resampled := volatility.Resample(a.cadence)
	resampled.ForwardFill()

	a.logger.Info("aligning series",
		slog.Int("index_rows", index.Rows()),
		slog.Int("tracking_rows", tracking.Rows()),
		slog.Int("volatility_rows", volatility.Rows()),
		slog.Int("volatility_resampled_rows", resampled.Rows()))

	merged, err := index.OuterJoin(tracking)
	if err != nil {
		return nil, err
	}
	merged, err = merged.OuterJoin(resampled)
	if err != nil {
		return nil, err
	}

	merged.SortByTimestamp()
	merged.ForwardFill()

	a.logger.Info("alignment complete",
		slog.Int("merged_rows", merged.Rows()),
		slog.Int("merged_columns", len(merged.Columns())))
	return merged, nil
}

// prepare sorts one raw series by timestamp and prefixes its generic
// column names with the source name.
func (a *Aligner) prepare(f *dataset.Frame, name string) {
	f.SortByTimestamp()
	f.RenameColumn(dataset.ColPrice, features.PriceColumn(name))
	f.RenameColumn(dataset.ColVolume, features.VolumeColumn(name))
}
