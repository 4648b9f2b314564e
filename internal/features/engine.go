// Package features computes the technical indicator columns of the
// merged dataset: MACD, Bollinger bands, RSI, on-balance volume, EMAs
// and the rolling cross-correlation between the tracking and
// volatility series.
package features

import (
	"fmt"
	"log/slog"
	"math"

	"seqforge/internal/dataset"
)

// Default indicator parameters, matching the conventional settings the
// downstream model was trained against. The RSI epsilon guards the
// gain/loss ratio against division by zero and must stay at 1e-9 for
// parity with previously produced datasets.
const (
	MACDFastSpan    = 12
	MACDSlowSpan    = 26
	MACDSignalSpan  = 9
	BollingerWindow = 20
	BollingerWidth  = 2.0
	RSIPeriod       = 14
	RSIEpsilon      = 1e-9
	CorrWindow      = 30
	VolFastEMASpan  = 10
	VolSlowEMASpan  = 20
)

// Sources names the column prefixes of the three aligned series.
type Sources struct {
	Index      string
	Tracking   string
	Volatility string
}

// Engine appends technical-indicator columns to an aligned frame.
// Indicators never mutate existing columns; each source is computed
// independently and skipped with a notice when its price column is
// absent.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates an indicator engine. A nil logger falls back to
// slog.Default.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Apply computes all indicator columns over the frame. The frame is
// re-sorted by timestamp first; trailing-window math is only valid on
// an ascending axis.
func (e *Engine) Apply(f *dataset.Frame, src Sources) {
	if f.Empty() {
		e.logger.Warn("indicator engine skipped, empty frame")
		return
	}
	f.SortByTimestamp()

	e.addTrendIndicators(f, src.Index)
	e.addTrendIndicators(f, src.Tracking)
	e.addVolatilityIndicators(f, src.Volatility)
	e.addCrossCorrelation(f, src.Tracking, src.Volatility)
}

// PriceColumn returns the aligned price column name for a source.
func PriceColumn(source string) string { return source + "_price" }

// VolumeColumn returns the aligned volume column name for a source.
func VolumeColumn(source string) string { return source + "_volume" }

// addTrendIndicators computes MACD, Bollinger bands, RSI and, when a
// volume column exists, OBV for one price source.
func (e *Engine) addTrendIndicators(f *dataset.Frame, source string) {
	price := f.Column(PriceColumn(source))
	if price == nil {
		e.logger.Info("no price column, skipping indicators", slog.String("source", source))
		return
	}

	e.addMACD(f, source, price)
	e.addBollinger(f, source, price)
	e.addRSI(f, source, price)
	e.addOBV(f, source, price)
}

// addVolatilityIndicators computes the reduced indicator set used for
// the volatility series: RSI, fast/slow EMAs and MACD. Bollinger bands
// and OBV are intentionally not computed for this source.
func (e *Engine) addVolatilityIndicators(f *dataset.Frame, source string) {
	price := f.Column(PriceColumn(source))
	if price == nil {
		e.logger.Info("no price column, skipping indicators", slog.String("source", source))
		return
	}

	e.addRSI(f, source, price)
	f.AddColumn(fmt.Sprintf("%s_ema_%d", source, VolFastEMASpan), EMA(price, VolFastEMASpan))
	f.AddColumn(fmt.Sprintf("%s_ema_%d", source, VolSlowEMASpan), EMA(price, VolSlowEMASpan))
	e.addMACD(f, source, price)
}

func (e *Engine) addMACD(f *dataset.Frame, source string, price []float64) {
	fast := EMA(price, MACDFastSpan)
	slow := EMA(price, MACDSlowSpan)
	macd := make([]float64, len(price))
	for i := range macd {
		macd[i] = fast[i] - slow[i]
	}
	f.AddColumn(source+"_macd", macd)
	f.AddColumn(source+"_macd_signal", EMA(macd, MACDSignalSpan))
}

func (e *Engine) addBollinger(f *dataset.Frame, source string, price []float64) {
	mean := RollingMean(price, BollingerWindow)
	std := RollingStd(price, BollingerWindow)
	upper := make([]float64, len(price))
	lower := make([]float64, len(price))
	for i := range price {
		upper[i] = mean[i] + BollingerWidth*std[i]
		lower[i] = mean[i] - BollingerWidth*std[i]
	}
	f.AddColumn(source+"_boll_upper", upper)
	f.AddColumn(source+"_boll_lower", lower)
}

func (e *Engine) addRSI(f *dataset.Frame, source string, price []float64) {
	delta := Diff(price)
	gains := make([]float64, len(delta))
	losses := make([]float64, len(delta))
	for i, d := range delta {
		// A missing difference contributes neither gain nor loss.
		if d > 0 {
			gains[i] = d
		} else if d < 0 {
			losses[i] = -d
		}
	}
	meanGain := RollingMean(gains, RSIPeriod)
	meanLoss := RollingMean(losses, RSIPeriod)
	rsi := make([]float64, len(delta))
	for i := range rsi {
		rs := meanGain[i] / (meanLoss[i] + RSIEpsilon)
		rsi[i] = 100 - 100/(1+rs)
	}
	f.AddColumn(source+"_rsi", rsi)
}

func (e *Engine) addOBV(f *dataset.Frame, source string, price []float64) {
	volume := f.Column(VolumeColumn(source))
	if volume == nil {
		return
	}
	delta := Diff(price)
	obv := make([]float64, len(price))
	running := 0.0
	for i := range obv {
		term := Sign(delta[i]) * volume[i]
		if math.IsNaN(term) {
			term = 0
		}
		running += term
		obv[i] = running
	}
	f.AddColumn(source+"_obv", obv)
}

// addCrossCorrelation appends the trailing correlation between the
// tracking and volatility prices. Skipped unless both columns exist.
func (e *Engine) addCrossCorrelation(f *dataset.Frame, tracking, volatility string) {
	a := f.Column(PriceColumn(tracking))
	b := f.Column(PriceColumn(volatility))
	if a == nil || b == nil {
		e.logger.Info("missing price columns, skipping rolling correlation",
			slog.String("tracking", tracking),
			slog.String("volatility", volatility))
		return
	}
	name := fmt.Sprintf("%s_%s_corr_%d", tracking, volatility, CorrWindow)
	f.AddColumn(name, RollingCorr(a, b, CorrWindow))
}
