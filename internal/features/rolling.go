package features

import "math"

// Rolling and recursive primitives used by the indicator engine. All
// functions return a slice of the input length with NaN marking rows
// where the value is undefined. Trailing-window functions require a
// full window of observed values and produce NaN otherwise; there is
// no partial-window computation.

// EMA computes an exponential moving average with smoothing factor
// alpha = 2/(span+1). The recurrence seeds on the first observed value:
// out[0] = in[0], out[t] = alpha*in[t] + (1-alpha)*out[t-1]. Missing
// inputs yield a missing output and leave the running state untouched.
func EMA(in []float64, span int) []float64 {
	out := make([]float64, len(in))
	alpha := 2.0 / (float64(span) + 1.0)
	state := math.NaN()
	for i, v := range in {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		if math.IsNaN(state) {
			state = v
		} else {
			state = alpha*v + (1-alpha)*state
		}
		out[i] = state
	}
	return out
}

// RollingMean computes a trailing mean over the given window.
func RollingMean(in []float64, window int) []float64 {
	out := make([]float64, len(in))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(in[j]) {
				ok = false
				break
			}
			sum += in[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// RollingStd computes a trailing sample standard deviation (n-1
// denominator) over the given window.
func RollingStd(in []float64, window int) []float64 {
	out := make([]float64, len(in))
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window || window < 2 {
			continue
		}
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(in[j]) {
				ok = false
				break
			}
			sum += in[j]
		}
		if !ok {
			continue
		}
		mean := sum / float64(window)
		ss := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := in[j] - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// Diff computes the period-over-period difference. The first element
// is missing, as is any element where either operand is missing.
func Diff(in []float64) []float64 {
	out := make([]float64, len(in))
	if len(in) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(in); i++ {
		out[i] = in[i] - in[i-1]
	}
	return out
}

// RollingCorr computes a trailing Pearson correlation between a and b
// over the given window. Windows containing a missing value in either
// series, or a zero-variance series, produce NaN.
func RollingCorr(a, b []float64, window int) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
		if i+1 < window {
			continue
		}
		var sumA, sumB float64
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(a[j]) || math.IsNaN(b[j]) {
				ok = false
				break
			}
			sumA += a[j]
			sumB += b[j]
		}
		if !ok {
			continue
		}
		meanA := sumA / float64(window)
		meanB := sumB / float64(window)
		var cov, varA, varB float64
		for j := i - window + 1; j <= i; j++ {
			da := a[j] - meanA
			db := b[j] - meanB
			cov += da * db
			varA += da * da
			varB += db * db
		}
		if varA == 0 || varB == 0 {
			continue
		}
		out[i] = cov / math.Sqrt(varA*varB)
	}
	return out
}

// Sign returns -1, 0 or +1 for the sign of v, treating NaN as 0.
func Sign(v float64) float64 {
	switch {
	case math.IsNaN(v) || v == 0:
		return 0
	case v > 0:
		return 1
	default:
		return -1
	}
}
