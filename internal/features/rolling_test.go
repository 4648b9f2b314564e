package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEMA_ConstantSeries(t *testing.T) {
	in := make([]float64, 50)
	for i := range in {
		in[i] = 7.5
	}

	out := EMA(in, 12)

	// A constant input keeps the average exactly at the input value.
	for i, v := range out {
		assert.Equal(t, 7.5, v, "index %d", i)
	}
}

func TestEMA_ConvergesToConstantTail(t *testing.T) {
	in := []float64{100}
	for i := 0; i < 200; i++ {
		in = append(in, 5)
	}

	out := EMA(in, 12)

	assert.Equal(t, float64(100), out[0], "recurrence seeds on the first value")
	assert.InDelta(t, 5, out[len(out)-1], 1e-6, "converges to the constant tail")
}

func TestEMA_MissingValues(t *testing.T) {
	in := []float64{math.NaN(), 10, math.NaN(), 10}

	out := EMA(in, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, float64(10), out[1])
	assert.True(t, math.IsNaN(out[2]), "missing input yields missing output")
	assert.Equal(t, float64(10), out[3], "state survives missing inputs")
}

func TestRollingMean(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5}

	out := RollingMean(in, 3)

	assert.True(t, math.IsNaN(out[0]))
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, float64(2), out[2])
	assert.Equal(t, float64(4), out[4])
}

func TestRollingMean_NaNInWindow(t *testing.T) {
	in := []float64{1, math.NaN(), 3, 4, 5}

	out := RollingMean(in, 3)

	// No partial-window computation: any gap poisons the window.
	assert.True(t, math.IsNaN(out[2]))
	assert.True(t, math.IsNaN(out[3]))
	assert.Equal(t, float64(4), out[4])
}

func TestRollingStd(t *testing.T) {
	in := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	out := RollingStd(in, 8)

	for i := 0; i < 7; i++ {
		assert.True(t, math.IsNaN(out[i]))
	}
	// Sample standard deviation (n-1 denominator) of the classic set.
	assert.InDelta(t, 2.13809, out[7], 1e-4)
}

func TestDiff(t *testing.T) {
	out := Diff([]float64{10, 12, 11})

	require.Len(t, out, 3)
	assert.True(t, math.IsNaN(out[0]))
	assert.Equal(t, float64(2), out[1])
	assert.Equal(t, float64(-1), out[2])
}

func TestRollingCorr(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	up := []float64{2, 4, 6, 8, 10, 12}
	down := []float64{6, 5, 4, 3, 2, 1}

	perfect := RollingCorr(a, up, 3)
	inverse := RollingCorr(a, down, 3)

	assert.True(t, math.IsNaN(perfect[1]))
	assert.InDelta(t, 1, perfect[5], 1e-12)
	assert.InDelta(t, -1, inverse[5], 1e-12)
}

func TestRollingCorr_ZeroVariance(t *testing.T) {
	a := []float64{1, 1, 1, 1}
	b := []float64{1, 2, 3, 4}

	out := RollingCorr(a, b, 3)
	assert.True(t, math.IsNaN(out[3]), "flat series has no defined correlation")
}

func TestSign(t *testing.T) {
	assert.Equal(t, float64(1), Sign(3.2))
	assert.Equal(t, float64(-1), Sign(-0.1))
	assert.Equal(t, float64(0), Sign(0))
	assert.Equal(t, float64(0), Sign(math.NaN()))
}
