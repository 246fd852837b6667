package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile_LinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	assert.InDelta(t, 2.5, quantile(values, 0.5), 1e-9)
	// pos = 0.75 × 3 = 2.25 → 3×0.75 + 4×0.25
	assert.InDelta(t, 3.25, quantile(values, 0.75), 1e-9)
	assert.InDelta(t, 1.0, quantile(values, 0), 1e-9)
	assert.InDelta(t, 4.0, quantile(values, 1), 1e-9)
}

func TestQuantile_IgnoresNaN(t *testing.T) {
	values := []float64{1, math.NaN(), 3}
	assert.InDelta(t, 2.0, quantile(values, 0.5), 1e-9)
}

func TestQuantile_UnsortedInput(t *testing.T) {
	values := []float64{30, 10, 20}
	assert.InDelta(t, 20.0, quantile(values, 0.5), 1e-9)
}

func TestQuantile_Empty(t *testing.T) {
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
	assert.True(t, math.IsNaN(quantile([]float64{math.NaN()}, 0.5)))
}

func TestQuantile_SingleValue(t *testing.T) {
	assert.Equal(t, 7.0, quantile([]float64{7}, 0.75))
}
