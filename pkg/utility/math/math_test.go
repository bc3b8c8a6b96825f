package math

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMath_Mean(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-12)
}

func TestMath_StandardDeviation(t *testing.T) {
	data := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	mean := Mean(data)

	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, StandardDeviation(data, mean), 1e-12)
	assert.InDelta(t, stdmath.Sqrt(32.0/7.0), SampleStandardDeviation(data, mean), 1e-12)
	assert.Zero(t, SampleStandardDeviation([]float64{1}, 1))
	assert.Zero(t, StandardDeviation(nil, 0))
}

func TestMath_DownsideDeviation(t *testing.T) {
	assert.Zero(t, DownsideDeviation([]float64{0.1, 0.2}, 0))
	assert.InDelta(t, stdmath.Sqrt((0.01+0.04)/2), DownsideDeviation([]float64{-0.1, 0.3, -0.2}, 0), 1e-12)
}

func TestMath_SharpeRatio(t *testing.T) {
	assert.InDelta(t, 2.0, SharpeRatio(0.1, 0.05), 1e-12)
	assert.Zero(t, SharpeRatio(0.1, 0))
	assert.Zero(t, SharpeRatio(0.1, 1e-12))
}

func TestMath_SortinoRatio(t *testing.T) {
	returns := []float64{-0.1, 0.3, -0.2}
	expected := Mean(returns) / DownsideDeviation(returns, 0)

	assert.InDelta(t, expected, SortinoRatio(returns, 0), 1e-12)
	assert.Zero(t, SortinoRatio([]float64{0.1, 0.2}, 0))
}
