package math

import (
	stdmath "math"
)

func DownsideDeviation(returns []float64, riskFreeRate float64) float64 {
	var sum float64
	var count int
	for _, r := range returns {
		if r < riskFreeRate {
			diff := r - riskFreeRate
			sum += diff * diff
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return stdmath.Sqrt(sum / float64(count))
}

// StandardDeviation is the population deviation of returns around mean.
func StandardDeviation(returns []float64, mean float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	return stdmath.Sqrt(squaredDeviation(returns, mean) / float64(len(returns)))
}

// SampleStandardDeviation divides by n-1 and is zero for fewer than two returns.
func SampleStandardDeviation(returns []float64, mean float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stdmath.Sqrt(squaredDeviation(returns, mean) / float64(len(returns)-1))
}

func squaredDeviation(returns []float64, mean float64) float64 {
	var sum float64
	for _, r := range returns {
		diff := r - mean
		sum += diff * diff
	}
	return sum
}
