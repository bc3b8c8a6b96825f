package math

const epsilon = 1e-10

// SharpeRatio returns excess return per unit of volatility, or zero when the
// volatility is indistinguishable from zero.
func SharpeRatio(excessReturn, volatility float64) float64 {
	if volatility <= epsilon {
		return 0
	}
	return excessReturn / volatility
}
