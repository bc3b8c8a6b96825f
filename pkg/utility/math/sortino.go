package math

func SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	downside := DownsideDeviation(returns, riskFreeRate)
	if downside <= epsilon {
		return 0
	}
	return (Mean(returns) - riskFreeRate) / downside
}
