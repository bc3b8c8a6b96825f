package math

func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, r := range data {
		sum += r
	}
	return sum / float64(len(data))
}
