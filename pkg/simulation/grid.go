package simulation

import (
	"fmt"
	"math"
)

const gridPrecision = 1e9

// ThresholdGrid returns from, from+step, ... up to and including to.
func ThresholdGrid(from, to, step float64) ([]float64, error) {
	if step <= 0 {
		return nil, fmt.Errorf("threshold step must be positive, got %v", step)
	}
	if to < from {
		return nil, fmt.Errorf("threshold range is empty: from %v > to %v", from, to)
	}

	n := int(math.Floor((to-from)/step+1e-9)) + 1
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = math.Round((from+float64(i)*step)*gridPrecision) / gridPrecision
	}
	return grid, nil
}
