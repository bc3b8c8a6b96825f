package indicators

import (
	"math"
	"sync/atomic"
)

const (
	// stdDevEpsilon treats smaller deviations as zero when computing z-scores.
	stdDevEpsilon = 1e-10
	// bufferAlignment rounds the raw window up to whole 64-byte lines of float64.
	bufferAlignment = 8
)

// RollingStatistics maintains mean and variance over the last windowSize
// observations of a scalar series in O(1) per update.
//
// While the window fills the estimates are exact (Welford). Once it has filled
// the update switches to an exponentially weighted mean and variance with
// alpha = 2/(windowSize+1), which approximates the rolling window without
// rescanning it.
//
// Only the write index and the count are atomic. Mean and variance are plain
// fields, so Update must be called from a single goroutine; readers on other
// goroutines may only rely on Count and IsReady.
type RollingStatistics struct {
	windowSize uint64
	alpha      float64

	buffer     []float64
	writeIndex atomic.Uint64
	count      atomic.Uint64

	mean     float64
	variance float64
	m2       float64
}

func NewRollingStatistics(windowSize int) *RollingStatistics {
	if windowSize <= 0 {
		panic("window size must be > 0")
	}

	alignedSize := (windowSize + bufferAlignment - 1) &^ (bufferAlignment - 1)

	return &RollingStatistics{
		windowSize: uint64(windowSize),
		alpha:      2.0 / (float64(windowSize) + 1.0),
		buffer:     make([]float64, alignedSize),
	}
}

func (s *RollingStatistics) Update(value float64) {
	idx := (s.writeIndex.Add(1) - 1) % s.windowSize
	oldCount := s.count.Add(1) - 1

	s.buffer[idx] = value

	if oldCount >= s.windowSize {
		s.updateEWMA(value)
		return
	}

	if oldCount == 0 {
		s.mean = value
		s.variance = 0
		s.m2 = 0
		return
	}

	n := float64(oldCount + 1)
	delta := value - s.mean
	s.mean += delta / n
	s.m2 += delta * (value - s.mean)
	s.variance = s.m2 / n
}

func (s *RollingStatistics) updateEWMA(value float64) {
	oldMean := s.mean
	s.mean = s.alpha*value + (1-s.alpha)*s.mean

	delta := value - oldMean
	s.variance = (1 - s.alpha) * (s.variance + s.alpha*delta*delta)

	// Floating point underflow must not produce a negative variance.
	if s.variance < 0 {
		s.variance = 0
	}
}

func (s *RollingStatistics) Mean() float64 {
	return s.mean
}

func (s *RollingStatistics) Variance() float64 {
	return s.variance
}

func (s *RollingStatistics) StdDev() float64 {
	return math.Sqrt(s.variance)
}

// ZScore is zero when the standard deviation is indistinguishable from zero.
func (s *RollingStatistics) ZScore(value float64) float64 {
	sd := s.StdDev()
	if sd <= stdDevEpsilon {
		return 0
	}
	return (value - s.mean) / sd
}

func (s *RollingStatistics) Count() uint64 {
	return s.count.Load()
}

func (s *RollingStatistics) WindowSize() int {
	return int(s.windowSize)
}

func (s *RollingStatistics) IsReady() bool {
	return s.Count() >= s.windowSize
}

// Window returns the raw observations currently held, oldest first.
func (s *RollingStatistics) Window() []float64 {
	count := s.Count()
	written := s.writeIndex.Load()

	n := min(count, s.windowSize)
	out := make([]float64, 0, n)
	for i := written - n; i < written; i++ {
		out = append(out, s.buffer[i%s.windowSize])
	}
	return out
}
