package strategy

import (
	"math"
	"sync/atomic"

	"github.com/peter-kozarec/artemis/pkg/common"
)

// Statistics is the read side of a rolling statistics engine.
type Statistics interface {
	IsReady() bool
	ZScore(value float64) float64
}

// SignalGenerator is a mean reversion state machine. From FLAT it enters LONG
// when the z-score drops strictly below -threshold and SHORT when it rises
// strictly above +threshold. An open position exits once the z-score crosses
// back to zero.
//
// Generate must be called from a single goroutine. The threshold may be changed
// from anywhere and is picked up by the next evaluation.
type SignalGenerator struct {
	threshold atomic.Uint64

	current    common.Signal
	lastZScore float64
}

func NewSignalGenerator(threshold float64) *SignalGenerator {
	g := &SignalGenerator{}
	g.SetThreshold(threshold)
	return g
}

// Generate evaluates one observation. Until the statistics are ready it returns
// FLAT and leaves the state untouched.
func (g *SignalGenerator) Generate(price float64, stats Statistics) common.Signal {
	if !stats.IsReady() {
		return common.SignalFlat
	}

	z := stats.ZScore(price)
	g.lastZScore = z
	g.current = Next(g.current, z, g.Threshold())
	return g.current
}

// Next is the transition function of the state machine.
func Next(current common.Signal, z, threshold float64) common.Signal {
	switch current {
	case common.SignalFlat:
		if z < -threshold {
			return common.SignalLong
		}
		if z > threshold {
			return common.SignalShort
		}
	case common.SignalLong:
		if z >= 0 {
			return common.SignalFlat
		}
	case common.SignalShort:
		if z <= 0 {
			return common.SignalFlat
		}
	}
	return current
}

func (g *SignalGenerator) Current() common.Signal {
	return g.current
}

func (g *SignalGenerator) LastZScore() float64 {
	return g.lastZScore
}

func (g *SignalGenerator) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

func (g *SignalGenerator) SetThreshold(threshold float64) {
	g.threshold.Store(math.Float64bits(threshold))
}

func (g *SignalGenerator) Reset() {
	g.current = common.SignalFlat
	g.lastZScore = 0
}
