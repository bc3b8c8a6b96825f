package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/tools/indicators"
)

type fixedStatistics struct {
	ready bool
	mean  float64
	sd    float64
}

func (f fixedStatistics) IsReady() bool { return f.ready }

func (f fixedStatistics) ZScore(value float64) float64 {
	return (value - f.mean) / f.sd
}

func TestStrategyNext(t *testing.T) {
	const threshold = 2.5

	tests := []struct {
		name     string
		current  common.Signal
		z        float64
		expected common.Signal
	}{
		{"flat below -threshold enters long", common.SignalFlat, -2.6, common.SignalLong},
		{"flat above threshold enters short", common.SignalFlat, 2.6, common.SignalShort},
		{"flat at -threshold stays flat", common.SignalFlat, -2.5, common.SignalFlat},
		{"flat at threshold stays flat", common.SignalFlat, 2.5, common.SignalFlat},
		{"flat inside band stays flat", common.SignalFlat, 1.0, common.SignalFlat},
		{"long at zero exits", common.SignalLong, 0, common.SignalFlat},
		{"long above zero exits", common.SignalLong, 0.1, common.SignalFlat},
		{"long below zero holds", common.SignalLong, -1.0, common.SignalLong},
		{"long far above threshold exits, no reversal", common.SignalLong, 3.0, common.SignalFlat},
		{"short at zero exits", common.SignalShort, 0, common.SignalFlat},
		{"short below zero exits", common.SignalShort, -0.1, common.SignalFlat},
		{"short above zero holds", common.SignalShort, 1.0, common.SignalShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Next(tt.current, tt.z, threshold))
		})
	}
}

func TestStrategySignalGenerator_NotReady(t *testing.T) {
	g := NewSignalGenerator(2.5)
	stats := indicators.NewRollingStatistics(100)
	for i := 0; i < 50; i++ {
		stats.Update(100 + float64(i))
	}

	assert.Equal(t, common.SignalFlat, g.Generate(0, stats))
	assert.Equal(t, common.SignalFlat, g.Current())
	assert.Equal(t, 0.0, g.LastZScore())
}

func TestStrategySignalGenerator_StateMachine(t *testing.T) {
	g := NewSignalGenerator(2.5)
	stats := fixedStatistics{ready: true, mean: 100, sd: 2}

	require.Equal(t, common.SignalFlat, g.Current())

	g.Generate(100-3*2, stats)
	assert.Equal(t, common.SignalLong, g.Current())
	assert.InDelta(t, -3.0, g.LastZScore(), 1e-12)

	g.Generate(100-1*2, stats)
	assert.Equal(t, common.SignalLong, g.Current())

	g.Generate(100, stats)
	assert.Equal(t, common.SignalFlat, g.Current())

	g.Generate(100+3*2, stats)
	assert.Equal(t, common.SignalShort, g.Current())

	g.Generate(100-1*2, stats)
	assert.Equal(t, common.SignalFlat, g.Current())

	g.Generate(100+2.5*2, stats)
	assert.Equal(t, common.SignalFlat, g.Current())
}

func TestStrategySignalGenerator_RollingStatistics(t *testing.T) {
	stats := indicators.NewRollingStatistics(100)
	for i := 0; i < 150; i++ {
		stats.Update(100 + float64(i%10) - 5)
	}
	mean, sd := stats.Mean(), stats.StdDev()
	require.Greater(t, sd, 0.0)

	long := NewSignalGenerator(2.5)
	assert.Equal(t, common.SignalLong, long.Generate(mean-3*sd, stats))

	short := NewSignalGenerator(2.5)
	assert.Equal(t, common.SignalShort, short.Generate(mean+3*sd, stats))

	band := NewSignalGenerator(2.5)
	assert.Equal(t, common.SignalFlat, band.Generate(mean-2.4*sd, stats))
	assert.Equal(t, common.SignalLong, band.Generate(mean-2.6*sd, stats))
}

func TestStrategySignalGenerator_Threshold(t *testing.T) {
	g := NewSignalGenerator(2.5)
	assert.Equal(t, 2.5, g.Threshold())

	g.SetThreshold(3.0)
	assert.Equal(t, 3.0, g.Threshold())

	stats := fixedStatistics{ready: true, mean: 0, sd: 1}
	assert.Equal(t, common.SignalFlat, g.Generate(-2.8, stats))

	g.SetThreshold(2.0)
	assert.Equal(t, common.SignalLong, g.Generate(-2.8, stats))

	g.Reset()
	assert.Equal(t, common.SignalFlat, g.Current())
}
