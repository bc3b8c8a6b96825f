package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/artemis/pkg/common"
)

const delta = 1e-9

func TestSandboxSimulator_NewSimulator(t *testing.T) {
	sim := NewSimulator()

	assert.Equal(t, DefaultInitialEquity, sim.InitialEquity())
	assert.Equal(t, DefaultInitialEquity, sim.Equity())
	assert.Equal(t, DefaultInitialEquity, sim.PeakEquity())
	assert.Zero(t, sim.MaxDrawdown())
	assert.Empty(t, sim.Trades())
	assert.Equal(t, []common.Equity{{TimeStamp: 0, Value: DefaultInitialEquity}}, sim.EquityCurve())

	_, open := sim.Position()
	assert.False(t, open)
}

func TestSandboxSimulator_FillPrice(t *testing.T) {
	sim := NewSimulator(WithSlippageTicks(2), WithTickSize(0.5))

	assert.InDelta(t, 101.0, sim.FillPrice(100, common.SignalLong), delta)
	assert.InDelta(t, 99.0, sim.FillPrice(100, common.SignalShort), delta)
	assert.InDelta(t, 100.0, sim.FillPrice(100, common.SignalFlat), delta)
}

func TestSandboxSimulator_OnSignal(t *testing.T) {
	tests := []struct {
		name           string
		signals        []common.Signal
		prices         []float64
		expectedEquity float64
		expectedTrades []common.Trade
		expectedCurve  int
	}{
		{
			name:           "long round trip",
			signals:        []common.Signal{common.SignalLong, common.SignalFlat},
			prices:         []float64{100, 102},
			expectedEquity: 100070.8,
			expectedTrades: []common.Trade{{
				EntryTime: 1, ExitTime: 2, EntryPrice: 100.25, ExitPrice: 101.75,
				Direction: common.SignalLong, PnL: 72.9, DurationUs: 1,
			}},
			expectedCurve: 3,
		},
		{
			name:           "short round trip",
			signals:        []common.Signal{common.SignalShort, common.SignalFlat},
			prices:         []float64{100, 98},
			expectedEquity: 100070.8,
			expectedTrades: []common.Trade{{
				EntryTime: 1, ExitTime: 2, EntryPrice: 99.75, ExitPrice: 98.25,
				Direction: common.SignalShort, PnL: 72.9, DurationUs: 1,
			}},
			expectedCurve: 3,
		},
		{
			name:           "reversal closes and reopens",
			signals:        []common.Signal{common.SignalLong, common.SignalShort},
			prices:         []float64{100, 100},
			expectedEquity: 99968.7,
			expectedTrades: []common.Trade{{
				EntryTime: 1, ExitTime: 2, EntryPrice: 100.25, ExitPrice: 99.75,
				Direction: common.SignalLong, PnL: -27.1, DurationUs: 1,
			}},
			expectedCurve: 3,
		},
		{
			name:           "repeated signal is ignored",
			signals:        []common.Signal{common.SignalLong, common.SignalLong, common.SignalLong},
			prices:         []float64{100, 110, 120},
			expectedEquity: 99997.9,
			expectedCurve:  2,
		},
		{
			name:           "flat while flat is ignored",
			signals:        []common.Signal{common.SignalFlat},
			prices:         []float64{100},
			expectedEquity: DefaultInitialEquity,
			expectedCurve:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator()
			for i, signal := range tt.signals {
				sim.OnSignal(tt.prices[i], int64(i+1), signal)
			}

			assert.InDelta(t, tt.expectedEquity, sim.Equity(), delta)
			assert.Len(t, sim.EquityCurve(), tt.expectedCurve)
			require.Len(t, sim.Trades(), len(tt.expectedTrades))
			for i, expected := range tt.expectedTrades {
				actual := sim.Trades()[i]
				assert.Equal(t, expected.EntryTime, actual.EntryTime)
				assert.Equal(t, expected.ExitTime, actual.ExitTime)
				assert.InDelta(t, expected.EntryPrice, actual.EntryPrice, delta)
				assert.InDelta(t, expected.ExitPrice, actual.ExitPrice, delta)
				assert.Equal(t, expected.Direction, actual.Direction)
				assert.InDelta(t, expected.PnL, actual.PnL, delta)
				assert.Equal(t, expected.DurationUs, actual.DurationUs)
			}
		})
	}
}

func TestSandboxSimulator_EquityBookkeeping(t *testing.T) {
	sim := NewSimulator()

	sim.OnSignal(100, 10, common.SignalLong)
	sim.OnSignal(102, 20, common.SignalFlat)
	sim.OnSignal(100, 30, common.SignalShort)
	sim.OnSignal(104, 40, common.SignalFlat)

	trades := sim.Trades()
	require.Len(t, trades, 2)

	var pnl float64
	for _, trade := range trades {
		pnl += trade.PnL
	}
	// Entry commissions are charged outside of trade pnl.
	assert.InDelta(t, sim.InitialEquity()+pnl-2*DefaultCommission, sim.Equity(), delta)

	curve := sim.EquityCurve()
	require.Len(t, curve, 5)
	assert.Equal(t, int64(0), curve[0].TimeStamp)
	assert.Equal(t, int64(40), curve[4].TimeStamp)
	assert.InDelta(t, sim.Equity(), curve[4].Value, delta)

	peak := 0.0
	for _, sample := range curve {
		peak = max(peak, sample.Value)
	}
	assert.InDelta(t, peak, sim.PeakEquity(), delta)
	assert.InDelta(t, (sim.PeakEquity()-sim.Equity())/sim.PeakEquity(), sim.MaxDrawdown(), delta)
	assert.GreaterOrEqual(t, sim.PeakEquity(), sim.Equity())
}

func TestSandboxSimulator_Flatten(t *testing.T) {
	sim := NewSimulator()

	assert.False(t, sim.Flatten(100, 1))
	assert.Len(t, sim.EquityCurve(), 1)

	sim.OnSignal(100, 1, common.SignalShort)
	position, open := sim.Position()
	require.True(t, open)
	assert.Equal(t, common.SignalShort, position.Direction)
	assert.InDelta(t, 99.75, position.EntryPrice, delta)

	assert.True(t, sim.Flatten(99, 5))
	_, open = sim.Position()
	assert.False(t, open)
	require.Len(t, sim.Trades(), 1)
	assert.Equal(t, int64(5), sim.Trades()[0].ExitTime)
	assert.Equal(t, common.SignalFlat, sim.Direction())
}

func TestSandboxSimulator_Handlers(t *testing.T) {
	var trades []common.Trade
	var samples []common.Equity

	sim := NewSimulator(
		WithInitialEquity(5000),
		WithCommission(0),
		WithSlippageTicks(0),
		WithContractMultiplier(1),
		WithTradeHandler(func(trade common.Trade) { trades = append(trades, trade) }),
		WithEquityHandler(func(sample common.Equity) { samples = append(samples, sample) }),
	)

	sim.OnSignal(10, 1, common.SignalLong)
	sim.OnSignal(15, 2, common.SignalFlat)

	require.Len(t, trades, 1)
	assert.InDelta(t, 5.0, trades[0].PnL, delta)
	assert.Equal(t, sim.EquityCurve(), samples)
	assert.InDelta(t, 5005.0, sim.Equity(), delta)
}

func TestSandboxSimulator_NetPnL(t *testing.T) {
	sim := NewSimulator()

	sim.OnSignal(94.125, 2, common.SignalLong)
	sim.OnSignal(100.125, 3, common.SignalFlat)

	require.Len(t, sim.Trades(), 1)
	trade := sim.Trades()[0]
	gross := (trade.ExitPrice - trade.EntryPrice) * DefaultContractMultiplier

	assert.InDelta(t, gross-DefaultCommission, trade.PnL, delta)
	assert.InDelta(t, gross-2*DefaultCommission, trade.NetPnL(), delta)
	assert.InDelta(t, sim.InitialEquity()+trade.NetPnL(), sim.Equity(), delta)
}
