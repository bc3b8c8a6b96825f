package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignal_String(t *testing.T) {
	assert.Equal(t, "FLAT", SignalFlat.String())
	assert.Equal(t, "LONG", SignalLong.String())
	assert.Equal(t, "SHORT", SignalShort.String())
	assert.Equal(t, "UNKNOWN", Signal(7).String())
}

func TestSignal_Opposite(t *testing.T) {
	assert.Equal(t, SignalShort, SignalLong.Opposite())
	assert.Equal(t, SignalLong, SignalShort.Opposite())
	assert.Equal(t, SignalFlat, SignalFlat.Opposite())
	assert.Equal(t, -SignalLong.Sign(), SignalShort.Sign())
	assert.Zero(t, SignalFlat.Sign())
}

func TestSignal_ParseSignal(t *testing.T) {
	for _, signal := range []Signal{SignalFlat, SignalLong, SignalShort} {
		text, err := signal.MarshalText()
		require.NoError(t, err)

		parsed, err := ParseSignal(string(text))
		require.NoError(t, err)
		assert.Equal(t, signal, parsed)
	}

	_, err := ParseSignal("SIDEWAYS")
	assert.Error(t, err)
}

func TestTick_Mid(t *testing.T) {
	assert.InDelta(t, 4500.5, Tick{Bid: 4500.25, Ask: 4500.75}.Mid(), 1e-12)
}

func TestTrade_NetPnL(t *testing.T) {
	trade := Trade{PnL: 72.9, Commission: 4.2, DurationUs: 1500}

	assert.InDelta(t, 70.8, trade.NetPnL(), 1e-9)
	assert.True(t, trade.IsWin())
	assert.Equal(t, int64(1500000), trade.Duration().Nanoseconds())
}
