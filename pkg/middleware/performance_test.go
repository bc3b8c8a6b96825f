package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peter-kozarec/artemis/pkg/common"
)

func TestPerformance_WithTick(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	performance := NewPerformance(zap.New(core))

	handler := performance.WithTick(func(context.Context, common.Tick) {
		time.Sleep(time.Millisecond)
	})
	handler(context.Background(), common.Tick{})
	handler(context.Background(), common.Tick{})
	performance.WithThreshold(func(context.Context, float64) {})(context.Background(), 1)

	assert.Equal(t, int64(2), performance.TickCount())
	assert.GreaterOrEqual(t, performance.AverageTickLatency(), time.Millisecond)

	performance.PrintStatistics()
	entries := logs.FilterMessage("performance statistics").All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(2), fields["tick_count"])
		assert.Equal(t, int64(1), fields["threshold_count"])
	}
}

func TestPerformance_Empty(t *testing.T) {
	performance := NewPerformance(zap.NewNop())

	assert.Zero(t, performance.AverageTickLatency())
	assert.NotPanics(t, performance.PrintStatistics)
}
