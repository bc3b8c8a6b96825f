package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/bus"
	"github.com/peter-kozarec/artemis/pkg/common"
)

// Performance measures time spent in the wrapped handlers. It expects the
// handlers to run on a single goroutine.
type Performance struct {
	logger *zap.Logger

	tickCount            int64
	thresholdCount       int64
	totalTickHandlerDur  time.Duration
	totalThresholdHdlDur time.Duration
	maxTickHandlerDur    time.Duration
}

func NewPerformance(logger *zap.Logger) *Performance {
	return &Performance{
		logger: logger,
	}
}

func (p *Performance) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(ctx context.Context, tick common.Tick) {
		startTime := time.Now()
		handler(ctx, tick)
		elapsed := time.Since(startTime)

		p.tickCount++
		p.totalTickHandlerDur += elapsed
		p.maxTickHandlerDur = max(p.maxTickHandlerDur, elapsed)
	}
}

func (p *Performance) WithThreshold(handler bus.ThresholdEventHandler) bus.ThresholdEventHandler {
	return func(ctx context.Context, threshold float64) {
		startTime := time.Now()
		handler(ctx, threshold)
		p.thresholdCount++
		p.totalThresholdHdlDur += time.Since(startTime)
	}
}

func (p *Performance) TickCount() int64 {
	return p.tickCount
}

func (p *Performance) AverageTickLatency() time.Duration {
	if p.tickCount == 0 {
		return 0
	}
	return p.totalTickHandlerDur / time.Duration(p.tickCount)
}

func (p *Performance) PrintStatistics() {
	var fields []zap.Field

	if p.tickCount > 0 {
		fields = append(fields,
			zap.Int64("tick_count", p.tickCount),
			zap.Duration("tick_avg_duration", p.AverageTickLatency()),
			zap.Duration("tick_max_duration", p.maxTickHandlerDur),
			zap.Duration("tick_total_duration", p.totalTickHandlerDur))
	}

	if p.thresholdCount > 0 {
		fields = append(fields,
			zap.Int64("threshold_count", p.thresholdCount),
			zap.Duration("threshold_avg_duration", p.totalThresholdHdlDur/time.Duration(p.thresholdCount)))
	}

	p.logger.Info("performance statistics", fields...)
}
