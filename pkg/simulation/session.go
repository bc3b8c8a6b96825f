package simulation

import (
	"context"
	"time"

	"github.com/peter-kozarec/artemis/pkg/bus"
	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/exchange/sandbox"
	"github.com/peter-kozarec/artemis/pkg/middleware"
	"github.com/peter-kozarec/artemis/pkg/strategy"
	"github.com/peter-kozarec/artemis/pkg/tools/indicators"
	"github.com/peter-kozarec/artemis/pkg/tools/metrics"
	"github.com/peter-kozarec/artemis/pkg/utility"
)

// session holds everything one run mutates. It is created per run and only
// touched by the goroutine driving that run.
type session struct {
	runID     utility.RunID
	stats     *indicators.RollingStatistics
	generator *strategy.SignalGenerator
	simulator *sandbox.Simulator
	audit     *metrics.Audit

	tickCount uint64
	lastTick  common.Tick
	started   time.Time
}

func (b *Backtester) newSession(cfg Configuration) *session {
	s := &session{
		runID:     utility.NewRunID(),
		stats:     indicators.NewRollingStatistics(cfg.Window),
		generator: strategy.NewSignalGenerator(cfg.Threshold),
		audit:     metrics.NewAudit(),
	}

	var tradeHandler sandbox.TradeHandler = s.audit.OnTrade
	var equityHandler sandbox.EquityHandler = s.audit.OnEquity
	if b.monitor != nil {
		tradeHandler = b.monitor.WithTrade(tradeHandler)
		equityHandler = b.monitor.WithEquity(equityHandler)
	}
	if b.telemetry != nil {
		tradeHandler = b.telemetry.WithTrade(tradeHandler)
		equityHandler = b.telemetry.WithEquity(equityHandler)
	}

	s.simulator = sandbox.NewSimulator(
		sandbox.WithInitialEquity(cfg.InitialEquity),
		sandbox.WithCommission(cfg.Commission),
		sandbox.WithSlippageTicks(cfg.SlippageTicks),
		sandbox.WithTickSize(cfg.TickSize),
		sandbox.WithContractMultiplier(cfg.ContractMultiplier),
		sandbox.WithTradeHandler(tradeHandler),
		sandbox.WithEquityHandler(equityHandler))

	s.started = time.Now()
	return s
}

func (s *session) onTick(_ context.Context, tick common.Tick) {
	s.tickCount++
	s.lastTick = tick

	mid := tick.Mid()
	s.stats.Update(mid)
	signal := s.generator.Generate(mid, s.stats)
	s.simulator.OnSignal(mid, tick.TimeStamp, signal)
}

func (s *session) onThreshold(_ context.Context, threshold float64) {
	s.generator.SetThreshold(threshold)
}

// tickHandler wraps onTick with the configured middleware, outermost first.
func (b *Backtester) tickHandler(s *session, performance *middleware.Performance) bus.TickEventHandler {
	var wrappers []func(bus.TickEventHandler) bus.TickEventHandler
	if b.telemetry != nil {
		wrappers = append(wrappers, b.telemetry.WithTick)
	}
	if b.monitor != nil {
		wrappers = append(wrappers, b.monitor.WithTick)
	}
	wrappers = append(wrappers, performance.WithTick)
	return middleware.Chain(wrappers...)(s.onTick)
}

func (b *Backtester) thresholdHandler(s *session, performance *middleware.Performance) bus.ThresholdEventHandler {
	handler := performance.WithThreshold(s.onThreshold)
	if b.monitor != nil {
		handler = b.monitor.WithThreshold(handler)
	}
	if b.telemetry != nil {
		handler = b.telemetry.WithThreshold(handler)
	}
	return handler
}

// finish force closes an open position at the last tick and builds the result.
func (s *session) finish(threshold float64) Result {
	if s.tickCount > 0 {
		s.simulator.Flatten(s.lastTick.Mid(), s.lastTick.TimeStamp)
	}
	elapsed := time.Since(s.started)

	return Result{
		RunID:     s.runID,
		Threshold: threshold,
		Report:    s.audit.GenerateReport(s.tickCount, elapsed, s.simulator.MaxDrawdown()),
		Trades:    s.simulator.Trades(),
		Equity:    s.simulator.EquityCurve(),
	}
}
