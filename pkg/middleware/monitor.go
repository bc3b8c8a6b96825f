package middleware

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/bus"
	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/exchange/sandbox"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorTicks
	MonitorThresholds
	MonitorTrades
	MonitorEquity
)

var monitorFlagNames = map[string]MonitorFlags{
	"none":       MonitorNone,
	"all":        MonitorAll,
	"ticks":      MonitorTicks,
	"thresholds": MonitorThresholds,
	"trades":     MonitorTrades,
	"equity":     MonitorEquity,
}

func ParseMonitorFlags(names []string) (MonitorFlags, error) {
	var flags MonitorFlags
	for _, name := range names {
		flag, ok := monitorFlagNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown monitor flag %q", name)
		}
		flags |= flag
	}
	return flags, nil
}

// Monitor logs the events selected by its flags before passing them on.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(ctx context.Context, tick common.Tick) {
		if m.enabled(MonitorTicks) {
			m.logger.Info("event",
				zap.Int64("timestamp", tick.TimeStamp),
				zap.Float64("bid", tick.Bid),
				zap.Float64("ask", tick.Ask),
				zap.Int64("volume", tick.Volume))
		}
		handler(ctx, tick)
	}
}

func (m *Monitor) WithThreshold(handler bus.ThresholdEventHandler) bus.ThresholdEventHandler {
	return func(ctx context.Context, threshold float64) {
		if m.enabled(MonitorThresholds) {
			m.logger.Info("event", zap.Float64("threshold", threshold))
		}
		handler(ctx, threshold)
	}
}

func (m *Monitor) WithTrade(handler sandbox.TradeHandler) sandbox.TradeHandler {
	return func(trade common.Trade) {
		if m.enabled(MonitorTrades) {
			m.logger.Info("event",
				zap.Stringer("direction", trade.Direction),
				zap.Int64("entry_time", trade.EntryTime),
				zap.Int64("exit_time", trade.ExitTime),
				zap.Float64("entry_price", trade.EntryPrice),
				zap.Float64("exit_price", trade.ExitPrice),
				zap.Float64("pnl", trade.PnL))
		}
		handler(trade)
	}
}

func (m *Monitor) WithEquity(handler sandbox.EquityHandler) sandbox.EquityHandler {
	return func(equity common.Equity) {
		if m.enabled(MonitorEquity) {
			m.logger.Info("event",
				zap.Int64("timestamp", equity.TimeStamp),
				zap.Float64("equity", equity.Value))
		}
		handler(equity)
	}
}
