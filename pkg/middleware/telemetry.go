package middleware

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/peter-kozarec/artemis/pkg/bus"
	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/exchange/sandbox"
)

const (
	metricsNamespace  = "artemis"
	backtestSubsystem = "backtest"
)

// Telemetry exports event counters to prometheus. A single instance may be
// shared by concurrently running backtests.
type Telemetry struct {
	ticks      prometheus.Counter
	thresholds prometheus.Counter
	trades     *prometheus.CounterVec
	tradePnL   prometheus.Histogram
	equity     prometheus.Gauge
}

// NewTelemetry registers the collectors with reg. A nil reg leaves them unregistered.
func NewTelemetry(reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		ticks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: backtestSubsystem,
			Name:      "ticks_total",
			Help:      "Total number of ticks dispatched to the strategy",
		}),
		thresholds: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: backtestSubsystem,
			Name:      "threshold_updates_total",
			Help:      "Total number of z-score threshold updates",
		}),
		trades: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: backtestSubsystem,
			Name:      "trades_total",
			Help:      "Total number of closed trades by direction and outcome",
		}, []string{"direction", "outcome"}),
		tradePnL: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: backtestSubsystem,
			Name:      "trade_pnl",
			Help:      "Profit of closed trades net of entry and exit commission in account currency",
			Buckets:   []float64{-1000, -500, -250, -100, -50, 0, 50, 100, 250, 500, 1000},
		}),
		equity: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: backtestSubsystem,
			Name:      "equity",
			Help:      "Last recorded account equity",
		}),
	}
}

func (t *Telemetry) WithTick(handler bus.TickEventHandler) bus.TickEventHandler {
	return func(ctx context.Context, tick common.Tick) {
		t.ticks.Inc()
		handler(ctx, tick)
	}
}

func (t *Telemetry) WithThreshold(handler bus.ThresholdEventHandler) bus.ThresholdEventHandler {
	return func(ctx context.Context, threshold float64) {
		t.thresholds.Inc()
		handler(ctx, threshold)
	}
}

func (t *Telemetry) WithTrade(handler sandbox.TradeHandler) sandbox.TradeHandler {
	return func(trade common.Trade) {
		outcome := "loss"
		if trade.IsWin() {
			outcome = "win"
		}
		t.trades.WithLabelValues(trade.Direction.String(), outcome).Inc()
		t.tradePnL.Observe(trade.NetPnL())
		handler(trade)
	}
}

func (t *Telemetry) WithEquity(handler sandbox.EquityHandler) sandbox.EquityHandler {
	return func(equity common.Equity) {
		t.equity.Set(equity.Value)
		handler(equity)
	}
}
