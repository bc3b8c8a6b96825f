package metrics

import (
	stdmath "math"
	"time"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/utility/math"
)

// Evaluations are assumed to happen once per second of trading time.
var (
	sqrt252         = stdmath.Sqrt(252)
	annualizeFactor = stdmath.Sqrt(252 * 24 * 60 * 60)
)

// Audit records the realized trades and equity samples of one run and turns
// them into a Report once the run is over.
type Audit struct {
	equities []common.Equity
	trades   []common.Trade
}

func NewAudit() *Audit {
	return &Audit{}
}

func (a *Audit) OnEquity(equity common.Equity) {
	a.equities = append(a.equities, equity)
}

func (a *Audit) OnTrade(trade common.Trade) {
	a.trades = append(a.trades, trade)
}

func (a *Audit) Trades() []common.Trade {
	return a.trades
}

func (a *Audit) Equities() []common.Equity {
	return a.equities
}

// GenerateReport computes the run metrics. Ticks and elapsed describe the
// whole run and feed the throughput figures. The max drawdown is tracked by
// the execution simulator and passed through unchanged.
func (a *Audit) GenerateReport(ticks uint64, elapsed time.Duration, maxDrawdown float64) Report {
	report := Report{
		TotalTicks:     ticks,
		ProcessingTime: elapsed,
		MaxDrawdown:    maxDrawdown,
	}

	if elapsed > 0 {
		report.TicksPerSecond = float64(ticks) / elapsed.Seconds()
	}
	if ticks > 0 {
		report.AverageLatency = elapsed / time.Duration(ticks)
	}

	if len(a.equities) > 0 {
		report.InitialEquity = a.equities[0].Value
		report.FinalEquity = a.equities[len(a.equities)-1].Value
	}

	if len(a.trades) == 0 {
		return report
	}

	if report.InitialEquity != 0 {
		report.TotalReturn = (report.FinalEquity - report.InitialEquity) / report.InitialEquity
	}

	var totalDuration int64
	for _, trade := range a.trades {
		report.TotalTrades++
		totalDuration += trade.DurationUs
		if trade.IsWin() {
			report.WinningTrades++
		} else {
			report.LosingTrades++
		}
	}
	report.WinRate = float64(report.WinningTrades) / float64(report.TotalTrades)
	report.AverageTradeLength = float64(totalDuration) / float64(report.TotalTrades) / 1e6

	returns := a.stepReturns()
	if len(returns) > 0 {
		report.Volatility = math.SampleStandardDeviation(returns, math.Mean(returns)) * annualizeFactor
		report.SortinoRatio = math.SortinoRatio(returns, 0) * annualizeFactor
	}
	report.SharpeRatio = math.SharpeRatio(report.TotalReturn, report.Volatility) * sqrt252

	return report
}

func (a *Audit) stepReturns() []float64 {
	var returns []float64
	for i := 1; i < len(a.equities); i++ {
		prev := a.equities[i-1].Value
		if prev > 0 {
			returns = append(returns, (a.equities[i].Value-prev)/prev)
		}
	}
	return returns
}
