package sandbox

import (
	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/common"
)

// Simulator turns position signals into simulated fills for a single
// instrument. It keeps the open position, the realized trade log and the
// equity curve of one backtest run. It is not safe for concurrent use.
type Simulator struct {
	initialEquity float64
	commission    float64
	slippageTicks float64
	tickSize      float64
	multiplier    float64
	slippage      float64

	tradeHandler  TradeHandler
	equityHandler EquityHandler

	position   common.Signal
	entryPrice float64
	entryTime  int64

	equity      float64
	peakEquity  float64
	maxDrawdown float64

	trades      []common.Trade
	equityCurve []common.Equity
}

func NewSimulator(options ...Option) *Simulator {
	s := &Simulator{
		initialEquity: DefaultInitialEquity,
		commission:    DefaultCommission,
		slippageTicks: DefaultSlippageTicks,
		tickSize:      DefaultTickSize,
		multiplier:    DefaultContractMultiplier,
	}

	for _, option := range options {
		option(s)
	}

	s.slippage = s.slippageTicks * s.tickSize
	s.equity = s.initialEquity
	s.peakEquity = s.initialEquity
	s.recordEquity(0)

	return s
}

func (s *Simulator) PrintDetails(logger *zap.Logger) {
	logger.Info("simulator details",
		zap.Float64("initial_equity", s.initialEquity),
		zap.Float64("commission", s.commission),
		zap.Float64("slippage_ticks", s.slippageTicks),
		zap.Float64("tick_size", s.tickSize),
		zap.Float64("contract_multiplier", s.multiplier))
}

// OnSignal applies the signal evaluated at price and timestamp. Nothing happens
// when the signal equals the current direction. Otherwise an open position is
// closed first and a new one opened for a non flat signal, after which one
// equity sample is recorded.
func (s *Simulator) OnSignal(price float64, timestamp int64, signal common.Signal) {
	if signal == s.position {
		return
	}

	if s.position != common.SignalFlat {
		s.closePosition(price, timestamp)
	}

	if signal != common.SignalFlat {
		s.openPosition(price, timestamp, signal)
	}

	s.recordEquity(timestamp)
}

// Flatten force closes an open position, reporting whether there was one.
func (s *Simulator) Flatten(price float64, timestamp int64) bool {
	if s.position == common.SignalFlat {
		return false
	}
	s.OnSignal(price, timestamp, common.SignalFlat)
	return true
}

// FillPrice applies slippage against the side being traded.
func (s *Simulator) FillPrice(mid float64, direction common.Signal) float64 {
	switch direction {
	case common.SignalLong:
		return mid + s.slippage
	case common.SignalShort:
		return mid - s.slippage
	default:
		return mid
	}
}

func (s *Simulator) openPosition(price float64, timestamp int64, direction common.Signal) {
	s.position = direction
	s.entryPrice = s.FillPrice(price, direction)
	s.entryTime = timestamp
	s.equity -= s.commission
}

func (s *Simulator) closePosition(price float64, timestamp int64) {
	exitPrice := s.FillPrice(price, s.position.Opposite())
	pnl := (exitPrice-s.entryPrice)*s.multiplier*s.position.Sign() - s.commission

	s.equity += pnl

	trade := common.Trade{
		EntryTime:  s.entryTime,
		ExitTime:   timestamp,
		EntryPrice: s.entryPrice,
		ExitPrice:  exitPrice,
		Direction:  s.position,
		PnL:        pnl,
		Commission: 2 * s.commission,
		DurationUs: timestamp - s.entryTime,
	}
	s.trades = append(s.trades, trade)

	s.position = common.SignalFlat
	s.entryPrice = 0
	s.entryTime = 0

	if s.tradeHandler != nil {
		s.tradeHandler(trade)
	}
}

func (s *Simulator) recordEquity(timestamp int64) {
	sample := common.Equity{TimeStamp: timestamp, Value: s.equity}
	s.equityCurve = append(s.equityCurve, sample)

	if s.equity > s.peakEquity {
		s.peakEquity = s.equity
	}
	if s.peakEquity > 0 {
		if drawdown := (s.peakEquity - s.equity) / s.peakEquity; drawdown > s.maxDrawdown {
			s.maxDrawdown = drawdown
		}
	}

	if s.equityHandler != nil {
		s.equityHandler(sample)
	}
}

func (s *Simulator) Position() (common.Position, bool) {
	if s.position == common.SignalFlat {
		return common.Position{}, false
	}
	return common.Position{
		Direction:  s.position,
		EntryPrice: s.entryPrice,
		EntryTime:  s.entryTime,
	}, true
}

func (s *Simulator) Direction() common.Signal {
	return s.position
}

func (s *Simulator) InitialEquity() float64 {
	return s.initialEquity
}

func (s *Simulator) Equity() float64 {
	return s.equity
}

func (s *Simulator) PeakEquity() float64 {
	return s.peakEquity
}

func (s *Simulator) MaxDrawdown() float64 {
	return s.maxDrawdown
}

func (s *Simulator) Trades() []common.Trade {
	return s.trades
}

func (s *Simulator) EquityCurve() []common.Equity {
	return s.equityCurve
}
