package sandbox

import (
	"github.com/peter-kozarec/artemis/pkg/common"
)

const (
	DefaultInitialEquity      = 100000.0
	DefaultCommission         = 2.10
	DefaultSlippageTicks      = 1.0
	DefaultTickSize           = 0.25
	DefaultContractMultiplier = 50.0
)

type Option func(*Simulator)
type TradeHandler func(common.Trade)
type EquityHandler func(common.Equity)

func WithInitialEquity(equity float64) Option {
	return func(s *Simulator) {
		s.initialEquity = equity
	}
}

// WithCommission sets the fixed commission charged per side.
func WithCommission(commission float64) Option {
	return func(s *Simulator) {
		s.commission = commission
	}
}

// WithSlippageTicks sets the adverse fill offset in ticks, converted to price with the tick size.
func WithSlippageTicks(ticks float64) Option {
	return func(s *Simulator) {
		s.slippageTicks = ticks
	}
}

func WithTickSize(tickSize float64) Option {
	return func(s *Simulator) {
		s.tickSize = tickSize
	}
}

func WithContractMultiplier(multiplier float64) Option {
	return func(s *Simulator) {
		s.multiplier = multiplier
	}
}

func WithTradeHandler(handler TradeHandler) Option {
	return func(s *Simulator) {
		s.tradeHandler = handler
	}
}

func WithEquityHandler(handler EquityHandler) Option {
	return func(s *Simulator) {
		s.equityHandler = handler
	}
}
