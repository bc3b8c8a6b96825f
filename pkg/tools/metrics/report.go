package metrics

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

type Report struct {
	InitialEquity      float64       `json:"initial_equity"`
	FinalEquity        float64       `json:"final_equity"`
	TotalReturn        float64       `json:"total_return"`
	Volatility         float64       `json:"volatility"`
	SharpeRatio        float64       `json:"sharpe_ratio"`
	SortinoRatio       float64       `json:"sortino_ratio"`
	MaxDrawdown        float64       `json:"max_drawdown"`
	WinRate            float64       `json:"win_rate"`
	AverageTradeLength float64       `json:"average_trade_length"`
	TotalTrades        int           `json:"total_trades"`
	WinningTrades      int           `json:"winning_trades"`
	LosingTrades       int           `json:"losing_trades"`
	TotalTicks         uint64        `json:"total_ticks"`
	TicksPerSecond     float64       `json:"ticks_per_second"`
	ProcessingTime     time.Duration `json:"processing_time"`
	AverageLatency     time.Duration `json:"average_latency"`
}

func (r Report) Print(logger *zap.Logger) {
	logger.Info("trade report",
		zap.Float64("initial_equity", r.InitialEquity),
		zap.Float64("final_equity", r.FinalEquity),
		zap.String("total_return", fmt.Sprintf("%.2f%%", r.TotalReturn*100)),
		zap.String("max_drawdown", fmt.Sprintf("%.2f%%", r.MaxDrawdown*100)))

	logger.Info("trade statistics",
		zap.Int("total_trades", r.TotalTrades),
		zap.Int("winning_trades", r.WinningTrades),
		zap.Int("losing_trades", r.LosingTrades),
		zap.String("win_rate", fmt.Sprintf("%.2f%%", r.WinRate*100)),
		zap.String("average_trade_length", fmt.Sprintf("%.2fs", r.AverageTradeLength)))

	logger.Info("risk metrics",
		zap.Float64("sharpe_ratio", r.SharpeRatio),
		zap.Float64("sortino_ratio", r.SortinoRatio),
		zap.String("volatility", fmt.Sprintf("%.2f%%", r.Volatility*100)))

	logger.Info("throughput",
		zap.Uint64("total_ticks", r.TotalTicks),
		zap.Float64("ticks_per_second", r.TicksPerSecond),
		zap.Duration("processing_time", r.ProcessingTime),
		zap.Duration("average_latency", r.AverageLatency))
}
