package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/data/duckdb"
	"github.com/peter-kozarec/artemis/pkg/simulation"
)

func percent(v float64) string {
	return fmt.Sprintf("%.4f%%", v*100)
}

func renderReport(w io.Writer, result simulation.Result) {
	r := result.Report
	avgLatency := 0.0
	if r.TotalTicks > 0 {
		avgLatency = float64(r.ProcessingTime.Microseconds()) / float64(r.TotalTicks)
	}

	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")
	rows := [][]string{
		{"Run", result.RunID.String()},
		{"Threshold", fmt.Sprintf("%.2f", result.Threshold)},
		{"Total Return", percent(r.TotalReturn)},
		{"Volatility", percent(r.Volatility)},
		{"Sharpe Ratio", fmt.Sprintf("%.4f", r.SharpeRatio)},
		{"Sortino Ratio", fmt.Sprintf("%.4f", r.SortinoRatio)},
		{"Max Drawdown", percent(r.MaxDrawdown)},
		{"Win Rate", percent(r.WinRate)},
		{"Avg Trade Length", fmt.Sprintf("%.4f seconds", r.AverageTradeLength)},
		{"Ticks Processed", fmt.Sprintf("%d", r.TotalTicks)},
		{"Ticks/Second", fmt.Sprintf("%.0f", r.TicksPerSecond)},
		{"Total Trades", fmt.Sprintf("%d", r.TotalTrades)},
		{"Winning Trades", fmt.Sprintf("%d", r.WinningTrades)},
		{"Losing Trades", fmt.Sprintf("%d", r.LosingTrades)},
		{"Final Equity", fmt.Sprintf("%.2f", r.FinalEquity)},
		{"Processing Time", fmt.Sprintf("%.4f seconds", r.ProcessingTime.Seconds())},
		{"Avg Latency", fmt.Sprintf("%.4f µs/tick", avgLatency)},
	}
	for _, row := range rows {
		_ = table.Append(row[0], row[1])
	}
	_ = table.Render()
}

func renderOptimisation(w io.Writer, results []simulation.Result) {
	table := tablewriter.NewWriter(w)
	table.Header("#", "Threshold", "Sharpe", "Max DD", "Return", "Trades")
	for i, result := range results {
		r := result.Report
		_ = table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.2f", result.Threshold),
			fmt.Sprintf("%.4f", r.SharpeRatio),
			percent(r.MaxDrawdown),
			percent(r.TotalReturn),
			fmt.Sprintf("%d", r.TotalTrades),
		)
	}
	_ = table.Render()
}

func renderRuns(w io.Writer, runs []duckdb.RunSummary) {
	table := tablewriter.NewWriter(w)
	table.Header("Run", "Threshold", "Sharpe", "Trades")
	for _, run := range runs {
		_ = table.Append(
			run.RunID,
			fmt.Sprintf("%.2f", run.Threshold),
			fmt.Sprintf("%.4f", run.SharpeRatio),
			fmt.Sprintf("%d", run.TotalTrades),
		)
	}
	_ = table.Render()
}

func renderTrades(w io.Writer, trades []common.Trade) {
	table := tablewriter.NewWriter(w)
	table.Header("Direction", "Entry Time", "Exit Time", "Entry", "Exit", "PnL", "Net PnL")
	for _, trade := range trades {
		_ = table.Append(
			trade.Direction.String(),
			fmt.Sprintf("%d", trade.EntryTime),
			fmt.Sprintf("%d", trade.ExitTime),
			fmt.Sprintf("%.2f", trade.EntryPrice),
			fmt.Sprintf("%.2f", trade.ExitPrice),
			fmt.Sprintf("%.2f", trade.PnL),
			fmt.Sprintf("%.2f", trade.NetPnL()),
		)
	}
	_ = table.Render()
}
