package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/govalues/decimal"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/simulation"
)

const (
	priceScale   = 2
	tradesSuffix = "_trades.csv"
)

var (
	equityHeader = []string{"timestamp", "equity"}
	tradesHeader = []string{"entry_time", "exit_time", "entry_price", "exit_price", "direction", "pnl", "duration_us"}
	searchHeader = []string{"threshold", "sharpe", "sortino", "max_dd", "total_return", "total_trades", "win_rate"}
)

// FormatAmount renders value with exactly two decimal places.
func FormatAmount(value float64) (string, error) {
	d, err := decimal.NewFromFloat64(value)
	if err != nil {
		return "", fmt.Errorf("unable to convert %v to decimal: %w", value, err)
	}
	return d.Rescale(priceScale).String(), nil
}

func WriteEquity(w io.Writer, equity []common.Equity) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(equityHeader); err != nil {
		return fmt.Errorf("unable to write equity header: %w", err)
	}

	for i, sample := range equity {
		value, err := FormatAmount(sample.Value)
		if err != nil {
			return fmt.Errorf("equity sample %d: %w", i, err)
		}
		if err := cw.Write([]string{strconv.FormatInt(sample.TimeStamp, 10), value}); err != nil {
			return fmt.Errorf("unable to write equity sample %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteTrades(w io.Writer, trades []common.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradesHeader); err != nil {
		return fmt.Errorf("unable to write trades header: %w", err)
	}

	for i, trade := range trades {
		record, err := tradeRecord(trade)
		if err != nil {
			return fmt.Errorf("trade %d: %w", i, err)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("unable to write trade %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func tradeRecord(trade common.Trade) ([]string, error) {
	entryPrice, err := FormatAmount(trade.EntryPrice)
	if err != nil {
		return nil, err
	}
	exitPrice, err := FormatAmount(trade.ExitPrice)
	if err != nil {
		return nil, err
	}
	pnl, err := FormatAmount(trade.PnL)
	if err != nil {
		return nil, err
	}

	return []string{
		strconv.FormatInt(trade.EntryTime, 10),
		strconv.FormatInt(trade.ExitTime, 10),
		entryPrice,
		exitPrice,
		trade.Direction.String(),
		pnl,
		strconv.FormatInt(trade.DurationUs, 10),
	}, nil
}

// TradesPath derives the trades file name from the equity file name by
// replacing its extension with _trades.csv.
func TradesPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + tradesSuffix
}

// WriteResults writes the equity curve to path and the trades next to it.
func WriteResults(path string, result simulation.Result) error {
	if err := writeFile(path, func(w io.Writer) error {
		return WriteEquity(w, result.Equity)
	}); err != nil {
		return err
	}

	return writeFile(TradesPath(path), func(w io.Writer) error {
		return WriteTrades(w, result.Trades)
	})
}

// WriteOptimisation writes one row per grid search run in the given order.
func WriteOptimisation(w io.Writer, results []simulation.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(searchHeader); err != nil {
		return fmt.Errorf("unable to write optimisation header: %w", err)
	}

	for i, result := range results {
		report := result.Report
		record := []string{
			strconv.FormatFloat(result.Threshold, 'f', -1, 64),
			strconv.FormatFloat(report.SharpeRatio, 'f', 6, 64),
			strconv.FormatFloat(report.SortinoRatio, 'f', 6, 64),
			strconv.FormatFloat(report.MaxDrawdown, 'f', 6, 64),
			strconv.FormatFloat(report.TotalReturn, 'f', 6, 64),
			strconv.Itoa(report.TotalTrades),
			strconv.FormatFloat(report.WinRate, 'f', 4, 64),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("unable to write optimisation row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func WriteOptimisationResults(path string, results []simulation.Result) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteOptimisation(w, results)
	})
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("unable to create directory %q: %w", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("unable to close %q: %w", path, cerr)
		}
	}()

	if err := write(file); err != nil {
		return fmt.Errorf("unable to write %q: %w", path, err)
	}
	return nil
}
