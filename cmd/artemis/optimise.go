package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/data/csv"
	"github.com/peter-kozarec/artemis/pkg/datasource"
	"github.com/peter-kozarec/artemis/pkg/datasource/historical"
	"github.com/peter-kozarec/artemis/pkg/simulation"
)

const topResults = 5

type optimiseOptions struct {
	min, max, step float64
	workers        int
	results        string
	best           string
}

// bestParameters is the JSON document describing the winning threshold.
type bestParameters struct {
	Threshold   float64 `json:"threshold"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_dd"`
}

func newOptimiseCmd(a *app) *cobra.Command {
	opts := &optimiseOptions{}

	cmd := &cobra.Command{
		Use:     "optimise [data-file]",
		Aliases: []string{"optimize"},
		Short:   "Grid search the entry threshold by Sharpe ratio",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataFile := defaultDataFile
			if len(args) > 0 {
				dataFile = args[0]
			}
			return a.optimise(cmd.Context(), cmd.OutOrStdout(), opts, dataFile)
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.min, "min", 1.5, "smallest threshold")
	flags.Float64Var(&opts.max, "max", 4.0, "largest threshold")
	flags.Float64Var(&opts.step, "step", 0.1, "threshold increment")
	flags.IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "parallel backtests")
	flags.StringVar(&opts.results, "results", "optimization_results.csv", "grid search results CSV")
	flags.StringVar(&opts.best, "best", "best_parameters.json", "best parameters JSON")
	return cmd
}

func (a *app) optimise(ctx context.Context, out io.Writer, opts *optimiseOptions, dataFile string) error {
	thresholds, err := simulation.ThresholdGrid(opts.min, opts.max, opts.step)
	if err != nil {
		return a.fail("invalid threshold grid", err)
	}

	// fail before spawning workers when the file is missing
	probe := historical.NewTickReader(dataFile)
	if err := probe.Open(); err != nil {
		return a.fail("unable to open data file", err)
	}
	_ = probe.Close()

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a.logger.Info("running grid search",
		zap.String("data_file", dataFile),
		zap.Int("thresholds", len(thresholds)),
		zap.Int("workers", opts.workers))

	backtester := simulation.NewBacktester(a.logger, a.cfg.Simulation())
	results, err := backtester.Optimise(ctx, func() (datasource.TickDataSource, error) {
		reader := historical.NewTickReader(dataFile)
		if err := reader.Open(); err != nil {
			return nil, err
		}
		return reader, nil
	}, thresholds, opts.workers)
	if err != nil {
		return a.fail("grid search failed", err)
	}

	if err := csv.WriteOptimisationResults(opts.results, results); err != nil {
		return a.fail("unable to write optimisation results", err)
	}

	best := results[0]
	if err := writeBestParameters(opts.best, best); err != nil {
		return a.fail("unable to write best parameters", err)
	}

	a.logger.Info("grid search finished",
		zap.Float64("best_threshold", best.Threshold),
		zap.Float64("best_sharpe", best.Report.SharpeRatio),
		zap.Float64("max_drawdown", best.Report.MaxDrawdown),
		zap.String("results", opts.results),
		zap.String("best", opts.best))

	renderOptimisation(out, results[:min(topResults, len(results))])
	return nil
}

func writeBestParameters(path string, result simulation.Result) error {
	data, err := json.MarshalIndent(bestParameters{
		Threshold:   result.Threshold,
		Sharpe:      result.Report.SharpeRatio,
		MaxDrawdown: result.Report.MaxDrawdown,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
