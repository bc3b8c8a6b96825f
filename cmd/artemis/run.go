package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/data/csv"
	"github.com/peter-kozarec/artemis/pkg/data/duckdb"
	"github.com/peter-kozarec/artemis/pkg/datasource"
	"github.com/peter-kozarec/artemis/pkg/datasource/historical"
	"github.com/peter-kozarec/artemis/pkg/middleware"
	"github.com/peter-kozarec/artemis/pkg/simulation"
)

const (
	defaultDataFile        = "data/ES_futures_sample.csv"
	metricsShutdownTimeout = 5 * time.Second
)

type runOptions struct {
	output      string
	concurrent  bool
	sources     []string
	duckdb      string
	table       string
	metricsAddr string
	monitor     []string
}

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [data-file] [threshold]",
		Short: "Backtest the strategy over one tick file",
		Long: `Replay a CSV tick file (timestamp,bid,ask,volume) through the strategy,
write the equity curve and trade log, and print the performance report.

Examples:
  artemis run                                   # data/ES_futures_sample.csv at threshold 2.5
  artemis run ticks.csv 3.0                     # explicit file and threshold
  artemis run ticks.csv --concurrent --source more.csv
  artemis run --duckdb runs.duckdb --table es   # replay ticks stored in DuckDB`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context(), cmd.OutOrStdout(), opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "equity curve CSV path, trades go next to it (default from config)")
	flags.BoolVar(&opts.concurrent, "concurrent", false, "feed ticks through the lock-free queue from producer goroutines")
	flags.StringSliceVar(&opts.sources, "source", nil, "additional tick files, one producer each (requires --concurrent)")
	flags.StringVar(&opts.duckdb, "duckdb", "", "DuckDB database receiving the run (default from config)")
	flags.StringVar(&opts.table, "table", "", "replay ticks from this DuckDB table instead of a file")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address (default from config)")
	flags.StringSliceVar(&opts.monitor, "monitor", nil, "log events: all, ticks, thresholds, trades, equity")
	return cmd
}

// parseRunArgs resolves the positional data file and threshold.
func parseRunArgs(args []string, threshold float64) (string, float64, error) {
	dataFile := defaultDataFile
	if len(args) > 0 {
		dataFile = args[0]
	}
	if len(args) > 1 {
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", 0, fmt.Errorf("invalid threshold %q: %w", args[1], err)
		}
		if v <= 0 {
			return "", 0, fmt.Errorf("threshold must be positive, got %v", v)
		}
		threshold = v
	}
	return dataFile, threshold, nil
}

func (a *app) run(ctx context.Context, out io.Writer, opts *runOptions, args []string) error {
	dataFile, threshold, err := parseRunArgs(args, a.cfg.Backtest.Threshold)
	if err != nil {
		return a.fail("invalid arguments", err)
	}
	if len(opts.sources) > 0 && !opts.concurrent {
		return a.fail("invalid arguments", errors.New("--source requires --concurrent"))
	}
	output := firstNonEmpty(opts.output, a.cfg.Output.Results)
	dsn := firstNonEmpty(opts.duckdb, a.cfg.Output.DuckDB)
	metricsAddr := firstNonEmpty(opts.metricsAddr, a.cfg.Metrics.Addr)
	if opts.table != "" && dsn == "" {
		return a.fail("invalid arguments", errors.New("--table requires a DuckDB database"))
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg := a.cfg.Simulation()
	cfg.Threshold = threshold

	options, stopMetrics, err := a.backtestOptions(opts.monitor, metricsAddr)
	if err != nil {
		return a.fail("invalid arguments", err)
	}
	defer stopMetrics()

	var store *duckdb.Store
	if dsn != "" {
		store, err = openStore(ctx, dsn)
		if err != nil {
			return a.fail("unable to open result store", err)
		}
		defer func() { _ = store.Close() }()
	}

	var sources []datasource.TickDataSource
	if opts.table != "" {
		cursor, err := store.OpenTicks(ctx, opts.table)
		if err != nil {
			return a.fail("unable to open tick table", err)
		}
		defer func() { _ = cursor.Close() }()
		sources = append(sources, cursor)
		dataFile = "duckdb:" + opts.table
	} else {
		for _, path := range append([]string{dataFile}, opts.sources...) {
			reader := historical.NewTickReader(path)
			if err := reader.Open(); err != nil {
				return a.fail("unable to open data file", err)
			}
			defer func() { _ = reader.Close() }()
			a.logger.Info("data file opened",
				zap.String("path", path),
				zap.Int64("approximate_ticks", reader.ApproximateTickCount()))
			sources = append(sources, reader)
		}
	}

	a.logger.Info("starting backtest",
		zap.String("data_file", dataFile),
		zap.Float64("threshold", threshold),
		zap.Bool("concurrent", opts.concurrent))

	backtester := simulation.NewBacktester(a.logger, cfg, options...)

	var result simulation.Result
	if opts.concurrent {
		result, err = backtester.RunConcurrent(ctx, sources...)
	} else {
		result, err = backtester.Run(ctx, sources[0])
	}
	if err != nil {
		return a.fail("backtest failed", err)
	}

	for _, src := range sources {
		if reader, ok := src.(*historical.TickReader); ok && reader.Skipped() > 0 {
			a.logger.Warn("malformed lines skipped", zap.Uint64("count", reader.Skipped()))
		}
	}

	if err := csv.WriteResults(output, result); err != nil {
		return a.fail("unable to write results", err)
	}
	a.logger.Info("results written",
		zap.String("equity", output),
		zap.String("trades", csv.TradesPath(output)))

	if store != nil {
		if err := store.SaveRun(ctx, result); err != nil {
			return a.fail("unable to save run", err)
		}
		a.logger.Info("run saved", zap.Stringer("run_id", result.RunID), zap.String("duckdb", dsn))
	}

	result.Report.Print(a.logger)
	renderReport(out, result)

	a.logger.Info("backtest completed",
		zap.Float64("sharpe", result.Report.SharpeRatio),
		zap.Float64("max_drawdown", result.Report.MaxDrawdown),
		zap.Float64("ticks_per_minute", result.Report.TicksPerSecond*60))
	return nil
}

// backtestOptions wires the monitor and, when addr is set, a prometheus
// registry served over HTTP. The returned func stops the server.
func (a *app) backtestOptions(monitor []string, addr string) ([]simulation.Option, func(), error) {
	var options []simulation.Option

	if names := slices.Concat(a.cfg.Log.Monitor, monitor); len(names) > 0 {
		flags, err := middleware.ParseMonitorFlags(names)
		if err != nil {
			return nil, nil, err
		}
		options = append(options, simulation.WithMonitor(middleware.NewMonitor(a.logger, flags)))
	}

	if addr == "" {
		return options, func() {}, nil
	}

	reg := prometheus.NewRegistry()
	options = append(options, simulation.WithTelemetry(middleware.NewTelemetry(reg)))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server failed", zap.String("addr", addr), zap.Error(err))
		}
	}()
	a.logger.Info("serving metrics", zap.String("addr", addr))

	return options, func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func openStore(ctx context.Context, dsn string) (*duckdb.Store, error) {
	store := duckdb.NewStore(dsn)
	if err := store.Open(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
