package main

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/datasource/historical"
)

const defaultTickTable = "ticks"

func newImportCmd(a *app) *cobra.Command {
	var (
		dsn   string
		table string
	)

	cmd := &cobra.Command{
		Use:   "import [data-file]",
		Short: "Copy a CSV tick file into a DuckDB table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dataFile := defaultDataFile
			if len(args) > 0 {
				dataFile = args[0]
			}
			return a.importTicks(cmd.Context(), firstNonEmpty(dsn, a.cfg.Output.DuckDB), table, dataFile)
		},
	}
	cmd.Flags().StringVar(&dsn, "duckdb", "", "DuckDB database (default from config)")
	cmd.Flags().StringVar(&table, "table", defaultTickTable, "destination table")
	return cmd
}

func (a *app) importTicks(ctx context.Context, dsn, table, dataFile string) error {
	if dsn == "" {
		return a.fail("invalid arguments", errors.New("a DuckDB database is required"))
	}

	reader := historical.NewTickReader(dataFile)
	if err := reader.Open(); err != nil {
		return a.fail("unable to open data file", err)
	}
	defer func() { _ = reader.Close() }()

	store, err := openStore(ctx, dsn)
	if err != nil {
		return a.fail("unable to open store", err)
	}
	defer func() { _ = store.Close() }()

	n, err := store.ImportTicks(ctx, table, reader)
	if err != nil {
		return a.fail("unable to import ticks", err)
	}

	a.logger.Info("ticks imported",
		zap.String("table", table),
		zap.Int64("ticks", n),
		zap.Uint64("skipped", reader.Skipped()))
	return nil
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		dsn    string
		limit  int
		trades string
	)

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs by Sharpe ratio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database := firstNonEmpty(dsn, a.cfg.Output.DuckDB)
			if trades != "" {
				return a.listTrades(cmd.Context(), cmd.OutOrStdout(), database, trades)
			}
			return a.listRuns(cmd.Context(), cmd.OutOrStdout(), database, limit)
		},
	}
	cmd.Flags().StringVar(&dsn, "duckdb", "", "DuckDB database (default from config)")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to list")
	cmd.Flags().StringVar(&trades, "trades", "", "list the trades of this run id instead")
	return cmd
}

func (a *app) listRuns(ctx context.Context, out io.Writer, dsn string, limit int) error {
	if dsn == "" {
		return a.fail("invalid arguments", errors.New("a DuckDB database is required"))
	}
	if limit < 1 {
		return a.fail("invalid arguments", errors.New("--limit must be positive"))
	}

	store, err := openStore(ctx, dsn)
	if err != nil {
		return a.fail("unable to open store", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.TopRuns(ctx, limit)
	if err != nil {
		return a.fail("unable to list runs", err)
	}
	renderRuns(out, runs)
	return nil
}

func (a *app) listTrades(ctx context.Context, out io.Writer, dsn, id string) error {
	if dsn == "" {
		return a.fail("invalid arguments", errors.New("a DuckDB database is required"))
	}
	runID, err := uuid.Parse(id)
	if err != nil {
		return a.fail("invalid run id", err)
	}

	store, err := openStore(ctx, dsn)
	if err != nil {
		return a.fail("unable to open store", err)
	}
	defer func() { _ = store.Close() }()

	trades, err := store.LoadTrades(ctx, runID)
	if err != nil {
		return a.fail("unable to load trades", err)
	}
	renderTrades(out, trades)
	return nil
}
