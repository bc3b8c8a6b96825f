package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/datasource"
	"github.com/peter-kozarec/artemis/pkg/simulation"
	"github.com/peter-kozarec/artemis/pkg/utility"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id           VARCHAR PRIMARY KEY,
		execution_id     VARCHAR NOT NULL,
		created_at       TIMESTAMP NOT NULL,
		threshold        DOUBLE NOT NULL,
		initial_equity   DOUBLE NOT NULL,
		final_equity     DOUBLE NOT NULL,
		total_return     DOUBLE NOT NULL,
		volatility       DOUBLE NOT NULL,
		sharpe_ratio     DOUBLE NOT NULL,
		sortino_ratio    DOUBLE NOT NULL,
		max_drawdown     DOUBLE NOT NULL,
		win_rate         DOUBLE NOT NULL,
		total_trades     INTEGER NOT NULL,
		winning_trades   INTEGER NOT NULL,
		total_ticks      BIGINT NOT NULL,
		ticks_per_second DOUBLE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		run_id      VARCHAR NOT NULL,
		seq         INTEGER NOT NULL,
		entry_time  BIGINT NOT NULL,
		exit_time   BIGINT NOT NULL,
		entry_price DOUBLE NOT NULL,
		exit_price  DOUBLE NOT NULL,
		direction   VARCHAR NOT NULL,
		pnl         DOUBLE NOT NULL,
		commission  DOUBLE NOT NULL,
		duration_us BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS equity (
		run_id VARCHAR NOT NULL,
		seq    INTEGER NOT NULL,
		ts     BIGINT NOT NULL,
		equity DOUBLE NOT NULL
	)`,
}

// Store persists backtest results in a DuckDB database and reads tick tables
// from it. An empty data source name opens an in-memory database.
type Store struct {
	dataSourceName string
	db             *sql.DB
}

func NewStore(dataSourceName string) *Store {
	return &Store{
		dataSourceName: dataSourceName,
	}
}

func (s *Store) Open(ctx context.Context) error {
	db, err := sql.Open("duckdb", s.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open duckdb %q: %w", s.dataSourceName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("unable to connect to duckdb %q: %w", s.dataSourceName, err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, statement := range schema {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("unable to migrate schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores the report, trades and equity curve of one run atomically.
func (s *Store) SaveRun(ctx context.Context, result simulation.Result) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	runID := result.RunID.String()
	report := result.Report

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, utility.GetExecutionID().String(), time.Now().UTC(), result.Threshold,
		report.InitialEquity, report.FinalEquity, report.TotalReturn, report.Volatility,
		report.SharpeRatio, report.SortinoRatio, report.MaxDrawdown, report.WinRate,
		report.TotalTrades, report.WinningTrades, int64(report.TotalTicks), report.TicksPerSecond)
	if err != nil {
		return fmt.Errorf("unable to insert run %s: %w", runID, err)
	}

	if err = insertTrades(ctx, tx, runID, result.Trades); err != nil {
		return err
	}
	if err = insertEquity(ctx, tx, runID, result.Equity); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("unable to commit run %s: %w", runID, err)
	}
	return nil
}

func insertTrades(ctx context.Context, tx *sql.Tx, runID string, trades []common.Trade) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO trades VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("unable to prepare trade insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, trade := range trades {
		if _, err := stmt.ExecContext(ctx, runID, i, trade.EntryTime, trade.ExitTime,
			trade.EntryPrice, trade.ExitPrice, trade.Direction.String(), trade.PnL,
			trade.Commission, trade.DurationUs); err != nil {
			return fmt.Errorf("unable to insert trade %d: %w", i, err)
		}
	}
	return nil
}

func insertEquity(ctx context.Context, tx *sql.Tx, runID string, equity []common.Equity) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO equity VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("unable to prepare equity insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, sample := range equity {
		if _, err := stmt.ExecContext(ctx, runID, i, sample.TimeStamp, sample.Value); err != nil {
			return fmt.Errorf("unable to insert equity sample %d: %w", i, err)
		}
	}
	return nil
}

func (s *Store) LoadTrades(ctx context.Context, runID utility.RunID) ([]common.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entry_time, exit_time, entry_price, exit_price, direction, pnl, commission, duration_us
		 FROM trades WHERE run_id = ? ORDER BY seq`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("unable to query trades: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var trades []common.Trade
	for rows.Next() {
		var (
			trade     common.Trade
			direction string
		)
		if err := rows.Scan(&trade.EntryTime, &trade.ExitTime, &trade.EntryPrice, &trade.ExitPrice,
			&direction, &trade.PnL, &trade.Commission, &trade.DurationUs); err != nil {
			return nil, fmt.Errorf("error scanning trade: %w", err)
		}
		if trade.Direction, err = common.ParseSignal(direction); err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning trades: %w", err)
	}
	return trades, nil
}

// TopRuns returns run ids with their threshold and Sharpe ratio, best first.
func (s *Store) TopRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := fmt.Sprintf(`SELECT run_id, threshold, sharpe_ratio, total_trades FROM runs
		ORDER BY sharpe_ratio DESC LIMIT %d`, limit)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("unable to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.RunID, &run.Threshold, &run.SharpeRatio, &run.TotalTrades); err != nil {
			return nil, fmt.Errorf("error scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning runs: %w", err)
	}
	return runs, nil
}

type RunSummary struct {
	RunID       string  `json:"run_id"`
	Threshold   float64 `json:"threshold"`
	SharpeRatio float64 `json:"sharpe_ratio"`
	TotalTrades int     `json:"total_trades"`
}

// TickCursor streams the rows of a tick table with columns ts, bid, ask and
// volume in timestamp order. It implements datasource.TickDataSource.
type TickCursor struct {
	rows *sql.Rows
}

func (s *Store) OpenTicks(ctx context.Context, table string) (*TickCursor, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid tick table name %q", table)
	}

	query := fmt.Sprintf(`SELECT ts, bid, ask, volume FROM %s ORDER BY ts`, table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	return &TickCursor{rows: rows}, nil
}

func (c *TickCursor) GetNext() (common.Tick, error) {
	var tick common.Tick

	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return tick, fmt.Errorf("error scanning rows: %w", err)
		}
		return tick, datasource.ErrEof
	}
	if err := c.rows.Scan(&tick.TimeStamp, &tick.Bid, &tick.Ask, &tick.Volume); err != nil {
		return tick, fmt.Errorf("error scanning row: %w", err)
	}
	return tick, nil
}

func (c *TickCursor) Close() error {
	return c.rows.Close()
}

// ImportTicks copies every tick of src into table, creating it when missing.
func (s *Store) ImportTicks(ctx context.Context, table string, src datasource.TickDataSource) (n int64, err error) {
	if !identifierPattern.MatchString(table) {
		return 0, fmt.Errorf("invalid tick table name %q", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("unable to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (ts BIGINT, bid DOUBLE, ask DOUBLE, volume BIGINT)`, table)
	if _, err = tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("unable to create tick table %q: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s VALUES (?, ?, ?, ?)`, table))
	if err != nil {
		return 0, fmt.Errorf("unable to prepare tick insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for {
		tick, nextErr := src.GetNext()
		if errors.Is(nextErr, datasource.ErrEof) {
			break
		}
		if nextErr != nil {
			err = nextErr
			return n, err
		}
		if _, err = stmt.ExecContext(ctx, tick.TimeStamp, tick.Bid, tick.Ask, tick.Volume); err != nil {
			return n, fmt.Errorf("unable to insert tick %d: %w", n, err)
		}
		n++
	}

	if err = tx.Commit(); err != nil {
		return n, fmt.Errorf("unable to commit ticks: %w", err)
	}
	return n, nil
}
