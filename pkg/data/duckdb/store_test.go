package duckdb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/datasource"
	"github.com/peter-kozarec/artemis/pkg/datasource/synthetic"
	"github.com/peter-kozarec/artemis/pkg/simulation"
	"github.com/peter-kozarec/artemis/pkg/tools/metrics"
	"github.com/peter-kozarec/artemis/pkg/utility"
)

func openStore(t *testing.T, dsn string) *Store {
	t.Helper()
	store := NewStore(dsn)
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestDuckdbStore_SaveRun(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "")

	result := simulation.Result{
		RunID:     utility.NewRunID(),
		Threshold: 2.5,
		Report:    metrics.Report{SharpeRatio: 1.2, TotalTrades: 2, TotalTicks: 100},
		Trades: []common.Trade{
			{EntryTime: 1, ExitTime: 2, EntryPrice: 100.25, ExitPrice: 101.75, Direction: common.SignalLong, PnL: 72.9, Commission: 4.2, DurationUs: 1},
			{EntryTime: 3, ExitTime: 5, EntryPrice: 99.75, ExitPrice: 100.25, Direction: common.SignalShort, PnL: -27.1, Commission: 4.2, DurationUs: 2},
		},
		Equity: []common.Equity{{TimeStamp: 0, Value: 100000}, {TimeStamp: 1, Value: 99997.9}},
	}
	require.NoError(t, store.SaveRun(ctx, result))

	trades, err := store.LoadTrades(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, result.Trades, trades)

	runs, err := store.TopRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, result.RunID.String(), runs[0].RunID)
	assert.Equal(t, 2.5, runs[0].Threshold)
	assert.Equal(t, 2, runs[0].TotalTrades)

	// The run id is the primary key, so saving twice fails and leaves no partial rows.
	assert.Error(t, store.SaveRun(ctx, result))
	trades, err = store.LoadTrades(ctx, result.RunID)
	require.NoError(t, err)
	assert.Len(t, trades, 2)
}

func TestDuckdbStore_Ticks(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "ticks.duckdb"))

	n, err := store.ImportTicks(ctx, "es_ticks", synthetic.NewTickGenerator(synthetic.DefaultSeed, 500))
	require.NoError(t, err)
	assert.Equal(t, int64(500), n)

	cursor, err := store.OpenTicks(ctx, "es_ticks")
	require.NoError(t, err)
	defer func() { _ = cursor.Close() }()

	expected := synthetic.NewTickGenerator(synthetic.DefaultSeed, 500)
	for i := 0; i < 500; i++ {
		want, err := expected.GetNext()
		require.NoError(t, err)
		got, err := cursor.GetNext()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = cursor.GetNext()
	assert.True(t, errors.Is(err, datasource.ErrEof))
}

func TestDuckdbStore_InvalidTable(t *testing.T) {
	store := openStore(t, "")

	_, err := store.OpenTicks(context.Background(), "ticks; DROP TABLE runs")
	assert.Error(t, err)
	_, err = store.ImportTicks(context.Background(), "1ticks", synthetic.NewTickGenerator(1, 1))
	assert.Error(t, err)
}

func TestDuckdbStore_Backtest(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, "")

	_, err := store.ImportTicks(ctx, "ticks", synthetic.NewTickGenerator(synthetic.DefaultSeed, 5000))
	require.NoError(t, err)

	cursor, err := store.OpenTicks(ctx, "ticks")
	require.NoError(t, err)
	defer func() { _ = cursor.Close() }()

	cfg := simulation.DefaultConfiguration()
	cfg.Window = 100
	result, err := simulation.NewBacktester(nil, cfg).Run(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), result.Report.TotalTicks)

	require.NoError(t, store.SaveRun(ctx, result))
}
