package historical

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peter-kozarec/artemis/pkg/common"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ticks.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func openReader(t *testing.T, content string) *TickReader {
	t.Helper()
	reader := NewTickReader(writeFile(t, content))
	require.NoError(t, reader.Open())
	t.Cleanup(func() { _ = reader.Close() })
	return reader
}

func readAll(t *testing.T, reader *TickReader) []common.Tick {
	t.Helper()
	var ticks []common.Tick
	for {
		tick, err := reader.GetNext()
		if errors.Is(err, ErrEof) {
			return ticks
		}
		require.NoError(t, err)
		ticks = append(ticks, tick)
	}
}

func TestHistoricalTickReader_GetNext(t *testing.T) {
	reader := openReader(t, "timestamp,bid,ask,volume\n"+
		"1000000,4500.25,4500.50,100\n"+
		"2000000,4500.75,4501.00,200\n"+
		"3000000,4501.25,4501.50,150\n")

	ticks := readAll(t, reader)
	require.Len(t, ticks, 3)
	assert.Equal(t, common.Tick{TimeStamp: 1000000, Bid: 4500.25, Ask: 4500.50, Volume: 100}, ticks[0])
	assert.InDelta(t, 4500.375, ticks[0].Mid(), 1e-12)
	assert.Equal(t, int64(2000000), ticks[1].TimeStamp)
	assert.Equal(t, int64(3000000), ticks[2].TimeStamp)

	_, err := reader.GetNext()
	assert.ErrorIs(t, err, ErrEof)
}

func TestHistoricalTickReader_SkipsInvalidLines(t *testing.T) {
	reader := openReader(t, "timestamp,bid,ask,volume\r\n"+
		"1,100.0,100.25,5\r\n"+
		"\r\n"+
		"garbage\n"+
		"2,abc,100.25,5\n"+
		"3,100.0,100.25\n"+
		"\n"+
		"4,101.0,101.25,7")

	ticks := readAll(t, reader)
	require.Len(t, ticks, 2)
	assert.Equal(t, int64(1), ticks[0].TimeStamp)
	assert.Equal(t, common.Tick{TimeStamp: 4, Bid: 101.0, Ask: 101.25, Volume: 7}, ticks[1])
	assert.Equal(t, uint64(5), reader.Skipped())
}

func TestHistoricalTickReader_Reset(t *testing.T) {
	reader := openReader(t, "timestamp,bid,ask,volume\n"+
		"1000000,4500.25,4500.50,100\n"+
		"2000000,4500.75,4501.00,200\n")

	assert.Len(t, readAll(t, reader), 2)

	reader.Reset()
	tick, err := reader.GetNext()
	require.NoError(t, err)
	assert.Equal(t, int64(1000000), tick.TimeStamp)
}

func TestHistoricalTickReader_HeaderOnly(t *testing.T) {
	reader := openReader(t, "timestamp,bid,ask,volume\n")

	_, err := reader.GetNext()
	assert.ErrorIs(t, err, ErrEof)
}

func TestHistoricalTickReader_EmptyFile(t *testing.T) {
	reader := openReader(t, "")

	_, err := reader.GetNext()
	assert.ErrorIs(t, err, ErrEof)
	assert.Zero(t, reader.ApproximateTickCount())
}

func TestHistoricalTickReader_InvalidFile(t *testing.T) {
	reader := NewTickReader(filepath.Join(t.TempDir(), "missing.csv"))

	assert.Error(t, reader.Open())
	_, err := reader.GetNext()
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.NoError(t, reader.Close())
}

func TestHistoricalTickReader_LargeFile(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("timestamp,bid,ask,volume\n")
	for i := 0; i < 10000; i++ {
		fmt.Fprintf(&sb, "%d,4500.25,4500.50,%d\n", 1000000+i*1000, 100+i)
	}
	reader := openReader(t, sb.String())

	ticks := readAll(t, reader)
	require.Len(t, ticks, 10000)
	for i, tick := range ticks {
		assert.Equal(t, int64(1000000+i*1000), tick.TimeStamp)
		assert.Equal(t, int64(100+i), tick.Volume)
	}
	assert.InDelta(t, 10001, reader.ApproximateTickCount(), 500)
}

func TestHistoricalTickReader_ApproximateTickCountSmallFile(t *testing.T) {
	tests := []struct {
		content  string
		expected int64
	}{
		{"timestamp,bid,ask,volume\n1,100.0,100.25,5\n", 2},
		{"1,100,100,1\n", 1},
		{"x", 1},
	}

	for _, tt := range tests {
		reader := openReader(t, tt.content)
		assert.Equal(t, tt.expected, reader.ApproximateTickCount(), "content %q", tt.content)
	}

	unopened := NewTickReader(filepath.Join(t.TempDir(), "ticks.csv"))
	assert.Zero(t, unopened.ApproximateTickCount())
}

func TestHistoricalTickReader_LongLine(t *testing.T) {
	padding := strings.Repeat(" ", 3*chunkSize)
	reader := openReader(t, "timestamp,bid,ask,volume\n"+
		"1,100.0,100.25,5"+padding+"\n"+
		"2,100.0,100.25,6\n")

	ticks := readAll(t, reader)
	require.Len(t, ticks, 2)
	assert.Equal(t, int64(5), ticks[0].Volume)
	assert.Equal(t, int64(6), ticks[1].Volume)
}
