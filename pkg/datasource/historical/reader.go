package historical

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"golang.org/x/exp/mmap"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/datasource"
)

const (
	chunkSize      = 64 * 1024
	sampleSize     = 64 * 1024
	tickFieldCount = 4
)

var (
	ErrEof     = datasource.ErrEof
	ErrNotOpen = errors.New("tick reader is not open")
)

// TickReader pulls ticks from a memory mapped csv file with lines of
// timestamp,bid,ask,volume. The first line is a header. Blank and malformed
// lines are skipped and counted.
type TickReader struct {
	dataSourceName string
	reader         *mmap.ReaderAt
	size           int64

	offset   int64
	buffer   []byte
	bufStart int64
	bufLen   int

	skipped uint64
}

func NewTickReader(dataSourceName string) *TickReader {
	return &TickReader{
		dataSourceName: dataSourceName,
	}
}

func (t *TickReader) Open() error {
	reader, err := mmap.Open(t.dataSourceName)
	if err != nil {
		return fmt.Errorf("unable to open data source %q: %w", t.dataSourceName, err)
	}
	t.reader = reader
	t.size = int64(reader.Len())
	t.buffer = make([]byte, chunkSize)
	t.Reset()
	return nil
}

func (t *TickReader) Close() error {
	if t.reader == nil {
		return nil
	}
	err := t.reader.Close()
	t.reader = nil
	return err
}

// Reset rewinds to the first line after the header.
func (t *TickReader) Reset() {
	t.offset = 0
	t.bufStart = 0
	t.bufLen = 0
	t.skipped = 0
	if t.reader == nil {
		return
	}
	_, _ = t.nextLine()
}

func (t *TickReader) GetNext() (common.Tick, error) {
	var tick common.Tick

	if t.reader == nil {
		return tick, ErrNotOpen
	}

	for {
		line, err := t.nextLine()
		if err != nil {
			return tick, err
		}

		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(line) == 0 {
			t.skipped++
			continue
		}
		if parseTick(line, &tick) {
			return tick, nil
		}
		t.skipped++
	}
}

// ApproximateTickCount estimates the number of lines from the file size and
// the average length of the lines at the start of the file. It is positive
// for any non empty open file.
func (t *TickReader) ApproximateTickCount() int64 {
	if t.reader == nil || t.size == 0 {
		return 0
	}

	sample := make([]byte, min(t.size, sampleSize))
	n, _ := t.reader.ReadAt(sample, 0)
	sample = sample[:n]

	lines := bytes.Count(sample, []byte{'\n'})
	if lines == 0 {
		return 1
	}
	sampled := int64(bytes.LastIndexByte(sample, '\n') + 1)
	return max(t.size*int64(lines)/sampled, 1)
}

func (t *TickReader) Skipped() uint64 {
	return t.skipped
}

func (t *TickReader) nextLine() ([]byte, error) {
	for {
		if t.offset >= t.size {
			return nil, ErrEof
		}

		rel := t.offset - t.bufStart
		if rel < 0 || rel >= int64(t.bufLen) {
			if err := t.fill(t.offset); err != nil {
				return nil, err
			}
			rel = 0
		}

		window := t.buffer[rel:t.bufLen]
		if i := bytes.IndexByte(window, '\n'); i >= 0 {
			t.offset += int64(i) + 1
			return window[:i], nil
		}

		// The last line may not be terminated.
		if t.bufStart+int64(t.bufLen) >= t.size {
			t.offset = t.size
			return window, nil
		}

		// Line crosses the chunk boundary or is longer than the buffer.
		if rel == 0 {
			t.buffer = make([]byte, 2*len(t.buffer))
		}
		if err := t.fill(t.offset); err != nil {
			return nil, err
		}
	}
}

func (t *TickReader) fill(offset int64) error {
	n, err := t.reader.ReadAt(t.buffer, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("unable to read %q at offset %d: %w", t.dataSourceName, offset, err)
	}
	t.bufStart = offset
	t.bufLen = n
	return nil
}

func parseTick(line []byte, tick *common.Tick) bool {
	var fields [tickFieldCount][]byte
	for i := 0; i < tickFieldCount; i++ {
		if i == tickFieldCount-1 {
			if j := bytes.IndexByte(line, ','); j >= 0 {
				line = line[:j]
			}
			fields[i] = line
			break
		}
		j := bytes.IndexByte(line, ',')
		if j < 0 {
			return false
		}
		fields[i] = line[:j]
		line = line[j+1:]
	}

	timestamp, err := strconv.ParseInt(string(bytes.TrimSpace(fields[0])), 10, 64)
	if err != nil {
		return false
	}
	bid, err := strconv.ParseFloat(string(bytes.TrimSpace(fields[1])), 64)
	if err != nil {
		return false
	}
	ask, err := strconv.ParseFloat(string(bytes.TrimSpace(fields[2])), 64)
	if err != nil {
		return false
	}
	volume, err := strconv.ParseInt(string(bytes.TrimSpace(fields[3])), 10, 64)
	if err != nil {
		return false
	}

	tick.TimeStamp = timestamp
	tick.Bid = bid
	tick.Ask = ask
	tick.Volume = volume
	return true
}
