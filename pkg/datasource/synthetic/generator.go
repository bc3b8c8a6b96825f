package synthetic

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/datasource"
)

const (
	DefaultSeed           = 42
	DefaultBasePrice      = 4500.0
	DefaultTickSize       = 0.25
	DefaultStartTimeStamp = 1609459200000000 // 2021-01-01 00:00:00 UTC in microseconds

	maxIntervalUs  = 10000
	meanReversion  = 0.01
	minPrice       = 4000.0
	maxPrice       = 5000.0
	meanVolume     = 50.0
	minVolume      = 1
	maxVolume      = 1000
	csvHeader      = "timestamp,bid,ask,volume\n"
	pricePrecision = 2
)

var ErrEof = datasource.ErrEof

// TickGenerator produces a reproducible stream of equity index futures
// ticks: a mean reverting random walk on a quarter point grid with a
// randomly widening spread and exponentially distributed volume.
type TickGenerator struct {
	seed  int64
	steps int64

	basePrice float64
	tickSize  float64

	rng       *rand.Rand
	t         int64
	timestamp int64
	price     float64
}

func NewTickGenerator(seed, steps int64) *TickGenerator {
	g := &TickGenerator{
		seed:      seed,
		steps:     steps,
		basePrice: DefaultBasePrice,
		tickSize:  DefaultTickSize,
	}
	g.Reset()
	return g
}

// Reset restarts the stream; the same seed yields the same ticks again.
func (g *TickGenerator) Reset() {
	g.rng = rand.New(rand.NewSource(g.seed)) // #nosec G404
	g.t = 0
	g.timestamp = DefaultStartTimeStamp
	g.price = g.basePrice
}

func (g *TickGenerator) GetNext() (common.Tick, error) {
	var tick common.Tick

	if g.t >= g.steps {
		return tick, ErrEof
	}
	g.t++

	g.timestamp += 1 + g.rng.Int63n(maxIntervalUs)

	switch move := g.rng.Float64(); {
	case move < 0.3:
		g.price -= g.tickSize
	case move >= 0.7:
		g.price += g.tickSize
	}
	g.price += (g.basePrice - g.price) * meanReversion
	g.price = min(max(g.price, minPrice), maxPrice)
	g.price = g.round(g.price)

	spread := g.spread()

	tick.TimeStamp = g.timestamp
	tick.Bid = g.round(g.price - spread/2)
	tick.Ask = g.round(g.price + spread/2)
	tick.Volume = min(max(int64(g.rng.ExpFloat64()*meanVolume), minVolume), maxVolume)
	return tick, nil
}

func (g *TickGenerator) spread() float64 {
	switch choice := g.rng.Float64(); {
	case choice < 0.5:
		return 0.25
	case choice < 0.8:
		return 0.50
	case choice < 0.95:
		return 0.75
	default:
		return 1.0
	}
}

func (g *TickGenerator) round(price float64) float64 {
	return math.RoundToEven(price/g.tickSize) * g.tickSize
}

// WriteCSV writes the remaining ticks with a header line and returns how many
// ticks were written.
func (g *TickGenerator) WriteCSV(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(csvHeader); err != nil {
		return 0, fmt.Errorf("unable to write header: %w", err)
	}

	var (
		count int64
		line  []byte
	)
	for {
		tick, err := g.GetNext()
		if errors.Is(err, ErrEof) {
			break
		}
		if err != nil {
			return count, err
		}

		line = strconv.AppendInt(line[:0], tick.TimeStamp, 10)
		line = append(line, ',')
		line = strconv.AppendFloat(line, tick.Bid, 'f', pricePrecision, 64)
		line = append(line, ',')
		line = strconv.AppendFloat(line, tick.Ask, 'f', pricePrecision, 64)
		line = append(line, ',')
		line = strconv.AppendInt(line, tick.Volume, 10)
		line = append(line, '\n')

		if _, err := bw.Write(line); err != nil {
			return count, fmt.Errorf("unable to write tick %d: %w", count, err)
		}
		count++
	}

	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("unable to flush: %w", err)
	}
	return count, nil
}
