package datasource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/peter-kozarec/artemis/pkg/bus"
	"github.com/peter-kozarec/artemis/pkg/common"
)

const producerComponentName = "datasource.producer"

type ProducerOption func(*Producer)

// WithReplayRate caps the combined posting rate of all sources in ticks per
// second. Zero or less disables pacing.
func WithReplayRate(ticksPerSecond float64) ProducerOption {
	return func(p *Producer) {
		if ticksPerSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(ticksPerSecond), 1)
		} else {
			p.limiter = nil
		}
	}
}

func WithProducerLogger(logger *zap.Logger) ProducerOption {
	return func(p *Producer) {
		p.logger = logger
	}
}

// Producer fans ticks from any number of sources into a router, one goroutine
// per source. Ticks of one source keep their order; ticks of different sources
// interleave arbitrarily.
type Producer struct {
	router  *bus.Router
	limiter *rate.Limiter
	logger  *zap.Logger

	posted  atomic.Uint64
	retries atomic.Uint64
}

func NewProducer(router *bus.Router, options ...ProducerOption) *Producer {
	p := &Producer{
		router: router,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(p)
	}
	return p
}

// Run blocks until every source reached ErrEof, a source failed or ctx is done.
// A full router is retried after yielding the processor, so no tick is dropped.
func (p *Producer) Run(ctx context.Context, sources ...TickDataSource) error {
	g, ctx := errgroup.WithContext(ctx)
	for i, source := range sources {
		g.Go(func() error {
			if err := p.produce(ctx, source); err != nil {
				return fmt.Errorf("producer %d: %w", i, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (p *Producer) Posted() uint64 {
	return p.posted.Load()
}

// Retries counts posts rejected by a full router and attempted again.
func (p *Producer) Retries() uint64 {
	return p.retries.Load()
}

func (p *Producer) produce(ctx context.Context, source TickDataSource) error {
	var count uint64
	defer func() {
		p.logger.Debug("source drained",
			zap.String("component", producerComponentName),
			zap.Uint64("ticks", count))
	}()

	for {
		tick, err := source.GetNext()
		if errors.Is(err, ErrEof) {
			return nil
		}
		if err != nil {
			return err
		}

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		if err := p.post(ctx, tick); err != nil {
			return err
		}
		count++
	}
}

func (p *Producer) post(ctx context.Context, tick common.Tick) error {
	for {
		err := p.router.Post(bus.TickEvent, tick)
		if err == nil {
			p.posted.Add(1)
			return nil
		}
		if !errors.Is(err, bus.ErrCapacityReached) {
			return err
		}

		p.retries.Add(1)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		runtime.Gosched()
	}
}
