package simulation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peter-kozarec/artemis/pkg/bus"
	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/datasource"
	"github.com/peter-kozarec/artemis/pkg/middleware"
	"github.com/peter-kozarec/artemis/pkg/tools/metrics"
	"github.com/peter-kozarec/artemis/pkg/utility"
)

const (
	backtesterComponentName = "simulation.backtester"
	ctxCheckInterval        = 1024
)

type Result struct {
	RunID     utility.RunID   `json:"run_id"`
	Threshold float64         `json:"threshold"`
	Report    metrics.Report  `json:"report"`
	Trades    []common.Trade  `json:"trades"`
	Equity    []common.Equity `json:"equity"`
}

type Option func(*Backtester)

func WithTelemetry(telemetry *middleware.Telemetry) Option {
	return func(b *Backtester) {
		b.telemetry = telemetry
	}
}

func WithMonitor(monitor *middleware.Monitor) Option {
	return func(b *Backtester) {
		b.monitor = monitor
	}
}

// WithThresholdUpdates forwards every value received on updates to the running
// concurrent backtest as a threshold change.
func WithThresholdUpdates(updates <-chan float64) Option {
	return func(b *Backtester) {
		b.thresholdUpdates = updates
	}
}

// Backtester replays tick streams through the mean reversion pipeline:
// rolling statistics, signal generator and execution simulator. Every run
// builds its own pipeline, so runs never share state and may execute in
// parallel.
type Backtester struct {
	logger *zap.Logger
	cfg    Configuration

	telemetry        *middleware.Telemetry
	monitor          *middleware.Monitor
	thresholdUpdates <-chan float64
}

func NewBacktester(logger *zap.Logger, cfg Configuration, options ...Option) *Backtester {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backtester{
		logger: logger,
		cfg:    cfg,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Backtester) Configuration() Configuration {
	return b.cfg
}

// Run pulls ticks from src on the calling goroutine until the source reports
// datasource.ErrEof. Any other source error aborts the run.
func (b *Backtester) Run(ctx context.Context, src datasource.TickDataSource) (Result, error) {
	return b.run(ctx, b.cfg, src)
}

func (b *Backtester) run(ctx context.Context, cfg Configuration, src datasource.TickDataSource) (Result, error) {
	s := b.newSession(cfg)
	s.simulator.PrintDetails(b.logger)
	performance := middleware.NewPerformance(b.logger)
	handler := b.tickHandler(s, performance)

	for {
		if s.tickCount%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}

		tick, err := src.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("unable to read tick %d: %w", s.tickCount, err)
		}
		handler(ctx, tick)
	}

	result := s.finish(cfg.Threshold)
	performance.PrintStatistics()
	b.logger.Debug("run finished",
		zap.String("component", backtesterComponentName),
		zap.Stringer("run_id", result.RunID),
		zap.Float64("threshold", cfg.Threshold),
		zap.Uint64("ticks", result.Report.TotalTicks),
		zap.Float64("peak_equity", s.simulator.PeakEquity()),
		zap.Duration("avg_handler_latency", performance.AverageTickLatency()))
	return result, nil
}

// RunConcurrent reads every source on its own producer goroutine and fans the
// ticks into a lock-free queue drained by the calling goroutine. Producers
// retry on a full queue, so no tick is dropped.
func (b *Backtester) RunConcurrent(ctx context.Context, sources ...datasource.TickDataSource) (Result, error) {
	router, err := bus.NewRouter(b.cfg.QueueCapacity, b.logger)
	if err != nil {
		return Result{}, err
	}

	s := b.newSession(b.cfg)
	s.simulator.PrintDetails(b.logger)
	performance := middleware.NewPerformance(b.logger)
	router.OnTick = b.tickHandler(s, performance)
	router.OnThreshold = b.thresholdHandler(s, performance)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	producer := datasource.NewProducer(router,
		datasource.WithReplayRate(b.cfg.ReplayRate),
		datasource.WithProducerLogger(b.logger))

	var finished atomic.Bool
	producerErr := make(chan error, 1)
	go func() {
		producerErr <- producer.Run(runCtx, sources...)
		finished.Store(true)
	}()

	if b.thresholdUpdates != nil {
		go b.forwardThresholds(runCtx, router)
	}

	execErr := router.ExecUntil(runCtx, finished.Load)
	cancel()
	if err := <-producerErr; err != nil && !errors.Is(err, context.Canceled) {
		return Result{}, fmt.Errorf("unable to produce ticks: %w", err)
	}
	if execErr != nil {
		return Result{}, execErr
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result := s.finish(s.generator.Threshold())
	performance.PrintStatistics()

	stats := router.GetStatistics()
	b.logger.Debug("concurrent run finished",
		zap.String("component", backtesterComponentName),
		zap.Stringer("run_id", result.RunID),
		zap.Int("producers", len(sources)),
		zap.Float64("peak_equity", s.simulator.PeakEquity()),
		zap.Uint64("posted", producer.Posted()),
		zap.Uint64("retries", producer.Retries()),
		zap.Uint64("dispatched", stats.DispatchCount),
		zap.Uint64("dispatch_fails", stats.DispatchFails))
	return result, nil
}

func (b *Backtester) forwardThresholds(ctx context.Context, router *bus.Router) {
	for {
		select {
		case <-ctx.Done():
			return
		case threshold, ok := <-b.thresholdUpdates:
			if !ok {
				return
			}
			for router.Post(bus.ThresholdEvent, threshold) != nil {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// Optimise runs one backtest per threshold on up to workers goroutines and
// returns the results ordered by Sharpe ratio, best first. open is called
// once per run and must return an independent source; sources implementing
// io.Closer are closed after their run.
func (b *Backtester) Optimise(ctx context.Context, open func() (datasource.TickDataSource, error), thresholds []float64, workers int) ([]Result, error) {
	results := make([]Result, len(thresholds))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i, threshold := range thresholds {
		g.Go(func() error {
			src, err := open()
			if err != nil {
				return fmt.Errorf("unable to open source for threshold %.4f: %w", threshold, err)
			}
			if closer, ok := src.(io.Closer); ok {
				defer func() { _ = closer.Close() }()
			}

			cfg := b.cfg
			cfg.Threshold = threshold
			result, err := b.run(ctx, cfg, src)
			if err != nil {
				return fmt.Errorf("threshold %.4f: %w", threshold, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Report.SharpeRatio > b.Report.SharpeRatio:
			return -1
		case a.Report.SharpeRatio < b.Report.SharpeRatio:
			return 1
		default:
			return 0
		}
	})
	return results, nil
}
