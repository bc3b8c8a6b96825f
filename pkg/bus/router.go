package bus

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/peter-kozarec/artemis/pkg/common"
	"github.com/peter-kozarec/artemis/pkg/utility/queue"
)

var ErrCapacityReached = errors.New("event capacity reached")

type event struct {
	id   EventId
	data any
}

// Router hands events from any number of posting goroutines to the single
// goroutine running ExecUntil. Post never blocks; a full queue
// is reported as ErrCapacityReached and the caller picks the retry policy.
type Router struct {
	OnTick      TickEventHandler
	OnThreshold ThresholdEventHandler

	logger *zap.Logger
	events *queue.Queue[event]
	pool   sync.Pool

	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

// NewRouter creates a router whose queue holds capacity-1 pending events.
// The capacity must be a power of two.
func NewRouter(capacity uint64, logger *zap.Logger) (*Router, error) {
	events, err := queue.New[event](capacity)
	if err != nil {
		return nil, fmt.Errorf("new router: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		logger: logger,
		events: events,
		pool: sync.Pool{
			New: func() any { return &event{} },
		},
	}, nil
}

func (r *Router) Post(id EventId, data any) error {
	ev := r.pool.Get().(*event)
	ev.id = id
	ev.data = data

	if !r.events.TryPush(ev) {
		r.release(ev)
		r.postFails.Add(1)
		return ErrCapacityReached
	}
	r.postCount.Add(1)
	return nil
}

// ExecUntil dispatches on the calling goroutine until done reports true and
// no event is left in the queue. It yields the processor while idle.
func (r *Router) ExecUntil(ctx context.Context, done func() bool) error {
	start := time.Now()
	defer r.addRunTime(start)

	for {
		if r.dispatchOne(ctx) {
			continue
		}

		// Checked before the final emptiness test so no late post is lost.
		finished := done()
		if finished && r.events.Empty() {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		runtime.Gosched()
	}
}

// Drain dispatches every event already in the queue and returns how many were handled.
func (r *Router) Drain(ctx context.Context) int {
	n := 0
	for r.dispatchOne(ctx) {
		n++
	}
	return n
}

func (r *Router) Pending() uint64 {
	return r.events.Size()
}

func (r *Router) GetStatistics() Statistics {
	stats := Statistics{
		RunTime:       time.Duration(r.runTime.Load()),
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
	}
	if stats.RunTime > 0 {
		stats.Throughput = float64(stats.DispatchCount) / stats.RunTime.Seconds()
	}
	return stats
}

func (r *Router) dispatchOne(ctx context.Context) bool {
	ev, ok := r.events.TryPop()
	if !ok {
		return false
	}

	r.dispatchCount.Add(1)
	if err := r.dispatch(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		r.logger.Warn("dispatch failed", zap.Error(err), zap.Stringer("event", ev.id))
	}
	r.release(ev)
	return true
}

func (r *Router) dispatch(ctx context.Context, ev *event) error {
	switch ev.id {
	case TickEvent:
		tick, ok := ev.data.(common.Tick)
		if !ok {
			return errors.New("invalid type assertion for tick event")
		}
		if r.OnTick != nil {
			r.OnTick(ctx, tick)
		}
	case ThresholdEvent:
		threshold, ok := ev.data.(float64)
		if !ok {
			return errors.New("invalid type assertion for threshold event")
		}
		if r.OnThreshold != nil {
			r.OnThreshold(ctx, threshold)
		}
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
	return nil
}

func (r *Router) release(ev *event) {
	ev.data = nil
	r.pool.Put(ev)
}

func (r *Router) addRunTime(start time.Time) {
	r.runTime.Add(int64(time.Since(start)))
}
