package queue

import (
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

var ErrCapacity = errors.New("queue capacity must be a power of two")

// slot is a tagged cell. For the lap that owns position p the sequence reads
// p while the slot is empty, p+1 once the item has been published, and
// p+capacity after the consumer released it for the next lap.
type slot[T any] struct {
	seq  atomic.Uint64
	item *T
}

// Queue is a bounded lock-free ring of owned item handles supporting many
// concurrent producers and exactly one consumer. One slot is always kept free,
// so a queue of capacity N holds at most N-1 items.
//
// Ownership of an item moves to the queue when TryPush succeeds and back to the
// caller when TryPop returns it. A rejected push leaves the item with the caller.
type Queue[T any] struct {
	capacity uint64
	mask     uint64
	slots    []slot[T]

	_    cpu.CacheLinePad
	head atomic.Uint64
	_    cpu.CacheLinePad
	tail atomic.Uint64
	_    cpu.CacheLinePad
}

func New[T any](capacity uint64) (*Queue[T], error) {
	if capacity == 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("new queue with capacity %d: %w", capacity, ErrCapacity)
	}

	q := &Queue[T]{
		capacity: capacity,
		mask:     capacity - 1,
		slots:    make([]slot[T], capacity),
	}
	for i := range q.slots {
		q.slots[i].seq.Store(uint64(i))
	}
	return q, nil
}

func Must[T any](capacity uint64) *Queue[T] {
	q, err := New[T](capacity)
	if err != nil {
		panic(err)
	}
	return q
}

// TryPush never blocks. It reports false for a nil item and when the queue is
// full; the caller decides whether to drop, retry or slow down upstream.
func (q *Queue[T]) TryPush(item *T) bool {
	if item == nil {
		return false
	}

	for {
		tail := q.tail.Load()
		head := q.head.Load()

		// Advancing the tail would collide with the head.
		if int64(tail-head) >= int64(q.mask) {
			return false
		}

		s := &q.slots[tail&q.mask]
		seq := s.seq.Load()

		switch {
		case seq == tail:
			// Claim the position, then publish the item through the slot sequence.
			if q.tail.CompareAndSwap(tail, tail+1) {
				s.item = item
				s.seq.Store(tail + 1)
				return true
			}
		case seq < tail:
			// Previous lap not released by the consumer yet.
			return false
		}
		// Another producer claimed this position first, reload and try the next one.
	}
}

// TryPop must only be called by the single consumer. It reports false when the
// queue is empty or when the head slot has been claimed but not yet published;
// the consumer is expected to retry later.
func (q *Queue[T]) TryPop() (*T, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return nil, false
	}

	s := &q.slots[head&q.mask]
	if s.seq.Load() != head+1 {
		return nil, false
	}

	item := s.item
	s.item = nil
	s.seq.Store(head + q.capacity)
	q.head.Store(head + 1)
	return item, true
}

// Drain pops every published item and hands it to release, which may be nil.
// Consumer side only.
func (q *Queue[T]) Drain(release func(*T)) int {
	n := 0
	for {
		item, ok := q.TryPop()
		if !ok {
			return n
		}
		if release != nil {
			release(item)
		}
		n++
	}
}

// Empty and Size are snapshots; with producers running they are advisory only.
func (q *Queue[T]) Empty() bool {
	head := q.head.Load()
	return head == q.tail.Load()
}

func (q *Queue[T]) Size() uint64 {
	head := q.head.Load()
	tail := q.tail.Load()
	return (tail - head) & q.mask
}

func (q *Queue[T]) Capacity() uint64 {
	return q.capacity
}
