package shardbus

import "sync"

// shardQueue is an unbounded FIFO of events owned by a single worker.
//
// The queue is unbounded so Publish never blocks or drops; memory is
// the only limit.
//
// Publishers append from any goroutine; only the owning worker pops.
// A one-slot signal channel coalesces wakeups so publishers never
// block on a busy worker.
type shardQueue struct {
	mu     sync.Mutex
	events []Event
	signal chan struct{}
}

// newShardQueue creates an empty queue.
func newShardQueue() *shardQueue {
	return &shardQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// push appends evt and wakes the worker if it is parked.
func (q *shardQueue) push(evt Event) {
	q.mu.Lock()
	q.events = append(q.events, evt)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// tryPop removes and returns the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *shardQueue) tryPop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	evt := q.events[0]

	// Zero the slot so the payload can be collected; the backing
	// array otherwise retains it until reallocation.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return evt, true
}

// wait returns a channel that signals when events may be available.
// Use with select alongside the stop channel.
func (q *shardQueue) wait() <-chan struct{} {
	return q.signal
}

// len returns the current queue depth.
func (q *shardQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
