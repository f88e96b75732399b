package engine

import (
	"sync"
	"time"

	"github.com/roach88/ashc/internal/ir"
	"github.com/roach88/ashc/internal/verify"
)

// completion is one finished sample on its way to the collector.
type completion struct {
	Variation Variation
	Candidate ir.Candidate
	Verdict   verify.Verdict

	// GenErr is set when the generator failed; Candidate and Verdict are
	// then empty.
	GenErr error

	Duration time.Duration
}

// completionQueue is a thread-safe FIFO between sample workers and the
// session collector.
//
// Workers Enqueue from any goroutine; only the collector dequeues. The
// queue is unbounded so a worker never blocks on a slow collector.
//
// Closing the queue is how a stopped session refuses late results: once
// closed, Enqueue returns false and the result is dropped.
type completionQueue struct {
	mu     sync.Mutex
	items  []completion
	closed bool
	signal chan struct{} // buffered, size 1
}

func newCompletionQueue() *completionQueue {
	return &completionQueue{
		items:  make([]completion, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds c to the back of the queue.
// Returns false if the queue is closed.
func (q *completionQueue) Enqueue(c completion) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, c)

	// Non-blocking; the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
func (q *completionQueue) TryDequeue() (completion, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return completion{}, false
	}

	c := q.items[0]
	q.items[0] = completion{} // release references for GC
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return c, true
}

// Wait returns a channel that signals when items may be available. It is
// closed by Close.
func (q *completionQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *completionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close refuses further Enqueue calls and returns the items still queued,
// which the caller treats as late.
func (q *completionQueue) Close() []completion {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	// Drop a pending wake-up so receivers see the close, not a stale signal.
	select {
	case <-q.signal:
	default:
	}
	close(q.signal)

	late := q.items
	q.items = nil
	return late
}
