package pdfrelay

import (
	"context"
	"sync"
	"time"
)

// queueResult settles a queued item.
type queueResult struct {
	env *Envelope
	err error
}

// queueItem pairs a deferred attempt with its settle channel.
type queueItem struct {
	run    func() (*Envelope, error)
	result chan queueResult
}

// serialQueue is the optional single-flight FIFO lane. A single drain loop
// processes one item end-to-end (including its full retry sequence) before
// the next, with a minimum gap after each item's completion. The running
// flag means "a drain loop is already live": concurrent enqueues never
// start a second overlapping loop, and items appended mid-drain are picked
// up by the same loop.
type serialQueue struct {
	mu      sync.Mutex
	items   []*queueItem
	running bool
	closed  bool
	gap     func() time.Duration
	onDepth func(depth int)
}

func newSerialQueue(gap func() time.Duration, onDepth func(int)) *serialQueue {
	return &serialQueue{
		gap:     gap,
		onDepth: onDepth,
	}
}

// Enqueue appends the attempt and blocks until its turn completes. The
// item keeps executing to settlement once dequeued; there is no way to
// cancel it beyond the attempt's own timeout.
func (q *serialQueue) Enqueue(ctx context.Context, run func() (*Envelope, error)) (*Envelope, error) {
	item := &queueItem{
		run:    run,
		result: make(chan queueResult, 1),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, &ClientError{
			Type:    ErrorTypeQueueClosed,
			Message: "queue closed",
			Cause:   ErrQueueClosed,
		}
	}
	q.items = append(q.items, item)
	depth := len(q.items)
	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if q.onDepth != nil {
		q.onDepth(depth)
	}
	if start {
		go q.drain()
	}

	res := <-item.result
	return res.env, res.err
}

// drain is the single consumer loop. It owns the running flag for its
// lifetime and exits only when the queue is observed empty.
func (q *serialQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.closed {
			q.running = false
			items := q.items
			q.items = nil
			q.mu.Unlock()
			// Reject anything left behind by Close.
			for _, item := range items {
				item.result <- queueResult{err: &ClientError{
					Type:    ErrorTypeQueueClosed,
					Message: "queue closed",
					Cause:   ErrQueueClosed,
				}}
			}
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		depth := len(q.items)
		q.mu.Unlock()

		if q.onDepth != nil {
			q.onDepth(depth)
		}

		env, err := item.run()
		item.result <- queueResult{env: env, err: err}

		// Minimum inter-item gap after settlement, before the next dequeue.
		time.Sleep(q.gap())
	}
}

// Close rejects future submissions and flushes pending items with
// ErrQueueClosed. The item currently executing, if any, runs to
// settlement.
func (q *serialQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	running := q.running
	var pending []*queueItem
	if !running {
		pending = q.items
		q.items = nil
	}
	q.mu.Unlock()

	for _, item := range pending {
		item.result <- queueResult{err: &ClientError{
			Type:    ErrorTypeQueueClosed,
			Message: "queue closed",
			Cause:   ErrQueueClosed,
		}}
	}
}

// WithContextQueued marks the request on ctx for the serial lane. All other
// requests execute immediately and may run concurrently with each other and
// with the queue.
func WithContextQueued(ctx context.Context) context.Context {
	return context.WithValue(ctx, queueControlKey, true)
}

func queuedFrom(ctx context.Context) bool {
	queued, _ := ctx.Value(queueControlKey).(bool)
	return queued
}
