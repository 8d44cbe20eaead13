// Package async provides a transport wrapper with a bounded queue so callers
// never block on the wrapped transport. Calls are replayed in order on a
// single background goroutine; the oldest queued call is dropped when full.
package async

import (
	"context"
	"sync"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

// Option configures the async transport.
type Option func(*config)

type config struct {
	queueSize int
	onDropped func(count int)
}

// WithQueueSize sets the maximum number of queued calls (default: 1000).
func WithQueueSize(size int) Option {
	return func(c *config) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithOnDropped sets a callback invoked when queued calls are dropped due to
// queue overflow.
func WithOnDropped(fn func(count int)) Option {
	return func(c *config) {
		c.onDropped = fn
	}
}

// job is one queued Enqueue (flush == false) or Flush call.
type job struct {
	ctx   context.Context
	flush bool
	event tdevents.Event
	done  tdevents.ResultFunc
}

type asyncTransport struct {
	inner     tdevents.Transport
	queue     chan job
	stop      chan struct{}
	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
	wg        sync.WaitGroup
	onDropped func(count int)
}

// NewTransport wraps inner with a bounded queue.
// Enqueue returns immediately; the call reaches inner in the background.
// When the queue is full the oldest queued call is dropped and resolved with
// tdevents.ErrQueueFull. Flush waits for queue space rather than dropping.
func NewTransport(inner tdevents.Transport, opts ...Option) tdevents.Transport {
	cfg := &config{queueSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}

	t := &asyncTransport{
		inner:     inner,
		queue:     make(chan job, cfg.queueSize),
		stop:      make(chan struct{}),
		onDropped: cfg.onDropped,
	}

	t.wg.Add(1)
	go t.processLoop()

	return t
}

// processLoop replays queued calls against the inner transport.
func (t *asyncTransport) processLoop() {
	defer t.wg.Done()
	for {
		select {
		case j := <-t.queue:
			t.run(j)
		case <-t.stop:
			// Drain remaining calls
			for {
				select {
				case j := <-t.queue:
					t.run(j)
				default:
					return
				}
			}
		}
	}
}

func (t *asyncTransport) run(j job) {
	if j.flush {
		t.inner.Flush(j.ctx, j.done)
		return
	}
	t.inner.Enqueue(j.ctx, j.event, j.done)
}

// Enqueue queues the event for the inner transport.
func (t *asyncTransport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	dropped, err := t.enqueue(job{ctx: context.WithoutCancel(ctx), event: event, done: done})
	if err != nil {
		done(tdevents.Failure(tdevents.ErrCodeStorageError, err))
		return
	}
	// Resolved outside closeMu: callbacks may call Close.
	for _, j := range dropped {
		t.drop(j)
	}
}

// enqueue queues j and returns the calls dropped to make room.
func (t *asyncTransport) enqueue(j job) ([]job, error) {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return nil, tdevents.ErrTransportClosed
	}

	select {
	case t.queue <- j:
		return nil, nil
	default:
		return t.dropOldestAndEnqueue(j), nil
	}
}

// dropOldestAndEnqueue drops the oldest queued call and queues j.
func (t *asyncTransport) dropOldestAndEnqueue(j job) []job {
	var dropped []job
	select {
	case old := <-t.queue:
		dropped = append(dropped, old)
	default:
		// Queue was emptied by the processor, try again
	}

	select {
	case t.queue <- j:
	default:
		// Still full, drop the new call
		dropped = append(dropped, j)
	}
	return dropped
}

func (t *asyncTransport) drop(j job) {
	if t.onDropped != nil {
		t.onDropped(1)
	}
	j.done(tdevents.Failure(tdevents.ErrCodeStorageError, tdevents.ErrQueueFull))
}

// Flush queues a flush behind every call already queued. If ctx ends before
// there is room, done receives a storage_error wrapping ctx.Err().
func (t *asyncTransport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	if err := t.flush(ctx, job{ctx: context.WithoutCancel(ctx), flush: true, done: done}); err != nil {
		done(tdevents.Failure(tdevents.ErrCodeStorageError, err))
	}
}

func (t *asyncTransport) flush(ctx context.Context, j job) error {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return tdevents.ErrTransportClosed
	}

	select {
	case t.queue <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting calls, drains the queue and closes the inner
// transport.
func (t *asyncTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeMu.Lock()
		t.closed = true
		t.closeMu.Unlock()

		close(t.stop)
		t.wg.Wait()
	})

	return t.inner.Close()
}
