// Package memory provides an in-process transport that keeps events in
// memory. Useful for tests and for inspecting what a Client produces.
package memory

import (
	"context"
	"sync"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

// Transport stores enqueued events until Flush moves them to the flushed
// list. Failures can be injected for the next Enqueue or Flush.
type Transport struct {
	mu          sync.Mutex
	pending     []tdevents.Event
	flushed     []tdevents.Event
	enqueueFail *tdevents.Result
	flushFail   *tdevents.Result
	flushCount  int
	closed      bool
}

// NewTransport creates an empty memory transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Enqueue appends the event to the pending list.
func (t *Transport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	t.mu.Lock()
	var res tdevents.Result
	switch {
	case t.closed:
		res = tdevents.Failure(tdevents.ErrCodeStorageError, tdevents.ErrTransportClosed)
	case t.enqueueFail != nil:
		res = *t.enqueueFail
		t.enqueueFail = nil
	default:
		event.Record = event.Record.Clone()
		t.pending = append(t.pending, event)
	}
	t.mu.Unlock()

	done(res)
}

// Flush moves every pending event to the flushed list. An injected failure
// leaves the pending list untouched.
func (t *Transport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	t.mu.Lock()
	t.flushCount++
	var res tdevents.Result
	if t.flushFail != nil {
		res = *t.flushFail
		t.flushFail = nil
	} else {
		t.flushed = append(t.flushed, t.pending...)
		t.pending = nil
	}
	t.mu.Unlock()

	done(res)
}

// Close marks the transport closed. Later Enqueue calls fail with
// tdevents.ErrTransportClosed.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// FailNextEnqueue makes the next Enqueue fail with code and err.
func (t *Transport) FailNextEnqueue(code string, err error) {
	res := tdevents.Failure(code, err)
	t.mu.Lock()
	t.enqueueFail = &res
	t.mu.Unlock()
}

// FailNextFlush makes the next Flush fail with code and err.
func (t *Transport) FailNextFlush(code string, err error) {
	res := tdevents.Failure(code, err)
	t.mu.Lock()
	t.flushFail = &res
	t.mu.Unlock()
}

// Pending returns a copy of the events not yet flushed.
func (t *Transport) Pending() []tdevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyEvents(t.pending)
}

// Flushed returns a copy of the events moved by successful flushes.
func (t *Transport) Flushed() []tdevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyEvents(t.flushed)
}

// Events returns every event accepted so far, flushed first.
func (t *Transport) Events() []tdevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	all := make([]tdevents.Event, 0, len(t.flushed)+len(t.pending))
	all = append(all, t.flushed...)
	all = append(all, t.pending...)
	return copyEvents(all)
}

// FlushCount returns how many times Flush was called.
func (t *Transport) FlushCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flushCount
}

// Reset discards all events and injected failures.
func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = nil
	t.flushed = nil
	t.enqueueFail = nil
	t.flushFail = nil
	t.flushCount = 0
}

func copyEvents(events []tdevents.Event) []tdevents.Event {
	result := make([]tdevents.Event, len(events))
	for i, ev := range events {
		ev.Record = ev.Record.Clone()
		result[i] = ev
	}
	return result
}
