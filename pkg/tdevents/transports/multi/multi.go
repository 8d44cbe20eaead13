// Package multi provides a transport that fans out to multiple transports.
// All transports receive all events; outcomes are aggregated.
package multi

import (
	"context"
	"errors"
	"sync"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

type multiTransport struct {
	transports []tdevents.Transport
}

// NewTransport creates a transport that forwards every call to each of
// transports. The aggregated outcome succeeds only if every transport
// succeeds; otherwise it carries the first failing code and all errors
// joined via errors.Join. With no transports every call succeeds.
func NewTransport(transports ...tdevents.Transport) tdevents.Transport {
	return &multiTransport{transports: transports}
}

// Enqueue forwards the event to all transports.
func (m *multiTransport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	agg := m.aggregate(done)
	for i, t := range m.transports {
		// Each transport gets its own copy of the record.
		ev := event
		ev.Record = event.Record.Clone()
		t.Enqueue(ctx, ev, agg.slot(i))
	}
}

// Flush flushes all transports.
func (m *multiTransport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	agg := m.aggregate(done)
	for i, t := range m.transports {
		t.Flush(ctx, agg.slot(i))
	}
}

// Close closes all transports, collecting any errors.
func (m *multiTransport) Close() error {
	var errs []error
	for _, t := range m.transports {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *multiTransport) aggregate(done tdevents.ResultFunc) *aggregator {
	if len(m.transports) == 0 {
		done(tdevents.Success())
		return nil
	}
	return &aggregator{
		results: make([]*tdevents.Result, len(m.transports)),
		pending: len(m.transports),
		done:    done,
	}
}

// aggregator waits for one outcome per transport. Transports may report
// from any goroutine and in any order.
type aggregator struct {
	mu      sync.Mutex
	results []*tdevents.Result
	pending int
	done    tdevents.ResultFunc
}

func (a *aggregator) slot(i int) tdevents.ResultFunc {
	return func(r tdevents.Result) {
		a.mu.Lock()
		if a.results[i] != nil {
			a.mu.Unlock()
			return
		}
		a.results[i] = &r
		a.pending--
		finished := a.pending == 0
		a.mu.Unlock()

		if finished {
			a.done(a.combine())
		}
	}
}

func (a *aggregator) combine() tdevents.Result {
	var code string
	var errs []error
	for _, r := range a.results {
		if r.OK() {
			continue
		}
		if code == "" {
			code = r.Code
		}
		errs = append(errs, r.Err)
	}
	if len(errs) == 0 {
		return tdevents.Success()
	}
	return tdevents.Failure(code, errors.Join(errs...))
}
