// transport.go defines the Transport interface for event destinations.

package tdevents

import "context"

// Transport queues events and ships them to the ingestion API.
// Implementations must be safe for concurrent use and must call done exactly
// once per Enqueue or Flush call, from any goroutine.
type Transport interface {
	// Enqueue adds event to the pending queue. Events from sequential calls
	// must be kept in call order.
	Enqueue(ctx context.Context, event Event, done ResultFunc)

	// Flush sends every pending event.
	Flush(ctx context.Context, done ResultFunc)

	// Close releases resources held by the transport.
	// After Close is called, Enqueue should fail with ErrTransportClosed.
	Close() error
}

// noopTransportInternal is the default transport, avoiding an import cycle
// with transports/noop.
type noopTransportInternal struct{}

func (noopTransportInternal) Enqueue(ctx context.Context, event Event, done ResultFunc) {
	done(Success())
}

func (noopTransportInternal) Flush(ctx context.Context, done ResultFunc) {
	done(Success())
}

func (noopTransportInternal) Close() error {
	return nil
}
