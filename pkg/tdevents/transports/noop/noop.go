// Package noop provides a transport that accepts and discards all events.
// Useful for tests and for disabling delivery.
package noop

import (
	"context"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

type noopTransport struct{}

// NewTransport creates a transport that discards all events.
// Every Enqueue and Flush succeeds.
func NewTransport() tdevents.Transport {
	return noopTransport{}
}

// Enqueue discards the event and reports success.
func (noopTransport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	done(tdevents.Success())
}

// Flush reports success.
func (noopTransport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	done(tdevents.Success())
}

// Close is a no-op.
func (noopTransport) Close() error {
	return nil
}
