// Package stderr provides a transport that prints events in human-readable
// format. Useful for development and debugging.
package stderr

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

// Option configures the stderr transport.
type Option func(*config)

type config struct {
	verbose bool
	out     io.Writer
}

// WithVerbose prints the full record of each event.
func WithVerbose() Option {
	return func(c *config) {
		c.verbose = true
	}
}

// WithWriter sets the output destination (default: os.Stderr).
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.out = w
		}
	}
}

type stderrTransport struct {
	mu      sync.Mutex
	verbose bool
	out     io.Writer
}

// NewTransport creates a transport that prints each event as it is enqueued.
// Nothing is kept, so Flush always succeeds.
func NewTransport(opts ...Option) tdevents.Transport {
	cfg := &config{out: os.Stderr}
	for _, opt := range opts {
		opt(cfg)
	}
	return &stderrTransport{
		verbose: cfg.verbose,
		out:     cfg.out,
	}
}

// Enqueue formats and prints the event.
// Format: [TDEVENTS] <timestamp> <db.table> session=<id> (<n> fields)
func (s *stderrTransport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	var parts []string
	parts = append(parts, fmt.Sprintf("[TDEVENTS] %s %s",
		event.EnqueuedAt.Format("2006-01-02T15:04:05Z07:00"), event.Destination()))

	if id, ok := event.Record.Get(tdevents.SessionIDColumn); ok {
		parts = append(parts, fmt.Sprintf("session=%v", id))
	}
	if marker, ok := event.Record.Get(tdevents.SessionEventColumn); ok {
		parts = append(parts, fmt.Sprintf("[%v]", marker))
	}
	parts = append(parts, fmt.Sprintf("(%d fields)", event.Record.Len()))

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintln(s.out, strings.Join(parts, " "))
	if s.verbose {
		for _, key := range event.Record.Keys() {
			v, _ := event.Record.Get(key)
			fmt.Fprintf(s.out, "        %s: %v\n", key, v)
		}
	}

	done(tdevents.Success())
}

// Flush reports success.
func (s *stderrTransport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	done(tdevents.Success())
}

// Close is a no-op.
func (s *stderrTransport) Close() error {
	return nil
}
