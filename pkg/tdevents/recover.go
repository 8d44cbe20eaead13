// recover.go keeps panicking user callbacks from killing transport goroutines.

package tdevents

import (
	"fmt"
	"log/slog"
	"runtime/debug"
)

// safeInvoke runs fn, recovering and logging any panic. Unlike a bare
// recover, the panic value and stack are kept for the log record.
func safeInvoke(logger *slog.Logger, op Operation, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		logger.Error("tdevents: callback panicked",
			"operation", string(op),
			"panic", formatRecovered(r),
			"stack", string(debug.Stack()),
		)
	}()
	fn()
}

// formatRecovered formats a recovered panic value as a string.
func formatRecovered(recovered any) string {
	if recovered == nil {
		return "<nil>"
	}
	if err, ok := recovered.(error); ok {
		return err.Error()
	}
	return fmt.Sprintf("%v", recovered)
}
