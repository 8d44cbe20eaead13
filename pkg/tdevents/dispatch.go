// dispatch.go routes operation outcomes to callbacks exactly once.

package tdevents

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultReportTimeout bounds a FailureReporter call when no timeout is
// configured.
const DefaultReportTimeout = 5 * time.Second

// dispatcher turns a Result into a Callback invocation and, for failures, a
// FailureReport.
type dispatcher struct {
	logger        *slog.Logger
	reporter      FailureReporter
	reportTimeout time.Duration
	scrubber      *Scrubber
	clock         Clock
	ids           IDGenerator
}

// resolver returns the ResultFunc handed to a transport for one operation.
// Only the first call has any effect; later calls are logged and dropped.
func (d *dispatcher) resolver(ctx context.Context, op Operation, destination string, cb Callback) ResultFunc {
	ctx = context.WithoutCancel(ctx)
	var once sync.Once
	return func(res Result) {
		fired := false
		once.Do(func() {
			fired = true
			d.deliver(ctx, op, destination, cb, res)
		})
		if !fired {
			d.logger.Warn("tdevents: outcome reported more than once",
				"operation", string(op), "destination", destination)
		}
	}
}

// deliver invokes cb first. Failures are reported afterwards so a slow
// reporter never holds up the callback.
func (d *dispatcher) deliver(ctx context.Context, op Operation, destination string, cb Callback, res Result) {
	if cb != nil {
		safeInvoke(d.logger, op, func() { res.deliver(cb) })
	}

	if !res.OK() {
		level := slog.LevelWarn
		if res.Code == ErrCodeInvalidParam || res.Code == ErrCodeEventDisabled {
			level = slog.LevelDebug
		}
		d.logger.Log(ctx, level, "tdevents: operation failed",
			"operation", string(op),
			"destination", destination,
			"code", res.Code,
			"error", d.scrubber.ScrubMessage(res.Err.Error()),
		)
		d.report(ctx, op, destination, res)
	}
}

func (d *dispatcher) report(ctx context.Context, op Operation, destination string, res Result) {
	if d.reporter == nil {
		return
	}
	report := newFailureReport(d.ids.NewID(), d.clock.Now(), op, destination, res)
	report.Message = d.scrubber.ScrubMessage(report.Message)

	timeout := d.reportTimeout
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := d.reporter.Report(ctx, report); err != nil {
		d.logger.Warn("tdevents: failed to report failure", "error", err, "fingerprint", report.Fingerprint)
	}
}
