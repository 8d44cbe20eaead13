package tdevents

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(logger *slog.Logger, reporter FailureReporter) *dispatcher {
	return &dispatcher{
		logger:   logger,
		reporter: reporter,
		scrubber: NewScrubber(DefaultScrubberConfig()),
		clock:    newFakeClock(),
		ids:      &sequentialIDs{prefix: "rep"},
	}
}

func TestDispatcher_ResolverFiresOnce(t *testing.T) {
	var logs bytes.Buffer
	d := newTestDispatcher(slog.New(slog.NewTextHandler(&logs, nil)), nil)
	cb := &recordingCallback{}

	resolve := d.resolver(context.Background(), OperationUploadEvents, "", cb)
	resolve(Success())
	resolve(Failure(ErrCodeNetworkError, errors.New("late")))

	assert.Equal(t, 1, cb.successes)
	assert.Empty(t, cb.codes)
	assert.Contains(t, logs.String(), "outcome reported more than once")
}

func TestDispatcher_NilCallback(t *testing.T) {
	reporter := &testReporter{}
	d := newTestDispatcher(slog.New(slog.DiscardHandler), reporter)

	resolve := d.resolver(context.Background(), OperationAddEvent, "db1.tbl", nil)
	resolve(Failure(ErrCodeStorageError, ErrQueueFull))

	// Failures are still reported without a callback.
	require.Len(t, reporter.getReports(), 1)
}

func TestDispatcher_ReportsScrubbedFailures(t *testing.T) {
	reporter := &testReporter{}
	d := newTestDispatcher(slog.New(slog.DiscardHandler), reporter)
	cb := &recordingCallback{}

	secret := errors.New("post failed: Authorization: TD1 1/supersecret")
	d.resolver(context.Background(), OperationUploadEvents, "", cb)(Failure(ErrCodeNetworkError, secret))

	reports := reporter.getReports()
	require.Len(t, reports, 1)
	assert.Equal(t, "rep-1", reports[0].ID)
	assert.Equal(t, OperationUploadEvents, reports[0].Operation)
	assert.Equal(t, ErrCodeNetworkError, reports[0].Code)
	assert.NotContains(t, reports[0].Message, "supersecret")
	assert.NotEmpty(t, reports[0].Fingerprint)

	// The callback still sees the original error.
	require.Len(t, cb.errs, 1)
	assert.Equal(t, secret, cb.errs[0])
}

func TestDispatcher_SuccessIsNotReported(t *testing.T) {
	reporter := &testReporter{}
	d := newTestDispatcher(slog.New(slog.DiscardHandler), reporter)

	d.resolver(context.Background(), OperationAddEvent, "db1.tbl", &recordingCallback{})(Success())

	assert.Empty(t, reporter.getReports())
}

func TestDispatcher_ReporterErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	reporter := &testReporter{err: errors.New("reporter down")}
	d := newTestDispatcher(slog.New(slog.NewTextHandler(&logs, nil)), reporter)
	cb := &recordingCallback{}

	d.resolver(context.Background(), OperationUploadEvents, "", cb)(Failure(ErrCodeNetworkError, errors.New("offline")))

	assert.Contains(t, logs.String(), "failed to report failure")
	assert.Len(t, cb.codes, 1)
}

func TestDispatcher_LogLevels(t *testing.T) {
	var logs bytes.Buffer
	d := newTestDispatcher(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn})), nil)

	d.resolver(context.Background(), OperationAddEvent, "db1.tbl", nil)(Failure(ErrCodeInvalidParam, ErrInvalidParam))
	d.resolver(context.Background(), OperationAddEvent, "db1.tbl", nil)(Failure(ErrCodeEventDisabled, ErrEventDisabled))
	assert.Empty(t, logs.String(), "caller mistakes are logged at debug")

	d.resolver(context.Background(), OperationUploadEvents, "", nil)(Failure(ErrCodeNetworkError, errors.New("offline")))
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "code=network_error")
}

func TestDispatcher_CallbackPanicRecovered(t *testing.T) {
	var logs bytes.Buffer
	d := newTestDispatcher(slog.New(slog.NewTextHandler(&logs, nil)), nil)

	cb := CallbackFuncs{Success: func() { panic("callback exploded") }}

	assert.NotPanics(t, func() {
		d.resolver(context.Background(), OperationAddEvent, "db1.tbl", cb)(Success())
	})
	assert.Contains(t, logs.String(), "callback panicked")
	assert.Contains(t, logs.String(), "callback exploded")
}

func TestDispatcher_CancelledContextStillReports(t *testing.T) {
	reporter := &testReporter{}
	d := newTestDispatcher(slog.New(slog.DiscardHandler), reporter)

	ctx, cancel := context.WithCancel(context.Background())
	resolve := d.resolver(ctx, OperationUploadEvents, "", nil)
	cancel()
	resolve(Failure(ErrCodeNetworkError, errors.New("offline")))

	assert.Len(t, reporter.getReports(), 1)
}

func TestFormatRecovered(t *testing.T) {
	assert.Equal(t, "<nil>", formatRecovered(nil))
	assert.Equal(t, "boom", formatRecovered(errors.New("boom")))
	assert.Equal(t, "42", formatRecovered(42))
	assert.True(t, strings.HasPrefix(formatRecovered([]int{1}), "["))
}

func TestDispatcher_CallbackBeforeReport(t *testing.T) {
	var order []string
	reporter := reporterFunc(func(ctx context.Context, report FailureReport) error {
		order = append(order, "report")
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "report context carries a deadline")
		return nil
	})
	d := newTestDispatcher(slog.New(slog.DiscardHandler), reporter)

	cb := CallbackFuncs{Error: func(string, error) { order = append(order, "callback") }}
	d.resolver(context.Background(), OperationAddEvent, "db1.tbl", cb)(Failure(ErrCodeStorageError, ErrQueueFull))

	assert.Equal(t, []string{"callback", "report"}, order)
}

type reporterFunc func(ctx context.Context, report FailureReport) error

func (f reporterFunc) Report(ctx context.Context, report FailureReport) error {
	return f(ctx, report)
}
