package tdevents

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 26, 15, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// sequentialIDs yields "<prefix>-1", "<prefix>-2", ...
type sequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (g *sequentialIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// testTransport captures events for verification in tests.
type testTransport struct {
	mu         sync.Mutex
	events     []Event
	flushes    int
	enqueueRes *Result
	flushRes   *Result
}

func (t *testTransport) Enqueue(ctx context.Context, event Event, done ResultFunc) {
	t.mu.Lock()
	if t.enqueueRes != nil {
		res := *t.enqueueRes
		t.mu.Unlock()
		done(res)
		return
	}
	t.events = append(t.events, event)
	t.mu.Unlock()
	done(Success())
}

func (t *testTransport) Flush(ctx context.Context, done ResultFunc) {
	t.mu.Lock()
	t.flushes++
	res := Success()
	if t.flushRes != nil {
		res = *t.flushRes
	}
	t.mu.Unlock()
	done(res)
}

func (t *testTransport) Close() error {
	return nil
}

func (t *testTransport) getEvents() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	result := make([]Event, len(t.events))
	copy(result, t.events)
	return result
}

// recordingCallback captures every outcome it receives.
type recordingCallback struct {
	mu        sync.Mutex
	successes int
	codes     []string
	errs      []error
}

func (r *recordingCallback) OnSuccess() {
	r.mu.Lock()
	r.successes++
	r.mu.Unlock()
}

func (r *recordingCallback) OnError(code string, err error) {
	r.mu.Lock()
	r.codes = append(r.codes, code)
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *recordingCallback) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.successes + len(r.codes)
}

// testReporter captures failure reports.
type testReporter struct {
	mu      sync.Mutex
	reports []FailureReport
	err     error
}

func (r *testReporter) Report(ctx context.Context, report FailureReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	return r.err
}

func (r *testReporter) getReports() []FailureReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]FailureReport, len(r.reports))
	copy(result, r.reports)
	return result
}

// blockingReporter blocks in Report until release is closed or ctx ends.
type blockingReporter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu  sync.Mutex
	err error
}

func newBlockingReporter() *blockingReporter {
	return &blockingReporter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (r *blockingReporter) Report(ctx context.Context, report FailureReport) error {
	r.once.Do(func() { close(r.started) })
	var err error
	select {
	case <-r.release:
	case <-ctx.Done():
		err = ctx.Err()
	}
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	return err
}

func (r *blockingReporter) getErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
