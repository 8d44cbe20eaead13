// Package ingest provides the transport that uploads events to the HTTP
// ingestion API.
//
// Events wait in a bounded in-memory FIFO until Flush. A flush sends every
// pending event in one request, grouped by destination:
//
//	POST <endpoint>/event
//	Authorization: TD1 <api key>
//	{"db.table": [{...}, {...}], "db.other": [{...}]}
//
// A failed upload puts the whole batch back at the head of the queue so the
// next Flush retries it in the original order.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

const (
	// DefaultEndpoint is the ingestion API base URL.
	DefaultEndpoint = "https://us01.records.in.treasuredata.com"

	// EventPath is appended to the endpoint for uploads.
	EventPath = "/event"

	// DefaultMaxQueueSize bounds the pending queue.
	DefaultMaxQueueSize = 10000

	// DefaultTimeout bounds each HTTP attempt.
	DefaultTimeout = 10 * time.Second

	// maxResponseBody caps how much of an error response is read.
	maxResponseBody = 1 << 20

	userAgent = "tdevents-go"
)

// Transport uploads events to the ingestion API. It is safe for concurrent
// use; flushes are serialized.
type Transport struct {
	apiKey   string
	endpoint string
	client   *http.Client
	timeout  time.Duration
	maxQueue int
	retry    RetryConfig
	logger   *slog.Logger

	mu     sync.Mutex
	queue  []tdevents.Event
	closed bool

	flushMu sync.Mutex
}

// NewTransport creates an ingest transport authenticating with apiKey.
func NewTransport(apiKey string, opts ...Option) *Transport {
	cfg := &transportConfig{
		endpoint:     DefaultEndpoint,
		timeout:      DefaultTimeout,
		maxQueueSize: DefaultMaxQueueSize,
		retry:        DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Transport{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(cfg.endpoint, "/"),
		client:   cfg.client,
		timeout:  cfg.timeout,
		maxQueue: cfg.maxQueueSize,
		retry:    cfg.retry,
		logger:   cfg.logger,
	}
}

// Enqueue appends the event to the pending queue. It fails with
// invalid_param if the record cannot be encoded as JSON and with
// storage_error if the queue is full or the transport is closed.
func (t *Transport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	// Checked here so a queued batch always encodes.
	if _, err := json.Marshal(event.Record); err != nil {
		done(tdevents.Failure(tdevents.ErrCodeInvalidParam,
			fmt.Errorf("%w: record for %s is not JSON encodable: %v", tdevents.ErrInvalidParam, event.Destination(), err)))
		return
	}

	t.mu.Lock()
	var res tdevents.Result
	switch {
	case t.closed:
		res = tdevents.Failure(tdevents.ErrCodeStorageError, tdevents.ErrTransportClosed)
	case len(t.queue) >= t.maxQueue:
		res = tdevents.Failure(tdevents.ErrCodeStorageError, tdevents.ErrQueueFull)
	default:
		t.queue = append(t.queue, event)
	}
	t.mu.Unlock()

	done(res)
}

// Flush uploads every pending event. With nothing pending it succeeds
// without a request. Flush is allowed after Close so callers can drain the
// queue on shutdown.
func (t *Transport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	done(t.flush(ctx))
}

func (t *Transport) flush(ctx context.Context) tdevents.Result {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	batch := t.take()
	if len(batch) == 0 {
		return tdevents.Success()
	}

	body, err := encodeBatch(batch)
	if err != nil {
		t.requeue(batch)
		return tdevents.Failure(tdevents.ErrCodeStorageError, fmt.Errorf("tdevents/ingest: encode batch: %w", err))
	}

	if err := t.send(ctx, body); err != nil {
		t.requeue(batch)
		t.logger.Warn("tdevents/ingest: upload failed",
			"events", len(batch), "error", err)
		return classify(err)
	}

	t.logger.Debug("tdevents/ingest: uploaded events", "events", len(batch), "bytes", len(body))
	return tdevents.Success()
}

// Close stops accepting events. Pending events stay queued for Flush.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	pending := len(t.queue)
	t.mu.Unlock()

	if pending > 0 {
		t.logger.Warn("tdevents/ingest: closed with pending events", "events", pending)
	}
	return nil
}

// Len returns the number of pending events.
func (t *Transport) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// take empties the queue and returns its contents.
func (t *Transport) take() []tdevents.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	batch := t.queue
	t.queue = nil
	return batch
}

// requeue puts batch back ahead of anything enqueued meanwhile. The queue
// may briefly exceed maxQueue; new events are refused until it drains.
func (t *Transport) requeue(batch []tdevents.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.queue = append(batch, t.queue...)
}

// encodeBatch groups events by destination, keeping per-destination order.
func encodeBatch(batch []tdevents.Event) ([]byte, error) {
	grouped := make(map[string][]tdevents.Record)
	for _, ev := range batch {
		dest := ev.Destination()
		grouped[dest] = append(grouped[dest], ev.Record)
	}
	return json.Marshal(grouped)
}

// send posts body, retrying transient failures.
func (t *Transport) send(ctx context.Context, body []byte) error {
	for attempt := 0; ; attempt++ {
		err := t.post(ctx, body)
		if err == nil {
			return nil
		}
		if attempt >= t.retry.MaxRetries || !isRetryable(err) {
			return err
		}

		delay := t.retry.backoff(attempt)
		t.logger.Debug("tdevents/ingest: retrying upload",
			"attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &NetworkError{Op: "upload", Err: ctx.Err()}
		case <-timer.C:
		}
	}
}

// post performs a single upload attempt.
func (t *Transport) post(ctx context.Context, body []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.endpoint+EventPath, bytes.NewReader(body))
	if err != nil {
		return &NetworkError{Op: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "TD1 "+t.apiKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return &NetworkError{Op: "post", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if err != nil {
		return &NetworkError{Op: "read response", Err: err}
	}
	return tdevents.TranslateAPIError(resp.StatusCode, string(respBody))
}

// classify maps an upload error to a callback outcome.
func classify(err error) tdevents.Result {
	var apiErr *tdevents.APIError
	if errors.As(err, &apiErr) {
		return tdevents.Failure(tdevents.ErrCodeServerResponse, apiErr)
	}
	return tdevents.Failure(tdevents.ErrCodeNetworkError, err)
}

func isRetryable(err error) bool {
	var apiErr *tdevents.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// NetworkError reports that the ingestion API could not be reached or its
// response could not be read.
type NetworkError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("tdevents/ingest: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}
