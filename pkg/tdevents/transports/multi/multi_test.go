package multi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
	"github.com/tdevents/tdevents-go/pkg/tdevents/transports/memory"
)

// deferredTransport holds on to done callbacks so tests control when and in
// which order outcomes arrive.
type deferredTransport struct {
	pending  []tdevents.ResultFunc
	closeErr error
}

func (d *deferredTransport) Enqueue(ctx context.Context, event tdevents.Event, done tdevents.ResultFunc) {
	d.pending = append(d.pending, done)
}

func (d *deferredTransport) Flush(ctx context.Context, done tdevents.ResultFunc) {
	d.pending = append(d.pending, done)
}

func (d *deferredTransport) Close() error {
	return d.closeErr
}

func collect() (tdevents.ResultFunc, *[]tdevents.Result) {
	var results []tdevents.Result
	return func(r tdevents.Result) { results = append(results, r) }, &results
}

func TestMultiTransport_ImplementsTransportInterface(t *testing.T) {
	var _ tdevents.Transport = NewTransport()
}

func TestMultiTransport_Enqueue_ForwardsToAll(t *testing.T) {
	first := memory.NewTransport()
	second := memory.NewTransport()
	tr := NewTransport(first, second)

	done, results := collect()
	event := tdevents.Event{Database: "db1", Table: "tbl", Record: tdevents.NewRecord(map[string]any{"k": "v"})}
	tr.Enqueue(context.Background(), event, done)

	require.Len(t, *results, 1)
	assert.True(t, (*results)[0].OK())
	assert.Len(t, first.Pending(), 1)
	assert.Len(t, second.Pending(), 1)
}

func TestMultiTransport_WaitsForAllOutcomes(t *testing.T) {
	first := &deferredTransport{}
	second := &deferredTransport{}
	tr := NewTransport(first, second)

	done, results := collect()
	tr.Flush(context.Background(), done)
	require.Empty(t, *results)

	second.pending[0](tdevents.Success())
	assert.Empty(t, *results)

	first.pending[0](tdevents.Success())
	require.Len(t, *results, 1)
	assert.True(t, (*results)[0].OK())
}

func TestMultiTransport_AggregatesFailures(t *testing.T) {
	errNet := errors.New("dial failed")
	errFull := errors.New("full")
	first := &deferredTransport{}
	second := &deferredTransport{}
	third := &deferredTransport{}
	tr := NewTransport(first, second, third)

	done, results := collect()
	tr.Flush(context.Background(), done)

	first.pending[0](tdevents.Success())
	second.pending[0](tdevents.Failure(tdevents.ErrCodeNetworkError, errNet))
	third.pending[0](tdevents.Failure(tdevents.ErrCodeStorageError, errFull))

	require.Len(t, *results, 1)
	res := (*results)[0]
	assert.Equal(t, tdevents.ErrCodeNetworkError, res.Code)
	assert.ErrorIs(t, res.Err, errNet)
	assert.ErrorIs(t, res.Err, errFull)
}

func TestMultiTransport_IgnoresDuplicateOutcomes(t *testing.T) {
	first := &deferredTransport{}
	second := &deferredTransport{}
	tr := NewTransport(first, second)

	done, results := collect()
	tr.Flush(context.Background(), done)

	first.pending[0](tdevents.Success())
	first.pending[0](tdevents.Success())
	assert.Empty(t, *results)

	second.pending[0](tdevents.Success())
	assert.Len(t, *results, 1)
}

func TestMultiTransport_NoTransports(t *testing.T) {
	tr := NewTransport()
	done, results := collect()

	tr.Enqueue(context.Background(), tdevents.Event{}, done)
	tr.Flush(context.Background(), done)

	require.Len(t, *results, 2)
	assert.True(t, (*results)[0].OK())
	assert.True(t, (*results)[1].OK())
}

func TestMultiTransport_Close_AggregatesErrors(t *testing.T) {
	err1 := errors.New("close 1")
	err2 := errors.New("close 2")
	tr := NewTransport(&deferredTransport{closeErr: err1}, &deferredTransport{}, &deferredTransport{closeErr: err2})

	err := tr.Close()
	assert.ErrorIs(t, err, err1)
	assert.ErrorIs(t, err, err2)
}
