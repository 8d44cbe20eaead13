package stderr

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

func sessionEvent() tdevents.Event {
	rec := tdevents.NewRecord(map[string]any{"name": "foobar"})
	rec.Set(tdevents.SessionIDColumn, "sess-1")
	rec.Set(tdevents.SessionEventColumn, "start")
	return tdevents.Event{
		Database:   "db1",
		Table:      "tbl",
		Record:     rec,
		EnqueuedAt: time.Date(2025, 1, 26, 15, 4, 5, 0, time.UTC),
	}
}

func TestStderrTransport_ImplementsTransportInterface(t *testing.T) {
	var _ tdevents.Transport = NewTransport()
}

func TestStderrTransport_Enqueue_FormatsOutput(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(WithWriter(&buf))

	var got tdevents.Result
	tr.Enqueue(context.Background(), sessionEvent(), func(r tdevents.Result) { got = r })

	output := buf.String()
	if !strings.Contains(output, "[TDEVENTS]") {
		t.Errorf("Output should contain [TDEVENTS] prefix")
	}
	if !strings.Contains(output, "2025-01-26T15:04:05Z") {
		t.Errorf("Output should contain timestamp")
	}
	if !strings.Contains(output, "db1.tbl") {
		t.Errorf("Output should contain destination")
	}
	if !strings.Contains(output, "session=sess-1") {
		t.Errorf("Output should contain session id")
	}
	if !strings.Contains(output, "[start]") {
		t.Errorf("Output should contain session marker")
	}
	if !strings.Contains(output, "(3 fields)") {
		t.Errorf("Output should contain field count")
	}
	if strings.Contains(output, "foobar") {
		t.Errorf("Non-verbose output should not contain field values")
	}
	assert.True(t, got.OK())
}

func TestStderrTransport_Verbose_PrintsFields(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTransport(WithWriter(&buf), WithVerbose())

	tr.Enqueue(context.Background(), sessionEvent(), func(tdevents.Result) {})

	output := buf.String()
	assert.Contains(t, output, "name: foobar")
	assert.Contains(t, output, "session_id: sess-1")
}

func TestStderrTransport_FlushAndClose(t *testing.T) {
	tr := NewTransport(WithWriter(&bytes.Buffer{}))

	var got tdevents.Result
	got.Code = "unset"
	tr.Flush(context.Background(), func(r tdevents.Result) { got = r })

	assert.True(t, got.OK())
	assert.NoError(t, tr.Close())
}
