// Package cxdb provides a FailureReporter that keeps failed client operations
// in cxdb as error SystemMessage items, one dead-letter context per reporter.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"unicode/utf8"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/tdevents/tdevents-go/pkg/tdevents"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// Option configures the cxdb reporter.
type Option func(*reporterConfig)

type reporterConfig struct {
	contextID *uint64
	labels    []string
	clientTag string
}

// WithContextID appends reports to an existing context instead of creating
// one.
func WithContextID(id uint64) Option {
	return func(c *reporterConfig) {
		c.contextID = &id
	}
}

// WithOrphanLabels sets labels for the context the reporter creates.
func WithOrphanLabels(labels []string) Option {
	return func(c *reporterConfig) {
		c.labels = labels
	}
}

// WithClientTag sets the client tag for the context the reporter creates.
func WithClientTag(tag string) Option {
	return func(c *reporterConfig) {
		c.clientTag = tag
	}
}

// Reporter writes failure reports to cxdb.
type Reporter struct {
	client    CXDBClient
	labels    []string
	clientTag string

	mu        sync.Mutex
	contextID uint64
	hasCtx    bool
}

// NewReporter creates a reporter writing to client. Without WithContextID the
// first report creates a context that every later report reuses.
func NewReporter(client CXDBClient, opts ...Option) *Reporter {
	cfg := &reporterConfig{
		labels:    []string{"tdevents", "dead-letter"},
		clientTag: "tdevents",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &Reporter{
		client:    client,
		labels:    cfg.labels,
		clientTag: cfg.clientTag,
	}
	if cfg.contextID != nil {
		r.contextID = *cfg.contextID
		r.hasCtx = true
	}
	return r
}

// Report persists a failure report. The report ID is used as idempotency
// key, so a retried report is stored once.
func (r *Reporter) Report(ctx context.Context, report tdevents.FailureReport) error {
	// Serialized so the created context is shared and its metadata lands on
	// the first turn.
	r.mu.Lock()
	defer r.mu.Unlock()

	created := false
	if !r.hasCtx {
		head, err := r.client.CreateContext(ctx, 0)
		if err != nil {
			return fmt.Errorf("create dead-letter context: %w", err)
		}
		r.contextID = head.ContextID
		r.hasCtx = true
		created = true
	}

	item := r.buildConversationItem(report, created)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      r.contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: report.ID,
	}

	if _, err := r.client.AppendTurn(ctx, req); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// ContextID returns the context reports are written to, or ok=false before
// the first report created one.
func (r *Reporter) ContextID() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contextID, r.hasCtx
}

// buildConversationItem creates a canonical ConversationItem from a report.
func (r *Reporter) buildConversationItem(report tdevents.FailureReport, firstTurn bool) *cxdtypes.ConversationItem {
	// Title: "<code> in <operation> <destination>: <message>"
	title := report.Code + " in " + string(report.Operation)
	if report.Destination != "" {
		title += " " + report.Destination
	}
	if report.Message != "" {
		const maxMsgLen = 60
		msg := report.Message
		if len(msg) > maxMsgLen {
			msg = truncateUTF8(msg, maxMsgLen) + "..."
		}
		title += ": " + msg
	}
	if len(title) > 100 {
		title = truncateUTF8(title, 97) + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: report.Timestamp.UnixMilli(),
		ID:        report.ID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: buildReportDetails(report),
		},
	}

	// cxdb expects context metadata on the first turn.
	if firstTurn {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    r.labels,
			ClientTag: r.clientTag,
		}
	}

	return item
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// buildReportDetails encodes the full report as JSON for SystemMessage.Content.
func buildReportDetails(report tdevents.FailureReport) string {
	details := map[string]any{
		"report_id":   report.ID,
		"timestamp":   report.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		"operation":   string(report.Operation),
		"code":        report.Code,
		"message":     report.Message,
		"fingerprint": report.Fingerprint,
	}
	if report.Destination != "" {
		details["destination"] = report.Destination
	}
	if report.Status != 0 {
		details["status"] = report.Status
	}

	jsonBytes, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}
