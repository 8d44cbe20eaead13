// client.go provides the Client facade and its options.

package tdevents

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	transport       Transport
	clock           Clock
	ids             IDGenerator
	logger          *slog.Logger
	reporter        FailureReporter
	reportTimeout   time.Duration
	scrubber        *Scrubber
	defaultDatabase string
	sessionTimeout  time.Duration
	ssutColumn      *string
	uuidColumn      *string
	categories      map[EventCategory]bool
	addCallback     Callback
	uploadCallback  Callback
}

// WithTransport sets the transport events are handed to.
func WithTransport(t Transport) ClientOption {
	return func(c *clientConfig) {
		c.transport = t
	}
}

// WithClock sets the clock used for session timestamps.
func WithClock(clock Clock) ClientOption {
	return func(c *clientConfig) {
		c.clock = clock
	}
}

// WithIDGenerator sets the source of session ids, record UUIDs and failure
// report ids.
func WithIDGenerator(ids IDGenerator) ClientOption {
	return func(c *clientConfig) {
		c.ids = ids
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithFailureReporter sets a reporter that receives every failed operation.
func WithFailureReporter(r FailureReporter) ClientOption {
	return func(c *clientConfig) {
		c.reporter = r
	}
}

// WithReportTimeout bounds each FailureReporter call. Non-positive values
// select DefaultReportTimeout.
func WithReportTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.reportTimeout = d
	}
}

// WithScrubber configures how failure messages are scrubbed before they are
// logged or reported.
func WithScrubber(cfg ScrubberConfig) ClientOption {
	return func(c *clientConfig) {
		c.scrubber = NewScrubber(cfg)
	}
}

// WithDefaultDatabase sets the database used when AddEvent gets none.
func WithDefaultDatabase(name string) ClientOption {
	return func(c *clientConfig) {
		c.defaultDatabase = name
	}
}

// WithSessionTimeout sets the session inactivity window.
func WithSessionTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.sessionTimeout = d
	}
}

// WithServerSideUploadTimestamp enables the upload timestamp column.
// An empty column selects DefaultServerSideUploadTimestampColumn.
func WithServerSideUploadTimestamp(column string) ClientOption {
	return func(c *clientConfig) {
		c.ssutColumn = &column
	}
}

// WithAutoAppendRecordUUID enables the record UUID column.
// An empty column selects DefaultRecordUUIDColumn.
func WithAutoAppendRecordUUID(column string) ClientOption {
	return func(c *clientConfig) {
		c.uuidColumn = &column
	}
}

// WithEventCategory enables or disables a category of events.
// Custom events are enabled by default, the others disabled.
func WithEventCategory(category EventCategory, enabled bool) ClientOption {
	return func(c *clientConfig) {
		c.categories[category] = enabled
	}
}

// WithAddEventCallback sets the callback used by AddEvent calls that pass nil.
func WithAddEventCallback(cb Callback) ClientOption {
	return func(c *clientConfig) {
		c.addCallback = cb
	}
}

// WithUploadEventsCallback sets the callback used by UploadEvents calls that
// pass nil.
func WithUploadEventsCallback(cb Callback) ClientOption {
	return func(c *clientConfig) {
		c.uploadCallback = cb
	}
}

// Client validates, enriches and session-tags events before handing them to
// a Transport. It is safe for concurrent use.
type Client struct {
	transport Transport
	sessions  *SessionManager
	enricher  *Enricher
	gate      *categoryGate
	dispatch  *dispatcher
	clock     Clock
	logger    *slog.Logger

	mu              sync.RWMutex
	defaultDatabase string
	lastDatabase    string
	lastTable       string
	addCallback     Callback
	uploadCallback  Callback
}

// NewClient creates a Client with the given options. Without WithTransport
// events are accepted and discarded.
func NewClient(opts ...ClientOption) *Client {
	cfg := &clientConfig{
		categories: map[EventCategory]bool{
			CategoryCustom:        true,
			CategoryAppLifecycle:  false,
			CategoryInAppPurchase: false,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.transport == nil {
		cfg.transport = noopTransportInternal{}
	}
	if cfg.clock == nil {
		cfg.clock = SystemClock
	}
	if cfg.ids == nil {
		cfg.ids = UUIDGenerator
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.scrubber == nil {
		cfg.scrubber = NewScrubber(DefaultScrubberConfig())
	}

	sessions := NewSessionManager(cfg.clock, cfg.ids)
	sessions.SetTimeout(cfg.sessionTimeout)

	enricher := NewEnricher(cfg.ids)
	if cfg.ssutColumn != nil {
		enricher.EnableServerSideUploadTimestamp(*cfg.ssutColumn)
	}
	if cfg.uuidColumn != nil {
		enricher.EnableAutoAppendRecordUUID(*cfg.uuidColumn)
	}

	return &Client{
		transport: cfg.transport,
		sessions:  sessions,
		enricher:  enricher,
		gate: newCategoryGate(
			cfg.categories[CategoryCustom],
			cfg.categories[CategoryAppLifecycle],
			cfg.categories[CategoryInAppPurchase],
		),
		dispatch: &dispatcher{
			logger:        cfg.logger,
			reporter:      cfg.reporter,
			reportTimeout: cfg.reportTimeout,
			scrubber:      cfg.scrubber,
			clock:         cfg.clock,
			ids:           cfg.ids,
		},
		clock:           cfg.clock,
		logger:          cfg.logger,
		defaultDatabase: cfg.defaultDatabase,
		addCallback:     cfg.addCallback,
		uploadCallback:  cfg.uploadCallback,
	}
}

// addRequest is one event on its way to the transport.
type addRequest struct {
	database string
	table    string
	record   Record
	// session supplies the session columns; nil means none.
	session func() (SessionFields, bool)
	// gated events are subject to category toggles.
	gated bool
}

// AddEvent validates database and table, tags fields with the active session
// and enrichment columns, and hands the event to the transport. An empty
// database selects the default database. cb may be nil.
//
// Validation failures resolve cb synchronously with ErrCodeInvalidParam and
// never reach the transport.
func (c *Client) AddEvent(ctx context.Context, database, table string, fields map[string]any, cb Callback) {
	c.add(ctx, addRequest{
		database: database,
		table:    table,
		record:   NewRecord(fields),
		session:  c.sessions.Touch,
		gated:    true,
	}, cb)
}

func (c *Client) add(ctx context.Context, req addRequest, cb Callback) {
	cb = c.callbackOr(cb, true)
	database := c.resolveDatabase(req.database)
	destination := ""
	if database != "" {
		destination = Destination(database, req.table)
	}
	resolve := c.dispatch.resolver(ctx, OperationAddEvent, destination, cb)

	if err := validateTarget(database, req.table); err != nil {
		resolve(Failure(ErrCodeInvalidParam, err))
		return
	}

	record := req.record
	category := categorize(&record)
	if req.gated && !c.gate.allowed(category) {
		c.logger.Debug("tdevents: event category disabled",
			"category", category.String(), "destination", destination)
		resolve(Failure(ErrCodeEventDisabled, ErrEventDisabled))
		return
	}

	if req.session != nil {
		if fields, ok := req.session(); ok {
			fields.apply(&record)
		}
	}
	c.enricher.Enrich(&record)
	c.rememberTarget(database, req.table)

	c.transport.Enqueue(ctx, Event{
		Database:   database,
		Table:      req.table,
		Record:     record,
		EnqueuedAt: c.clock.Now(),
	}, resolve)
}

// UploadEvents asks the transport to send every pending event. cb may be nil.
func (c *Client) UploadEvents(ctx context.Context, cb Callback) {
	cb = c.callbackOr(cb, false)
	c.transport.Flush(ctx, c.dispatch.resolver(ctx, OperationUploadEvents, "", cb))
}

// validateTarget checks a resolved database and table.
func validateTarget(database, table string) error {
	if database == "" {
		return &ValidationError{
			Field:  "database",
			Reason: "no database given and no default database set",
			Cause:  ErrNoDefaultDatabase,
		}
	}
	if err := ValidateDatabaseName(database); err != nil {
		return err
	}
	return ValidateTableName(table)
}

// SetDefaultDatabase sets the database used when AddEvent gets none.
func (c *Client) SetDefaultDatabase(name string) {
	c.mu.Lock()
	c.defaultDatabase = name
	c.mu.Unlock()
}

// DefaultDatabase returns the configured default database.
func (c *Client) DefaultDatabase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultDatabase
}

func (c *Client) resolveDatabase(database string) string {
	if database != "" {
		return database
	}
	return c.DefaultDatabase()
}

func (c *Client) rememberTarget(database, table string) {
	c.mu.Lock()
	c.lastDatabase, c.lastTable = database, table
	c.mu.Unlock()
}

func (c *Client) lastTarget() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastDatabase, c.lastTable
}

// SetAddEventCallback sets the callback used by AddEvent calls that pass nil.
func (c *Client) SetAddEventCallback(cb Callback) {
	c.mu.Lock()
	c.addCallback = cb
	c.mu.Unlock()
}

// SetUploadEventsCallback sets the callback used by UploadEvents calls that
// pass nil.
func (c *Client) SetUploadEventsCallback(cb Callback) {
	c.mu.Lock()
	c.uploadCallback = cb
	c.mu.Unlock()
}

func (c *Client) callbackOr(cb Callback, add bool) Callback {
	if cb != nil {
		return cb
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if add {
		return c.addCallback
	}
	return c.uploadCallback
}

// EnableServerSideUploadTimestamp adds the upload timestamp column to
// subsequent events. An empty column selects
// DefaultServerSideUploadTimestampColumn.
func (c *Client) EnableServerSideUploadTimestamp(column string) {
	c.enricher.EnableServerSideUploadTimestamp(column)
}

// DisableServerSideUploadTimestamp stops adding the upload timestamp column.
func (c *Client) DisableServerSideUploadTimestamp() {
	c.enricher.DisableServerSideUploadTimestamp()
}

// EnableAutoAppendRecordUUID adds a fresh UUID column to subsequent events.
// An empty column selects DefaultRecordUUIDColumn.
func (c *Client) EnableAutoAppendRecordUUID(column string) {
	c.enricher.EnableAutoAppendRecordUUID(column)
}

// DisableAutoAppendRecordUUID stops adding the record UUID column.
func (c *Client) DisableAutoAppendRecordUUID() {
	c.enricher.DisableAutoAppendRecordUUID()
}

// EnrichmentConfig returns the current enrichment settings.
func (c *Client) EnrichmentConfig() EnrichmentConfig {
	return c.enricher.Config()
}

// SetEventCategoryEnabled enables or disables a category of events.
func (c *Client) SetEventCategoryEnabled(category EventCategory, enabled bool) {
	c.gate.set(category, enabled)
}

// EventCategoryEnabled reports whether a category of events is accepted.
func (c *Client) EventCategoryEnabled(category EventCategory) bool {
	return c.gate.allowed(category)
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}
