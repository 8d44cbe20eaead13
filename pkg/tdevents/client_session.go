// client_session.go exposes the session API on Client.

package tdevents

import (
	"context"
	"time"
)

// StartSession opens a session, or keeps the active one alive. The next
// event added carries the session id and the "start" marker; every later
// event added while the session stays active carries the same id.
func (c *Client) StartSession() string {
	id, created := c.sessions.Start()
	if created {
		c.logger.Debug("tdevents: session started", "session_id", id)
	}
	return id
}

// EndSession closes the active session and emits an "end" event to the
// database and table most recently used by AddEvent. With no active session,
// or no event added yet, nothing is emitted and cb (if any) succeeds.
func (c *Client) EndSession(ctx context.Context, cb Callback) {
	id, active := c.sessions.End()
	database, table := c.lastTarget()
	if !active || table == "" {
		c.logger.Debug("tdevents: session ended without end event", "active", active)
		c.dispatch.resolver(ctx, OperationAddEvent, "", cb)(Success())
		return
	}

	c.logger.Debug("tdevents: session ended", "session_id", id)
	end := SessionFields{ID: id, Event: SessionEventEnd}
	c.add(ctx, addRequest{
		database: database,
		table:    table,
		session:  func() (SessionFields, bool) { return end, true },
	}, cb)
}

// StartSessionEvent opens (or keeps) a session and immediately emits a
// "start" event to database.table. An empty database selects the default.
func (c *Client) StartSessionEvent(ctx context.Context, database, table string, cb Callback) {
	c.StartSession()
	c.add(ctx, addRequest{
		database: database,
		table:    table,
		session: func() (SessionFields, bool) {
			fields, ok := c.sessions.Touch()
			fields.Event = SessionEventStart
			return fields, ok
		},
	}, cb)
}

// EndSessionEvent emits an "end" event to database.table and closes the
// session. The event carries the session id only if a session was active.
func (c *Client) EndSessionEvent(ctx context.Context, database, table string, cb Callback) {
	id, _ := c.sessions.End()
	end := SessionFields{ID: id, Event: SessionEventEnd}
	c.add(ctx, addRequest{
		database: database,
		table:    table,
		session:  func() (SessionFields, bool) { return end, true },
	}, cb)
}

// SessionID returns the active session id, or ok=false once the session has
// ended or timed out.
func (c *Client) SessionID() (string, bool) {
	return c.sessions.ID()
}

// SetSessionTimeout changes the inactivity window for subsequent checks.
// Non-positive values restore DefaultSessionTimeout.
func (c *Client) SetSessionTimeout(d time.Duration) {
	c.sessions.SetTimeout(d)
}

// SessionTimeout returns the inactivity window.
func (c *Client) SessionTimeout() time.Duration {
	return c.sessions.Timeout()
}
