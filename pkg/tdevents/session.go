// session.go implements the inactivity-timeout session state machine.

package tdevents

import (
	"sync"
	"time"
)

// DefaultSessionTimeout is how long a session survives without activity.
const DefaultSessionTimeout = 10 * time.Second

// Columns merged into records while a session is active.
const (
	SessionIDColumn    = "session_id"
	SessionEventColumn = "session_event"
)

// SessionEvent marks the records that open and close a session.
type SessionEvent string

const (
	SessionEventStart SessionEvent = "start"
	SessionEventEnd   SessionEvent = "end"
)

// Session is a snapshot of the live session.
type Session struct {
	ID            string
	StartedAt     time.Time
	LastTouchedAt time.Time
}

// SessionFields are the columns a session contributes to one record.
type SessionFields struct {
	ID    string
	Event SessionEvent // empty for ordinary events
}

// apply merges the fields into r.
func (f SessionFields) apply(r *Record) {
	if f.ID != "" {
		r.Set(SessionIDColumn, f.ID)
	}
	if f.Event != "" {
		r.Set(SessionEventColumn, string(f.Event))
	}
}

// SessionManager owns at most one session. A session is active while
// now - LastTouchedAt < timeout; expiry is evaluated lazily whenever the
// state is read, and no event is emitted when a session simply times out.
//
// All methods are serialized by a single mutex, so concurrent callers never
// observe the session moving backwards.
type SessionManager struct {
	mu           sync.Mutex
	clock        Clock
	ids          IDGenerator
	timeout      time.Duration
	current      *Session
	startPending bool
}

// NewSessionManager returns a manager with no session and
// DefaultSessionTimeout. Nil arguments select SystemClock and UUIDGenerator.
func NewSessionManager(clock Clock, ids IDGenerator) *SessionManager {
	if clock == nil {
		clock = SystemClock
	}
	if ids == nil {
		ids = UUIDGenerator
	}
	return &SessionManager{clock: clock, ids: ids, timeout: DefaultSessionTimeout}
}

// SetTimeout changes the inactivity window for subsequent checks.
// Non-positive values restore DefaultSessionTimeout.
func (m *SessionManager) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultSessionTimeout
	}
	m.mu.Lock()
	m.timeout = d
	m.mu.Unlock()
}

// Timeout returns the inactivity window.
func (m *SessionManager) Timeout() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timeout
}

// Start opens a new session unless one is active, in which case only its
// touch time advances. It reports the session id and whether it was created.
// The next record passed through Touch carries the "start" marker.
func (m *SessionManager) Start() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if m.activeLocked(now) {
		m.current.LastTouchedAt = now
		return m.current.ID, false
	}

	m.current = &Session{ID: m.ids.NewID(), StartedAt: now, LastTouchedAt: now}
	m.startPending = true
	return m.current.ID, true
}

// Touch refreshes an active session and returns the columns to merge into
// the record being added. An expired session is discarded and ok is false.
func (m *SessionManager) Touch() (SessionFields, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	if !m.activeLocked(now) {
		m.clearLocked()
		return SessionFields{}, false
	}

	m.current.LastTouchedAt = now
	fields := SessionFields{ID: m.current.ID}
	if m.startPending {
		fields.Event = SessionEventStart
		m.startPending = false
	}
	return fields, true
}

// End closes the session. It returns the id of the session that was active,
// or ok=false if there was none.
func (m *SessionManager) End() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	active := m.activeLocked(now)
	var id string
	if active {
		id = m.current.ID
	}
	m.clearLocked()
	return id, active
}

// ID returns the active session id. This is where an elapsed timeout is
// noticed: the stored session is dropped and ok is false.
func (m *SessionManager) ID() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.activeLocked(m.clock.Now()) {
		m.clearLocked()
		return "", false
	}
	return m.current.ID, true
}

// Current returns a snapshot of the active session.
func (m *SessionManager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.activeLocked(m.clock.Now()) {
		m.clearLocked()
		return Session{}, false
	}
	return *m.current, true
}

func (m *SessionManager) activeLocked(now time.Time) bool {
	return m.current != nil && now.Sub(m.current.LastTouchedAt) < m.timeout
}

func (m *SessionManager) clearLocked() {
	m.current = nil
	m.startPending = false
}
