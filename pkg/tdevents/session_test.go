package tdevents

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager() (*SessionManager, *fakeClock) {
	clock := newFakeClock()
	return NewSessionManager(clock, &sequentialIDs{prefix: "sess"}), clock
}

func TestSessionManager_NoSessionInitially(t *testing.T) {
	m, _ := newTestSessionManager()

	_, ok := m.ID()
	assert.False(t, ok)

	_, ok = m.Touch()
	assert.False(t, ok)

	assert.Equal(t, DefaultSessionTimeout, m.Timeout())
}

func TestSessionManager_StartMarksFirstTouch(t *testing.T) {
	m, _ := newTestSessionManager()

	id, created := m.Start()
	require.True(t, created)
	assert.Equal(t, "sess-1", id)

	first, ok := m.Touch()
	require.True(t, ok)
	assert.Equal(t, SessionFields{ID: "sess-1", Event: SessionEventStart}, first)

	second, ok := m.Touch()
	require.True(t, ok)
	assert.Equal(t, SessionFields{ID: "sess-1"}, second)
}

func TestSessionManager_StableWithinTimeout(t *testing.T) {
	m, clock := newTestSessionManager()
	m.Start()

	// Each touch extends the window.
	for i := 0; i < 5; i++ {
		clock.Advance(9 * time.Second)
		fields, ok := m.Touch()
		require.True(t, ok, "touch %d", i)
		assert.Equal(t, "sess-1", fields.ID)
	}

	id, ok := m.ID()
	assert.True(t, ok)
	assert.Equal(t, "sess-1", id)
}

func TestSessionManager_StartWhileActiveKeepsID(t *testing.T) {
	m, clock := newTestSessionManager()
	m.Start()
	m.Touch()

	clock.Advance(5 * time.Second)
	id, created := m.Start()

	assert.False(t, created)
	assert.Equal(t, "sess-1", id)

	// No second start marker.
	fields, _ := m.Touch()
	assert.Empty(t, fields.Event)
}

func TestSessionManager_ExpiresAndRotates(t *testing.T) {
	m, clock := newTestSessionManager()
	m.Start()

	clock.Advance(DefaultSessionTimeout)

	_, ok := m.ID()
	assert.False(t, ok, "session is inactive once now-lastTouched reaches the timeout")
	_, ok = m.Touch()
	assert.False(t, ok)

	id, created := m.Start()
	assert.True(t, created)
	assert.Equal(t, "sess-2", id)
}

func TestSessionManager_ExpiryDropsPendingStart(t *testing.T) {
	m, clock := newTestSessionManager()
	m.Start()
	clock.Advance(time.Minute)

	fields, ok := m.Touch()
	assert.False(t, ok)
	assert.Equal(t, SessionFields{}, fields)
}

func TestSessionManager_EndClears(t *testing.T) {
	m, _ := newTestSessionManager()
	m.Start()

	id, ok := m.End()
	assert.True(t, ok)
	assert.Equal(t, "sess-1", id)

	_, ok = m.ID()
	assert.False(t, ok)

	_, ok = m.End()
	assert.False(t, ok, "ending twice reports no active session")

	id, _ = m.Start()
	assert.Equal(t, "sess-2", id, "a session started after End gets a new id")
}

func TestSessionManager_EndAfterExpiry(t *testing.T) {
	m, clock := newTestSessionManager()
	m.Start()
	clock.Advance(DefaultSessionTimeout + time.Second)

	_, ok := m.End()
	assert.False(t, ok)
}

func TestSessionManager_SetTimeout(t *testing.T) {
	m, clock := newTestSessionManager()
	m.SetTimeout(time.Minute)
	m.Start()

	clock.Advance(30 * time.Second)
	_, ok := m.ID()
	assert.True(t, ok)

	m.SetTimeout(0)
	assert.Equal(t, DefaultSessionTimeout, m.Timeout())
	_, ok = m.ID()
	assert.False(t, ok, "shorter timeout applies to the live session")

	m.SetTimeout(-time.Second)
	assert.Equal(t, DefaultSessionTimeout, m.Timeout())
}

func TestSessionManager_Current(t *testing.T) {
	m, clock := newTestSessionManager()
	started := clock.Now()
	m.Start()
	clock.Advance(2 * time.Second)
	m.Touch()

	s, ok := m.Current()
	require.True(t, ok)
	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, started, s.StartedAt)
	assert.Equal(t, started.Add(2*time.Second), s.LastTouchedAt)
}

func TestSessionManager_ConcurrentAccess(t *testing.T) {
	m := NewSessionManager(nil, nil)
	m.Start()

	var wg sync.WaitGroup
	ids := make(chan string, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if fields, ok := m.Touch(); ok {
				ids <- fields.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	want, _ := m.ID()
	for id := range ids {
		assert.Equal(t, want, id)
	}
}
