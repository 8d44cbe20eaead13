// clock.go defines the time and id sources used by sessions and enrichment.

package tdevents

import (
	"time"

	"github.com/google/uuid"
)

// Clock supplies the current time. time.Now carries a monotonic reading,
// which is what session timeouts are measured against.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// IDGenerator produces fresh opaque unique strings.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID calls f.
func (f IDGeneratorFunc) NewID() string { return f() }

var (
	// SystemClock reads the wall clock.
	SystemClock Clock = ClockFunc(time.Now)

	// UUIDGenerator returns random (version 4) UUID strings.
	UUIDGenerator IDGenerator = IDGeneratorFunc(uuid.NewString)
)
