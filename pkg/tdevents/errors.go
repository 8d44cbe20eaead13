// errors.go defines error codes and sentinel errors.

package tdevents

import (
	"errors"
	"fmt"
)

// Error codes passed to Callback.OnError. Transports may supply their own
// codes; these are the ones produced by this module.
const (
	// ErrCodeInvalidParam is used for database/table validation failures.
	ErrCodeInvalidParam = "invalid_param"

	// ErrCodeNetworkError is used when the ingestion API cannot be reached.
	ErrCodeNetworkError = "network_error"

	// ErrCodeStorageError is used when an event cannot be queued.
	ErrCodeStorageError = "storage_error"

	// ErrCodeServerResponse is used when the ingestion API rejects a request.
	ErrCodeServerResponse = "server_response"

	// ErrCodeEventDisabled is used when the event's category is switched off.
	ErrCodeEventDisabled = "event_disabled"
)

var (
	// ErrInvalidParam is wrapped by every *ValidationError.
	ErrInvalidParam = errors.New("tdevents: invalid parameter")

	// ErrNoDefaultDatabase is reported when no database was given and no
	// default database is configured.
	ErrNoDefaultDatabase = errors.New("tdevents: no database given and no default database set")

	// ErrEventDisabled is reported when the event's category is disabled.
	ErrEventDisabled = errors.New("tdevents: event category is disabled")

	// ErrQueueFull is reported by transports whose pending queue is full.
	ErrQueueFull = errors.New("tdevents: event queue is full")

	// ErrTransportClosed is reported by transports after Close.
	ErrTransportClosed = errors.New("tdevents: transport is closed")
)

// ValidationError describes a rejected database or table name.
type ValidationError struct {
	// Field is "database" or "table".
	Field string

	// Value is the rejected name.
	Value string

	// Reason is a short human-readable explanation.
	Reason string

	// Cause is an optional more specific sentinel, e.g. ErrNoDefaultDatabase.
	Cause error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("tdevents: invalid %s name %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap exposes ErrInvalidParam and Cause to errors.Is.
func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidParam, e.Cause}
	}
	return []error{ErrInvalidParam}
}
