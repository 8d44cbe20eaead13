// event.go defines the canonical event data structure.

package tdevents

import "time"

// Event is a single record routed to a database table.
// Events are built by the Client and handed to a Transport in call order.
type Event struct {
	// Database is the validated database name.
	Database string

	// Table is the validated table name.
	Table string

	// Record holds the user columns followed by any session and enrichment
	// columns.
	Record Record

	// EnqueuedAt is when the Client handed the event to the transport.
	EnqueuedAt time.Time
}

// Destination returns the "database.table" tag the event is routed to.
func (e Event) Destination() string {
	return Destination(e.Database, e.Table)
}

// Destination joins a database and table name into a routing tag.
func Destination(database, table string) string {
	return database + "." + table
}
