// failure.go defines failure reports handed to an optional FailureReporter.

package tdevents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Operation names the client call an outcome belongs to.
type Operation string

const (
	OperationAddEvent     Operation = "add_event"
	OperationUploadEvents Operation = "upload_events"
)

// FailureReport describes one failed operation.
type FailureReport struct {
	// ID is a unique identifier for this report (UUID).
	ID string

	// Timestamp is when the failure was observed.
	Timestamp time.Time

	// Operation is the failed call.
	Operation Operation

	// Destination is "database.table" for add_event, empty for uploads.
	Destination string

	// Code is the vendor error code delivered to the callback.
	Code string

	// Status is the API status for *APIError failures, otherwise 0.
	Status int

	// Message is the scrubbed error message.
	Message string

	// Fingerprint groups similar failures.
	Fingerprint string
}

// FailureReporter receives a report for every failed operation.
// Implementations must be safe for concurrent use. Errors are logged by the
// client and never reach callers.
type FailureReporter interface {
	Report(ctx context.Context, report FailureReport) error
}

// Fingerprint hashes the stable parts of a report: operation, code, status
// and destination. Messages, ids and timestamps are ignored.
func Fingerprint(report FailureReport) string {
	input := strings.Join([]string{
		string(report.Operation),
		report.Code,
		strconv.Itoa(report.Status),
		report.Destination,
	}, "|")
	hash := sha256.Sum256([]byte(input))

	// First 16 bytes, 32 hex chars.
	return hex.EncodeToString(hash[:16])
}

// newFailureReport builds a report for res. Status is lifted from an
// *APIError anywhere in the error chain.
func newFailureReport(id string, now time.Time, op Operation, destination string, res Result) FailureReport {
	report := FailureReport{
		ID:          id,
		Timestamp:   now,
		Operation:   op,
		Destination: destination,
		Code:        res.Code,
		Message:     res.Err.Error(),
	}
	var apiErr *APIError
	if errors.As(res.Err, &apiErr) {
		report.Status = apiErr.Status
	}
	report.Fingerprint = Fingerprint(report)
	return report
}
