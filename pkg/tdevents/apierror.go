// apierror.go converts ingestion API error responses into *APIError.

package tdevents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// APIError is a failure reported by the remote ingestion API.
type APIError struct {
	// Status is the "status" property of the JSON error body if present,
	// otherwise the HTTP status code.
	Status int

	// ErrorName is the "error" property of the JSON error body. It is nil
	// when the body is not a JSON object or has no such property.
	ErrorName *string

	// Message is the "message" property, the entire body when it is not a
	// JSON object, or the whole JSON object when it has neither "error" nor
	// "message".
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.ErrorName != nil {
		return fmt.Sprintf("tdevents: API error (status %d, %s): %s", e.Status, *e.ErrorName, e.Message)
	}
	return fmt.Sprintf("tdevents: API error (status %d): %s", e.Status, e.Message)
}

// IsServerError returns true for 5xx statuses.
func (e *APIError) IsServerError() bool {
	return e.Status >= 500 && e.Status < 600
}

// IsRetryable returns true if the request may succeed when retried.
func (e *APIError) IsRetryable() bool {
	return e.Status == 429 || e.IsServerError()
}

// TranslateAPIError builds an *APIError from an HTTP status code and response
// body. The body is parsed as a JSON object first; if that fails the whole
// body becomes the message. A JSON object with neither "error" nor "message"
// is used verbatim (compacted) as the message.
func TranslateAPIError(httpStatus int, body string) *APIError {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil || obj == nil || hasDuplicateKeys(body) {
		return &APIError{Status: httpStatus, Message: body}
	}

	errName := optString(obj, "error")
	message := optString(obj, "message")
	status := optInt(obj, "status", httpStatus)

	if errName == nil && message == nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(body)); err != nil {
			return &APIError{Status: status, Message: strings.TrimSpace(body)}
		}
		return &APIError{Status: status, Message: buf.String()}
	}

	apiErr := &APIError{Status: status, ErrorName: errName}
	if message != nil {
		apiErr.Message = *message
	}
	return apiErr
}

// hasDuplicateKeys reports whether any object in body repeats a key. Such
// bodies are not treated as JSON objects.
func hasDuplicateKeys(body string) bool {
	dec := json.NewDecoder(strings.NewReader(body))
	dup, err := scanDuplicates(dec)
	return err == nil && dup
}

func scanDuplicates(dec *json.Decoder) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return false, nil
	}

	switch delim {
	case '{':
		seen := make(map[string]struct{})
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return false, err
			}
			key, _ := keyTok.(string)
			if _, ok := seen[key]; ok {
				return true, nil
			}
			seen[key] = struct{}{}
			if dup, err := scanDuplicates(dec); dup || err != nil {
				return dup, err
			}
		}
	case '[':
		for dec.More() {
			if dup, err := scanDuplicates(dec); dup || err != nil {
				return dup, err
			}
		}
	}
	// closing delimiter
	_, err = dec.Token()
	return false, err
}

// optString returns the property as a string. Non-string values are
// rendered as their JSON text; null and missing properties yield nil.
func optString(obj map[string]json.RawMessage, key string) *string {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		s = string(raw)
	} else {
		s = buf.String()
	}
	return &s
}

// optInt returns the property as an int, accepting numbers and numeric
// strings. Anything else yields fallback.
func optInt(obj map[string]json.RawMessage, key string, fallback int) int {
	raw, ok := obj[key]
	if !ok || isJSONNull(raw) {
		return fallback
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return clampInt(n)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return clampInt(f)
		}
	}
	return fallback
}

func clampInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
