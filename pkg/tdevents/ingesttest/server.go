package ingesttest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// TestAPIKey is the default API key accepted by MockServer.
const TestAPIKey = "1/test-api-key"

// MockServer is a test ingestion API that records requests for verification.
type MockServer struct {
	*httptest.Server

	apiKey string

	mu       sync.Mutex
	requests []*RecordedRequest
	queued   []cannedResponse
}

// RecordedRequest is one request received by the MockServer.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Body          []byte

	// Batch is the decoded body, keyed by "database.table".
	Batch map[string][]map[string]any

	// Status is the HTTP status the server answered with.
	Status int
}

type cannedResponse struct {
	status int
	body   string
}

func init() {
	gin.SetMode(gin.TestMode)
}

// NewMockServer starts a server accepting apiKey.
func NewMockServer(apiKey string) *MockServer {
	ms := &MockServer{apiKey: apiKey}

	router := gin.New()
	router.POST("/event", ms.handleEvent)
	ms.Server = httptest.NewServer(router)

	return ms
}

func (ms *MockServer) handleEvent(c *gin.Context) {
	raw, _ := c.GetRawData()
	rec := &RecordedRequest{
		Method:        c.Request.Method,
		Path:          c.Request.URL.Path,
		Authorization: c.GetHeader("Authorization"),
		ContentType:   c.ContentType(),
		Body:          raw,
	}

	status, respond := ms.route(rec)
	rec.Status = status

	ms.mu.Lock()
	ms.requests = append(ms.requests, rec)
	ms.mu.Unlock()

	respond(c)
}

// route decides the response for rec.
func (ms *MockServer) route(rec *RecordedRequest) (int, func(*gin.Context)) {
	if canned, ok := ms.popQueued(); ok {
		return canned.status, func(c *gin.Context) {
			c.Data(canned.status, "application/json", []byte(canned.body))
		}
	}

	if rec.Authorization != "TD1 "+ms.apiKey {
		return http.StatusUnauthorized, func(c *gin.Context) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid API key",
				"status":  http.StatusUnauthorized,
			})
		}
	}

	dec := json.NewDecoder(bytes.NewReader(rec.Body))
	dec.UseNumber()
	if err := dec.Decode(&rec.Batch); err != nil {
		return http.StatusBadRequest, func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "bad_request",
				"message": err.Error(),
			})
		}
	}

	results := gin.H{}
	for dest, records := range rec.Batch {
		accepted := make([]gin.H, len(records))
		for i := range records {
			accepted[i] = gin.H{"success": true}
		}
		results[dest] = accepted
	}
	return http.StatusOK, func(c *gin.Context) {
		c.JSON(http.StatusOK, results)
	}
}

func (ms *MockServer) popQueued() (cannedResponse, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.queued) == 0 {
		return cannedResponse{}, false
	}
	next := ms.queued[0]
	ms.queued = ms.queued[1:]
	return next, true
}

// RespondNext makes the next times requests answer with status and body
// instead of being accepted.
func (ms *MockServer) RespondNext(status int, body string, times int) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for i := 0; i < times; i++ {
		ms.queued = append(ms.queued, cannedResponse{status: status, body: body})
	}
}

// Requests returns all recorded requests.
func (ms *MockServer) Requests() []*RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// RequestCount returns the number of recorded requests.
func (ms *MockServer) RequestCount() int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return len(ms.requests)
}

// LastRequest returns the most recent request, or nil if none.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// Events returns the records accepted for destination, in arrival order.
func (ms *MockServer) Events(destination string) []map[string]any {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var events []map[string]any
	for _, req := range ms.requests {
		if req.Status != http.StatusOK {
			continue
		}
		events = append(events, req.Batch[destination]...)
	}
	return events
}

// Reset clears recorded requests and queued responses.
func (ms *MockServer) Reset() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = nil
	ms.queued = nil
}
