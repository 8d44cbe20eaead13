// Package ingesttest provides an in-process ingestion API for tests.
//
// MockServer accepts the same requests as the real ingestion endpoint,
// records them, and can be told to fail the next requests:
//
//	server := ingesttest.NewMockServer(ingesttest.TestAPIKey)
//	defer server.Close()
//
//	transport := ingest.NewTransport(ingesttest.TestAPIKey, ingest.WithEndpoint(server.URL))
//	server.RespondNext(http.StatusServiceUnavailable, `{"error":"unavailable"}`, 1)
package ingesttest
