// Package tdevents records tagged key/value events on the client side and
// hands them to a pluggable transport that ships them in batches to a remote
// ingestion API.
//
// # Core Components
//
//   - Client: facade exposing AddEvent, UploadEvents and the session API
//   - Transport: the collaborator that queues and sends events (ingest, async,
//     memory, multi, noop, stderr)
//   - SessionManager: timeout-based session id shared by every event added
//     while the session is active
//   - Enricher: optional server-side upload timestamp and record UUID columns
//   - TranslateAPIError: turns an HTTP status and response body into *APIError
//
// # Quick Start
//
//	transport := ingest.NewTransport(apiKey)
//	client := tdevents.NewClient(
//	    tdevents.WithTransport(transport),
//	    tdevents.WithDefaultDatabase("my_app"),
//	)
//	defer client.Close()
//
//	client.StartSession()
//	client.AddEvent(ctx, "", "page_views", map[string]any{"path": "/"}, nil)
//	client.UploadEvents(ctx, tdevents.CallbackFuncs{
//	    Error: func(code string, err error) { log.Printf("%s: %v", code, err) },
//	})
//
// # Outcomes
//
// Every AddEvent and UploadEvents call resolves to exactly one of
// Callback.OnSuccess or Callback.OnError. Validation failures resolve
// synchronously with ErrCodeInvalidParam and never reach the transport.
// Transport outcomes resolve whenever the transport reports them, possibly on
// another goroutine. A nil callback means fire and forget.
//
// # Design Principles
//
//   - No background timers: session expiry is evaluated lazily on access
//   - Process-wide state (session, enrichment) lives in owned objects guarded
//     by a mutex, so independent clients never interfere
//   - Core package depends only on uuid; config loading, transports and
//     reporters live in sub-packages that carry the heavier dependencies
package tdevents
