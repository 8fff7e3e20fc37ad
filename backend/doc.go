// Package backend defines the boundary to the remote backend service:
// table-scoped reads and writes with filter predicates, stored
// procedure calls, object uploads, and realtime row-change
// subscriptions.
//
// The Client interface is what the rest of the application programs
// against. MemoryClient implements it in-process for tests and local
// development; production wiring supplies a transport-backed
// implementation.
//
// Failures cross this boundary as *Error values carrying a stable Code,
// so callers branch on taxonomy instead of matching provider message
// strings.
package backend
