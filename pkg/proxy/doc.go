// Package proxy holds the HTTP plumbing shared by the relay bindings:
// request parsing with size limits, JSON and NDJSON response helpers and
// the mapping of errors to response bodies.
//
// The bindings themselves live in the handlers subpackage and the
// cross-cutting middleware (request IDs, access logging, CORS, panic
// recovery, timeouts) in the middleware subpackage.
package proxy
