// Package types defines the JSON bodies the relay answers with outside of
// the wire protocol: error responses and the health and readiness reports.
package types
