// Package kvstore provides the small key-value stores that back client-side
// transcript persistence: in-memory, SQLite (modernc pure Go driver by
// default, mattn cgo driver optional) and redis.
package kvstore
