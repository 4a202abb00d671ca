// Package relay implements the stream normalizer and the line-delimited wire
// protocol shared by the server bindings and the client consumer.
//
// # Wire Protocol
//
// Each event is one JSON object on its own line:
//
//	{"type":"headers","headers":{...}}
//	{"type":"chunk","content":"<text>"}
//	{"type":"metadata","usage":{...},"metrics":{...}}
//	{"type":"error","error":"<kind>","message":"<text>"}
//
// The event set is closed. Decode reports malformed lines and unknown types
// as distinct errors so consumers can log and skip them.
//
// WebSocket peers receive the same events wrapped in a Frame:
//
//	{"type":"message","content":{"type":"chunk","content":"<text>"}}
//	{"type":"error","content":{"message":"<text>"}}
//	{"type":"end","content":{}}
//
// The end frame marks a completed reply.
//
// # Normalizer
//
// Normalizer.Relay pulls one provider event at a time and forwards it to a
// Sink, so a slow consumer slows the producer. A failed relay produces
// exactly one error event. The provider stream and the sink are always
// closed.
package relay
