// Package handlers implements the three chat bindings of the relay and the
// probe endpoints.
//
//   - ChatHandler (POST /chat): one complete model response as JSON; 500
//     with a generic body on failure.
//   - StreamHandler (POST /chat/stream): an application/x-ndjson response,
//     a headers event first and then one wire event per line, flushed as
//     written.
//   - WebSocketHandler: a wsgateway.RouteHandler. $connect and $disconnect
//     are acknowledged; every chat message is relayed and each chunk pushed
//     back to its connection as a message frame, followed by an end frame
//     once the reply is complete. A peer that goes away mid-stream ends the
//     invocation with 410.
//
// A body that is not JSON is answered with 400 on /chat and /chat/stream
// before the model is called.
//
// OPTIONS requests are answered with the static CORS headers before any
// model call.
package handlers
