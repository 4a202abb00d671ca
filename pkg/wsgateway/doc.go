// Package wsgateway is a small WebSocket gateway in the style of managed
// WebSocket APIs: every connection gets an ID, lifecycle steps and inbound
// messages are dispatched to a route handler as events, and replies are
// pushed back by connection ID through a push API that reports
// disconnected peers as gone.
//
// Delivery wraps a Pusher with a liveness check before every attempt and
// bounded linear retries.
package wsgateway
