// Package client is the consuming end of the relay. A Session keeps the
// transcript of one conversation and submits each user turn through one of
// three transports:
//
//   - StreamTransport posts to /chat/stream and folds the NDJSON reply line
//     by line. Requests are SigV4 signed when the credentials carry access
//     keys; the ID token then travels in X-Api-Key.
//   - UnaryTransport posts to /chat and appends the complete reply.
//   - WebSocketTransport opens one socket per turn, authenticates with the
//     token query parameter and folds the chunk frames pushed back until
//     the end frame.
//
// Reply text is merged into the transcript as it arrives: a chunk extends
// the bot turn that follows the latest user turn, or starts it. Every
// failure adds exactly one errored bot turn with a generic message; the
// details are only logged.
//
// Usage:
//
//	sess, closeFn, err := client.Open(ctx, &cfg.Client, client.Options{})
//	if err != nil {
//	    return err
//	}
//	defer closeFn()
//
//	if err := sess.Submit(ctx, "Hi"); err != nil {
//	    log.Printf("submission failed: %v", err)
//	}
//	for _, turn := range sess.Turns() {
//	    fmt.Println(turn.Sender, turn.Text)
//	}
package client
