// Chatrelay relays chat turns between clients and a hosted language model.
//
// The relay exposes a unary endpoint, a streaming NDJSON endpoint and a
// managed WebSocket route. The chat command is a terminal client for all
// three.
//
// Usage:
//
//	# Start the relay with the default configuration
//	chatrelay run
//
//	# Start with a configuration file
//	chatrelay run --config /etc/chatrelay/config.yaml
//
//	# Chat over the streaming endpoint
//	chatrelay chat --endpoint stream
//
//	# Print the persisted transcript as CSV
//	chatrelay history show --format csv
//
//	# Validate a configuration file
//	chatrelay validate --config config.yaml
package main

import "os"

func main() {
	os.Exit(Execute())
}
