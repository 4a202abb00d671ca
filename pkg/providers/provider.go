package providers

import "context"

// Provider is the interface every model backend adapter implements.
// It offers a unary and a streaming form of the same Converse call.
//
// All methods accept a context.Context for cancellation. Implementations must
// not retry internally; the invocation either succeeds or fails once.
//
// Example usage:
//
//	resp, err := provider.Converse(ctx, &ConverseRequest{
//	    ModelID:  "anthropic.claude-3-5-sonnet-20240620-v1:0",
//	    Messages: []Message{TextMessage(RoleUser, "Hello!")},
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(resp.Text())
type Provider interface {
	// Converse sends the conversation and waits for the complete response.
	Converse(ctx context.Context, req *ConverseRequest) (*ConverseResponse, error)

	// ConverseStream opens a streaming invocation. The returned stream must
	// be closed by the caller.
	ConverseStream(ctx context.Context, req *ConverseRequest) (EventStream, error)

	// Name returns the adapter's name (e.g., "anthropic", "bedrock", "openai").
	Name() string

	// Close releases any resources held by the adapter.
	Close() error
}

// EventStream is a pull-based provider event stream. It is consumed once,
// in order.
type EventStream interface {
	// Recv returns the next event.
	// Returns io.EOF when the stream ends normally.
	Recv(ctx context.Context) (Event, error)

	// Close closes the stream and releases the underlying connection.
	// It is safe to call more than once.
	Close() error
}
