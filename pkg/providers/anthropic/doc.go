// Package anthropic implements the Claude provider adapter.
//
// The adapter is built on the official anthropic-sdk-go client and reaches
// Claude either through Anthropic's Messages API or through Amazon Bedrock
// (bedrock backend, AWS default credential chain). SDK retries are disabled.
//
// # Basic Usage
//
//	provider, err := anthropic.NewProvider(ctx, anthropic.Config{
//	    Backend: anthropic.BackendBedrock,
//	    Region:  "us-west-2",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stream, err := provider.ConverseStream(ctx, &providers.ConverseRequest{
//	    ModelID:  "anthropic.claude-3-5-sonnet-20240620-v1:0",
//	    Messages: providers.DefaultMessages(),
//	})
//
// # Event Mapping
//
//   - message_start       -> messageStart
//   - content_block_delta -> contentBlockDelta (text deltas carry text)
//   - message_delta       -> held (stop reason, output usage)
//   - message_stop        -> messageStop, then metadata
package anthropic
