// Package providers implements the model invocation layer.
//
// # Overview
//
// A Provider adapts one model backend (Anthropic Messages API, Amazon
// Bedrock, OpenAI-compatible APIs, or the in-process scripted backend) to a
// single Converse shape:
//
//	{"role": "user", "content": [{"text": "..."}]}
//
// Streaming invocations return an EventStream, a pull-based sequence of
// provider events:
//
//	messageStart -> contentBlockDelta* -> messageStop -> metadata
//
// # Invoker
//
// The Invoker binds a provider to a model id and inference settings
// (max tokens, temperature, top-p, system prompt). It substitutes a
// placeholder conversation when none is supplied, wraps every failure in a
// *ModelInvocationError, records provider health and opens a tracing span
// per invocation. It never retries.
//
//	invoker := providers.NewInvoker(provider, providers.DefaultSettings())
//	stream, err := invoker.ConverseStream(ctx, messages)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    ev, err := stream.Recv(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Print(ev.DeltaText())
//	}
//
// # Thread Safety
//
// Providers and the Invoker are safe for concurrent use. An EventStream
// belongs to a single invocation and must not be shared.
package providers
