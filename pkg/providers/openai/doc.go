// Package openai implements the OpenAI-compatible provider adapter.
//
// The adapter uses openai-go and works against api.openai.com as well as any
// server speaking the chat completions protocol (Ollama, vLLM, LM Studio)
// through BaseURL. Chunks are mapped onto the Converse event sequence:
// a synthesized messageStart, one contentBlockDelta per non-empty content
// delta, then messageStop and metadata when the stream ends.
package openai
