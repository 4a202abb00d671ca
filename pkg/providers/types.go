package providers

import (
	"strings"
	"time"
)

// Message role constants
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stop reason constants
const (
	StopReasonEndTurn   = "end_turn"
	StopReasonMaxTokens = "max_tokens"
	StopReasonStop      = "stop_sequence"
)

// ContentBlock is a single text segment of a message.
type ContentBlock struct {
	Text string `json:"text"`
}

// Message is one conversation entry in the Converse shape:
// {"role": "user", "content": [{"text": "..."}]}.
type Message struct {
	// Role identifies the message sender (user, assistant)
	Role string `json:"role"`

	// Content is the ordered list of text blocks
	Content []ContentBlock `json:"content"`
}

// TextMessage builds a single-block message.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []ContentBlock{{Text: text}}}
}

// Text concatenates the text of all content blocks.
func (m Message) Text() string {
	if len(m.Content) == 1 {
		return m.Content[0].Text
	}
	var b strings.Builder
	for _, c := range m.Content {
		b.WriteString(c.Text)
	}
	return b.String()
}

// DefaultMessages is the placeholder conversation used when a request
// carries no messages.
func DefaultMessages() []Message {
	return []Message{TextMessage(RoleUser, "hello")}
}

// InferenceConfig holds sampling parameters sent with every invocation.
type InferenceConfig struct {
	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"maxTokens"`

	// Temperature controls randomness (0.0 to 1.0)
	Temperature float64 `json:"temperature"`

	// TopP controls nucleus sampling (0.0 to 1.0)
	TopP float64 `json:"topP"`
}

// ConverseRequest is a provider-agnostic model invocation.
type ConverseRequest struct {
	// ModelID is the provider model identifier
	ModelID string

	// System is the optional system prompt
	System string

	// Messages is the conversation history, oldest first
	Messages []Message

	// Inference holds sampling parameters
	Inference InferenceConfig
}

// Usage tracks token consumption for one invocation.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Metrics carries invocation timing.
type Metrics struct {
	LatencyMs int64 `json:"latencyMs"`
}

// MetricsSince builds Metrics from a start time.
func MetricsSince(start time.Time) Metrics {
	return Metrics{LatencyMs: time.Since(start).Milliseconds()}
}

// ConverseOutput wraps the generated message.
type ConverseOutput struct {
	Message Message `json:"message"`
}

// ConverseResponse is the complete result of a unary invocation. Its JSON
// form is what the unary binding returns to clients.
type ConverseResponse struct {
	Output     ConverseOutput `json:"output"`
	StopReason string         `json:"stopReason"`
	Usage      Usage          `json:"usage"`
	Metrics    Metrics        `json:"metrics"`
}

// Text returns the text of the first content block, or "" when the
// response carries no content.
func (r *ConverseResponse) Text() string {
	if r == nil || len(r.Output.Message.Content) == 0 {
		return ""
	}
	return r.Output.Message.Content[0].Text
}

// Event is one item of a provider stream. Exactly one field is set.
type Event struct {
	MessageStart      *MessageStartEvent
	ContentBlockDelta *ContentBlockDeltaEvent
	MessageStop       *MessageStopEvent
	Metadata          *MetadataEvent
}

// MessageStartEvent opens an assistant message.
type MessageStartEvent struct {
	Role string
}

// ContentBlockDeltaEvent carries an incremental piece of generated text.
// Delta may be nil for non-text deltas.
type ContentBlockDeltaEvent struct {
	Index int
	Delta *TextDelta
}

// TextDelta is the text payload of a content block delta.
type TextDelta struct {
	Text string
}

// MessageStopEvent closes the assistant message.
type MessageStopEvent struct {
	StopReason string
}

// MetadataEvent reports usage and timing. Both fields are optional.
type MetadataEvent struct {
	Usage   *Usage
	Metrics *Metrics
}

// Kind names the populated variant, for logging.
func (e Event) Kind() string {
	switch {
	case e.MessageStart != nil:
		return "messageStart"
	case e.ContentBlockDelta != nil:
		return "contentBlockDelta"
	case e.MessageStop != nil:
		return "messageStop"
	case e.Metadata != nil:
		return "metadata"
	default:
		return "unknown"
	}
}

// DeltaText returns the delta text, or "" if this is not a text delta.
func (e Event) DeltaText() string {
	if e.ContentBlockDelta == nil || e.ContentBlockDelta.Delta == nil {
		return ""
	}
	return e.ContentBlockDelta.Delta.Text
}

// StartEvent, DeltaEvent, StopEvent and MetadataOf are constructors used by
// adapters.
func StartEvent(role string) Event {
	return Event{MessageStart: &MessageStartEvent{Role: role}}
}

func DeltaEvent(index int, text string) Event {
	return Event{ContentBlockDelta: &ContentBlockDeltaEvent{Index: index, Delta: &TextDelta{Text: text}}}
}

func StopEvent(reason string) Event {
	return Event{MessageStop: &MessageStopEvent{StopReason: reason}}
}

func MetadataOf(usage Usage, metrics Metrics) Event {
	return Event{Metadata: &MetadataEvent{Usage: &usage, Metrics: &metrics}}
}
