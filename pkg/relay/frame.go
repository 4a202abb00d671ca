package relay

import (
	"encoding/json"
	"fmt"

	"mercator-hq/chatrelay/pkg/providers"
)

// FrameType is the outer tag of a WebSocket frame.
type FrameType string

// Frame types
const (
	FrameMessage FrameType = "message"
	FrameError   FrameType = "error"
	FrameEnd     FrameType = "end"
)

// ActionSendMessage is the route key clients put in inbound frames.
const ActionSendMessage = "sendmessage"

// GenericErrorMessage is pushed to a WebSocket peer when a relay fails.
const GenericErrorMessage = "An error occurred while processing your request"

// Frame is an outbound WebSocket message:
//
//	{"type":"message","content":{"type":"chunk","content":"..."}}
//	{"type":"error","content":{"message":"..."}}
//	{"type":"end","content":{}}
//
// An end frame follows the last chunk of a completed reply. It is an
// envelope marker, not a wire event.
type Frame struct {
	Type    FrameType       `json:"type"`
	Content json.RawMessage `json:"content"`
}

type errorContent struct {
	Message string `json:"message"`
}

// EventFrame wraps a wire event in a message frame.
func EventFrame(ev Event) (Frame, error) {
	content, err := json.Marshal(ev)
	if err != nil {
		return Frame{}, fmt.Errorf("failed to encode frame content: %w", err)
	}
	return Frame{Type: FrameMessage, Content: content}, nil
}

// ChunkFrame builds the message frame for one text fragment.
func ChunkFrame(text string) Frame {
	f, _ := EventFrame(Chunk{Content: text})
	return f
}

// ErrorFrame builds an error frame.
func ErrorFrame(message string) Frame {
	content, _ := json.Marshal(errorContent{Message: message})
	return Frame{Type: FrameError, Content: content}
}

// EndFrame builds the frame that closes a completed reply.
func EndFrame() Frame {
	return Frame{Type: FrameEnd, Content: json.RawMessage(`{}`)}
}

// Bytes renders the frame.
func (f Frame) Bytes() []byte {
	b, _ := json.Marshal(f)
	return b
}

// DecodeFrame parses an outbound frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, &MalformedLineError{Line: string(data), Cause: err}
	}
	switch f.Type {
	case FrameMessage, FrameError, FrameEnd:
		return f, nil
	default:
		return Frame{}, &UnknownEventError{Type: string(f.Type)}
	}
}

// Event decodes the wire event carried by a message frame.
func (f Frame) Event() (Event, error) {
	if f.Type != FrameMessage {
		return nil, fmt.Errorf("frame of type %q carries no event", f.Type)
	}
	return Decode(f.Content)
}

// ErrorMessage returns the message of an error frame.
func (f Frame) ErrorMessage() (string, bool) {
	if f.Type != FrameError {
		return "", false
	}
	var c errorContent
	if err := json.Unmarshal(f.Content, &c); err != nil {
		return "", true
	}
	return c.Message, true
}

// ChatRequest is the inbound payload of all three transports. Action is
// only set on WebSocket frames.
type ChatRequest struct {
	Action   string              `json:"action,omitempty"`
	Messages []providers.Message `json:"messages"`
}

// ParseChatRequest decodes an inbound payload. An empty body is treated as
// "{}". Missing messages are left empty; the invoker substitutes the
// placeholder conversation.
func ParseChatRequest(body []byte) (ChatRequest, error) {
	var req ChatRequest
	if len(body) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return ChatRequest{}, fmt.Errorf("invalid chat request body: %w", err)
	}
	return req, nil
}
