package relay

import (
	"bytes"
	"encoding/json"
	"fmt"

	"mercator-hq/chatrelay/pkg/providers"
)

// EventType is the "type" tag of a wire event.
type EventType string

// Wire event types
const (
	TypeHeaders  EventType = "headers"
	TypeChunk    EventType = "chunk"
	TypeMetadata EventType = "metadata"
	TypeError    EventType = "error"
)

// ErrorKindProcessing is the error kind sent when a relay fails.
const ErrorKindProcessing = "Failed to process request"

// Event is one line of the wire protocol. The set of implementations is
// closed: Headers, Chunk, Metadata and ErrorEvent.
type Event interface {
	Type() EventType
	isEvent()
}

// Headers carries response headers as the first line of a stream.
type Headers struct {
	Headers map[string]string `json:"headers"`
}

// Chunk carries one fragment of generated text.
type Chunk struct {
	Content string `json:"content"`
}

// Metadata carries usage and timing. It never alters transcript text.
type Metadata struct {
	Usage   *providers.Usage   `json:"usage,omitempty"`
	Metrics *providers.Metrics `json:"metrics,omitempty"`
}

// ErrorEvent terminates a stream.
type ErrorEvent struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

func (Headers) Type() EventType    { return TypeHeaders }
func (Chunk) Type() EventType      { return TypeChunk }
func (Metadata) Type() EventType   { return TypeMetadata }
func (ErrorEvent) Type() EventType { return TypeError }

func (Headers) isEvent()    {}
func (Chunk) isEvent()      {}
func (Metadata) isEvent()   {}
func (ErrorEvent) isEvent() {}

// MarshalJSON adds the type tag.
func (e Headers) MarshalJSON() ([]byte, error) {
	type alias Headers
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{TypeHeaders, alias(e)})
}

// MarshalJSON adds the type tag.
func (e Chunk) MarshalJSON() ([]byte, error) {
	type alias Chunk
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{TypeChunk, alias(e)})
}

// MarshalJSON adds the type tag.
func (e Metadata) MarshalJSON() ([]byte, error) {
	type alias Metadata
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{TypeMetadata, alias(e)})
}

// MarshalJSON adds the type tag.
func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{TypeError, alias(e)})
}

// Encode renders ev as a single line terminated by "\n". Newlines inside
// string values stay escaped, so one event is always exactly one line.
func Encode(ev Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ev); err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", ev.Type(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses one line. A line that is not a JSON object with a string
// "type" yields *MalformedLineError; an unrecognized type yields
// *UnknownEventError.
func Decode(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)

	var tag struct {
		Type *EventType `json:"type"`
	}
	if err := json.Unmarshal(line, &tag); err != nil {
		return nil, &MalformedLineError{Line: string(line), Cause: err}
	}
	if tag.Type == nil {
		return nil, &MalformedLineError{Line: string(line), Cause: errMissingType}
	}

	var (
		ev  Event
		err error
	)
	switch *tag.Type {
	case TypeHeaders:
		var v Headers
		err = json.Unmarshal(line, &v)
		ev = v
	case TypeChunk:
		var v Chunk
		err = json.Unmarshal(line, &v)
		ev = v
	case TypeMetadata:
		var v Metadata
		err = json.Unmarshal(line, &v)
		ev = v
	case TypeError:
		var v ErrorEvent
		err = json.Unmarshal(line, &v)
		ev = v
	default:
		return nil, &UnknownEventError{Type: string(*tag.Type)}
	}
	if err != nil {
		return nil, &MalformedLineError{Line: string(line), Cause: err}
	}
	return ev, nil
}
