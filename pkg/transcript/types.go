package transcript

import (
	"errors"
	"fmt"
)

// Sender identifies who produced a turn.
type Sender string

// Senders
const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Status tracks the lifecycle of a turn.
type Status string

// Turn statuses
const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusErrored   Status = "errored"
)

// DefaultKey is the storage key of the persisted transcript.
const DefaultKey = "chatHistory"

// Entry texts appended on failures.
const (
	ApologyText        = "Sorry, there was an error. Please try again."
	ConnectionLostText = "Connection lost. Please try again."
)

// Turn is one entry of the transcript.
type Turn struct {
	ID     int    `json:"id"`
	Sender Sender `json:"sender"`
	Text   string `json:"text"`
	Status Status `json:"status,omitempty"`
}

// ErrStaleGeneration is returned for a mutation issued by a submission that
// started before the last Clear. The mutation is dropped.
var ErrStaleGeneration = errors.New("transcript was cleared after this submission started")

// PersistError reports a failure to write the transcript to storage. The
// in-memory transcript is updated regardless.
type PersistError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to %s transcript: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *PersistError) Unwrap() error {
	return e.Cause
}

// valid reports whether a loaded turn is acceptable.
func (t Turn) valid() bool {
	return t.Text != "" && (t.Sender == SenderUser || t.Sender == SenderBot)
}
