package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"mercator-hq/chatrelay/pkg/kvstore"
	"mercator-hq/chatrelay/pkg/providers"
)

// Options configures a Store.
type Options struct {
	// Key is the storage key; DefaultKey when empty
	Key string

	// OnChange is called after every applied mutation with the affected
	// turn. It runs with the store lock released.
	OnChange func(Turn)
}

// Store is the client-side transcript. It is append-only except for the
// in-flight bot turn, and it persists itself after every mutation when
// non-empty.
//
// Every submission captures the store generation when it starts; Clear
// bumps the generation, and mutations carrying an older generation are
// dropped with ErrStaleGeneration.
type Store struct {
	kv   kvstore.Store
	opts Options

	mu         sync.Mutex
	turns      []Turn
	nextID     int
	generation uint64
}

// New creates an empty store over kv. Call Load to restore a persisted
// transcript.
func New(kv kvstore.Store, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	return &Store{kv: kv, opts: opts, nextID: 1}
}

// Load restores the persisted transcript. A value that is not a JSON array
// of turns with non-empty text and a known sender is ignored as a whole.
func (s *Store) Load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, s.opts.Key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &PersistError{Op: "load", Cause: err}
	}

	var turns []Turn
	if err := json.Unmarshal([]byte(raw), &turns); err != nil {
		slog.WarnContext(ctx, "ignoring unreadable chat history", "key", s.opts.Key, "error", err)
		return nil
	}
	for _, t := range turns {
		if !t.valid() {
			slog.WarnContext(ctx, "ignoring invalid chat history", "key", s.opts.Key, "turns", len(turns))
			return nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = make([]Turn, len(turns))
	s.nextID = 1
	for i, t := range turns {
		// Restored turns are renumbered; interrupted ones count as done.
		t.ID = s.nextID
		s.nextID++
		if t.Status == "" || t.Status == StatusStreaming || t.Status == StatusPending {
			t.Status = StatusComplete
		}
		s.turns[i] = t
	}

	slog.DebugContext(ctx, "chat history loaded", "key", s.opts.Key, "turns", len(s.turns))
	return nil
}

// Generation returns the current generation.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Turns returns a copy of the transcript.
func (s *Store) Turns() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of turns.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// Messages converts the transcript to model context. Errored bot turns are
// sent as assistant messages, like any other reply. Consecutive turns of
// the same role become one message with a content block per turn, so roles
// always alternate.
func (s *Store) Messages() []providers.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]providers.Message, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Text == "" {
			continue
		}
		role := providers.RoleUser
		if t.Sender == SenderBot {
			role = providers.RoleAssistant
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, providers.ContentBlock{Text: t.Text})
			continue
		}
		msgs = append(msgs, providers.TextMessage(role, t.Text))
	}
	return msgs
}

// AppendUser appends a user turn and returns the generation the submission
// belongs to.
func (s *Store) AppendUser(ctx context.Context, text string) (uint64, error) {
	s.mu.Lock()
	t := s.appendLocked(SenderUser, text, StatusComplete)
	gen := s.generation
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(t)
	return gen, err
}

// FoldChunk merges one chunk into the transcript: if a bot turn directly
// follows the most recent user turn the text is appended to it, otherwise a
// new streaming bot turn is appended.
func (s *Store) FoldChunk(ctx context.Context, gen uint64, text string) (Turn, error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return Turn{}, ErrStaleGeneration
	}

	var t Turn
	if i := s.replyIndexLocked(); i >= 0 {
		s.turns[i].Text += text
		if s.turns[i].Status != StatusErrored {
			s.turns[i].Status = StatusStreaming
		}
		t = s.turns[i]
	} else {
		t = s.appendLocked(SenderBot, text, StatusStreaming)
	}
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(t)
	return t, err
}

// AppendBot appends a complete bot turn (unary replies).
func (s *Store) AppendBot(ctx context.Context, gen uint64, text string) (Turn, error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return Turn{}, ErrStaleGeneration
	}
	t := s.appendLocked(SenderBot, text, StatusComplete)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(t)
	return t, err
}

// Settle marks the in-flight bot turn of the submission complete.
func (s *Store) Settle(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return ErrStaleGeneration
	}
	i := s.replyIndexLocked()
	if i < 0 || s.turns[i].Status != StatusStreaming {
		s.mu.Unlock()
		return nil
	}
	s.turns[i].Status = StatusComplete
	t := s.turns[i]
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(t)
	return err
}

// Fail appends one errored bot entry with text. A partial reply already
// streamed for the submission keeps its text and is marked errored.
func (s *Store) Fail(ctx context.Context, gen uint64, text string) (Turn, error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return Turn{}, ErrStaleGeneration
	}
	if i := s.replyIndexLocked(); i >= 0 && s.turns[i].Status == StatusStreaming {
		s.turns[i].Status = StatusErrored
	}
	t := s.appendLocked(SenderBot, text, StatusErrored)
	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.notify(t)
	return t, err
}

// Clear empties the transcript in memory and in storage and starts a new
// generation.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
	s.nextID = 1
	s.generation++

	if err := s.kv.Remove(ctx, s.opts.Key); err != nil {
		return &PersistError{Op: "clear", Cause: err}
	}
	return nil
}

// replyIndexLocked returns the index of the bot turn directly following the
// most recent user turn, or -1.
func (s *Store) replyIndexLocked() int {
	lastUser := -1
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Sender == SenderUser {
			lastUser = i
			break
		}
	}
	if lastUser >= 0 && lastUser < len(s.turns)-1 && s.turns[lastUser+1].Sender == SenderBot {
		return lastUser + 1
	}
	return -1
}

func (s *Store) appendLocked(sender Sender, text string, status Status) Turn {
	t := Turn{ID: s.nextID, Sender: sender, Text: text, Status: status}
	s.nextID++
	s.turns = append(s.turns, t)
	return t
}

// persistLocked writes the transcript when it is non-empty. Turns without
// text are not written, so a stored transcript always passes Load.
func (s *Store) persistLocked(ctx context.Context) error {
	if len(s.turns) == 0 {
		return nil
	}
	out := make([]Turn, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Text != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return &PersistError{Op: "encode", Cause: err}
	}
	if err := s.kv.Set(ctx, s.opts.Key, string(data)); err != nil {
		return &PersistError{Op: "save", Cause: err}
	}
	return nil
}

func (s *Store) notify(t Turn) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(t)
	}
}
