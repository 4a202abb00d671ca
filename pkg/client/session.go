package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"

	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/kvstore"
	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/relay"
	"mercator-hq/chatrelay/pkg/transcript"
)

// Session is one chat conversation: a transcript, a transport and a
// credential supplier. At most one submission is in flight at a time.
type Session struct {
	store     *transcript.Store
	transport Transport
	creds     CredentialSupplier
	loading   atomic.Bool
}

// NewSession creates a session. A nil creds supplies empty credentials.
func NewSession(store *transcript.Store, transport Transport, creds CredentialSupplier) *Session {
	if creds == nil {
		creds = StaticCredentials{}
	}
	return &Session{store: store, transport: transport, creds: creds}
}

// Store returns the transcript of the session.
func (s *Session) Store() *transcript.Store {
	return s.store
}

// Loading reports whether a submission is in flight.
func (s *Session) Loading() bool {
	return s.loading.Load()
}

// Submit sends text as a new user turn and folds the reply into the
// transcript. Blank input is ignored.
//
// Every failure leaves exactly one errored bot turn in the transcript and
// is also returned. A submission overtaken by Clear stops quietly.
func (s *Session) Submit(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !s.loading.CompareAndSwap(false, true) {
		return ErrSubmissionInFlight
	}
	defer s.loading.Store(false)

	gen, err := s.store.AppendUser(ctx, text)
	if err != nil {
		logPersistError(ctx, err)
	}
	req := relay.ChatRequest{Messages: s.store.Messages()}

	creds, err := s.creds.SessionCredentials(ctx)
	if err != nil {
		return s.fail(ctx, gen, err)
	}

	err = s.transport.Send(ctx, req, creds, func(chunk string) error {
		_, err := s.store.FoldChunk(ctx, gen, chunk)
		var perr *transcript.PersistError
		if errors.As(err, &perr) {
			logPersistError(ctx, err)
			return nil
		}
		return err
	})

	switch {
	case err == nil:
		if err := s.store.Settle(ctx, gen); err != nil && !errors.Is(err, transcript.ErrStaleGeneration) {
			logPersistError(ctx, err)
		}
		return nil
	case errors.Is(err, transcript.ErrStaleGeneration):
		slog.DebugContext(ctx, "dropping reply of a cleared conversation")
		return nil
	default:
		return s.fail(ctx, gen, err)
	}
}

// fail records one errored bot turn for cause and returns cause.
func (s *Session) fail(ctx context.Context, gen uint64, cause error) error {
	slog.ErrorContext(ctx, "chat submission failed", "error", cause)

	text := transcript.ApologyText
	var lost *ConnectionLostError
	if errors.As(cause, &lost) {
		text = transcript.ConnectionLostText
	}

	_, err := s.store.Fail(ctx, gen, text)
	switch {
	case errors.Is(err, transcript.ErrStaleGeneration):
		return nil
	case err != nil:
		logPersistError(ctx, err)
	}
	return cause
}

// Clear empties the transcript. A submission in flight keeps running but
// its reply is dropped.
func (s *Session) Clear(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Turns returns a copy of the transcript.
func (s *Session) Turns() []transcript.Turn {
	return s.store.Turns()
}

// Messages returns the transcript as model context.
func (s *Session) Messages() []providers.Message {
	return s.store.Messages()
}

func logPersistError(ctx context.Context, err error) {
	slog.WarnContext(ctx, "failed to persist chat history", "error", err)
}

// Options customizes Open.
type Options struct {
	// HTTPClient is used by the HTTP transports.
	HTTPClient *http.Client

	// OnChange is called after every transcript mutation.
	OnChange func(transcript.Turn)
}

// Open builds a session from configuration: it opens the history store,
// restores the transcript and creates the credential supplier and
// transport. The returned close function releases the history store.
func Open(ctx context.Context, cfg *config.ClientConfig, opts Options) (*Session, func() error, error) {
	kv, err := OpenHistory(ctx, &cfg.History)
	if err != nil {
		return nil, nil, err
	}

	store := transcript.New(kv, transcript.Options{Key: cfg.History.Key, OnChange: opts.OnChange})
	if err := store.Load(ctx); err != nil {
		slog.WarnContext(ctx, "failed to load chat history", "error", err)
	}

	creds, err := NewCredentialSupplier(ctx, &cfg.Credentials, cfg.SignRegion)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	transport, err := NewTransport(cfg, opts.HTTPClient)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}

	slog.DebugContext(ctx, "chat session opened",
		"endpoint", cfg.Endpoint,
		"history_backend", cfg.History.Backend,
		"turns", store.Len(),
	)
	return NewSession(store, transport, creds), kv.Close, nil
}

// OpenHistory opens the key-value store configured for transcripts.
func OpenHistory(ctx context.Context, cfg *config.HistoryConfig) (kvstore.Store, error) {
	kv, err := kvstore.Open(ctx, kvstore.Config{
		Backend:       cfg.Backend,
		Path:          cfg.Path,
		Driver:        cfg.Driver,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open chat history: %w", err)
	}
	return kv, nil
}
