package providers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "mercator-hq/chatrelay/providers"

// Settings binds an Invoker to a model and its inference parameters.
type Settings struct {
	// Region is the backend region (informational for non-AWS backends)
	Region string

	// ModelID is the model identifier passed to the provider
	ModelID string

	// System is the optional system prompt
	System string

	// Inference holds sampling parameters
	Inference InferenceConfig
}

// DefaultSettings returns the inference defaults: 4096 max tokens,
// temperature 0.5, top-p 0.9.
func DefaultSettings() Settings {
	return Settings{
		Region:  "us-west-2",
		ModelID: "anthropic.claude-3-5-sonnet-20240620-v1:0",
		Inference: InferenceConfig{
			MaxTokens:   4096,
			Temperature: 0.5,
			TopP:        0.9,
		},
	}
}

// InvocationObserver receives one report per finished invocation,
// typically for metrics. Status is "success" or "error".
type InvocationObserver interface {
	InvocationFinished(provider, modelID, status string, duration time.Duration, usage Usage)
}

// Invocation statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Invoker is the model invocation adapter. It fills in the model id and
// inference settings, substitutes the placeholder conversation when no
// messages are given, and converts every failure into a
// *ModelInvocationError. It never retries.
//
// Settings can be swapped at runtime (configuration reload); an invocation
// uses the settings current at its start.
type Invoker struct {
	provider Provider
	health   *HealthTracker
	tracer   trace.Tracer
	observer InvocationObserver

	mu       sync.RWMutex
	settings Settings
}

// NewInvoker creates an Invoker over provider.
func NewInvoker(provider Provider, settings Settings) *Invoker {
	return &Invoker{
		provider: provider,
		health:   NewHealthTracker(provider.Name(), DefaultUnhealthyThreshold),
		tracer:   otel.Tracer(tracerName),
		settings: settings,
	}
}

// SetObserver registers an invocation observer. Call before serving.
func (i *Invoker) SetObserver(o InvocationObserver) {
	i.observer = o
}

func (i *Invoker) observe(modelID string, start time.Time, err error, usage Usage) {
	if i.observer == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	i.observer.InvocationFinished(i.provider.Name(), modelID, status, time.Since(start), usage)
}

// Settings returns the current settings.
func (i *Invoker) Settings() Settings {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.settings
}

// UpdateSettings replaces the settings used by subsequent invocations.
func (i *Invoker) UpdateSettings(s Settings) {
	i.mu.Lock()
	i.settings = s
	i.mu.Unlock()

	slog.Info("model settings updated",
		"provider", i.provider.Name(),
		"model_id", s.ModelID,
		"max_tokens", s.Inference.MaxTokens,
	)
}

// Health returns the provider health tracker.
func (i *Invoker) Health() *HealthTracker {
	return i.health
}

// ProviderName returns the name of the wrapped provider.
func (i *Invoker) ProviderName() string {
	return i.provider.Name()
}

func (i *Invoker) request(messages []Message) *ConverseRequest {
	s := i.Settings()
	if len(messages) == 0 {
		messages = DefaultMessages()
	}
	return &ConverseRequest{
		ModelID:   s.ModelID,
		System:    s.System,
		Messages:  messages,
		Inference: s.Inference,
	}
}

func (i *Invoker) wrap(modelID string, err error) error {
	var mie *ModelInvocationError
	if errors.As(err, &mie) {
		return err
	}
	return &ModelInvocationError{Provider: i.provider.Name(), ModelID: modelID, Cause: err}
}

// Converse performs a unary invocation.
func (i *Invoker) Converse(ctx context.Context, messages []Message) (*ConverseResponse, error) {
	req := i.request(messages)

	ctx, span := i.tracer.Start(ctx, "model.converse",
		trace.WithAttributes(
			attribute.String("model.provider", i.provider.Name()),
			attribute.String("model.id", req.ModelID),
			attribute.Int("model.messages", len(req.Messages)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := i.provider.Converse(ctx, req)
	i.health.Record(err)
	if err != nil {
		i.observe(req.ModelID, start, err, Usage{})
		span.RecordError(err)
		span.SetStatus(codes.Error, "converse failed")
		slog.ErrorContext(ctx, "model invocation failed",
			"provider", i.provider.Name(),
			"model_id", req.ModelID,
			"error", err,
		)
		return nil, i.wrap(req.ModelID, err)
	}

	if resp.Metrics.LatencyMs == 0 {
		resp.Metrics = MetricsSince(start)
	}
	span.SetAttributes(
		attribute.Int("model.usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("model.usage.output_tokens", resp.Usage.OutputTokens),
	)
	i.observe(req.ModelID, start, nil, resp.Usage)
	return resp, nil
}

// ConverseStream opens a streaming invocation. Errors from opening the
// stream and from every later Recv are *ModelInvocationError.
func (i *Invoker) ConverseStream(ctx context.Context, messages []Message) (EventStream, error) {
	req := i.request(messages)

	spanCtx, span := i.tracer.Start(ctx, "model.converse_stream",
		trace.WithAttributes(
			attribute.String("model.provider", i.provider.Name()),
			attribute.String("model.id", req.ModelID),
			attribute.Int("model.messages", len(req.Messages)),
		),
	)

	start := time.Now()
	stream, err := i.provider.ConverseStream(spanCtx, req)
	if err != nil {
		i.health.Record(err)
		i.observe(req.ModelID, start, err, Usage{})
		span.RecordError(err)
		span.SetStatus(codes.Error, "open stream failed")
		span.End()
		return nil, i.wrap(req.ModelID, err)
	}

	return &invocationStream{
		inner:   stream,
		invoker: i,
		modelID: req.ModelID,
		span:    span,
		start:   start,
	}, nil
}

// invocationStream wraps a provider stream to convert errors, record health
// and end the tracing span exactly once.
type invocationStream struct {
	inner   EventStream
	invoker *Invoker
	modelID string
	span    trace.Span
	start   time.Time

	once   sync.Once
	deltas int
	usage  Usage
}

func (s *invocationStream) Recv(ctx context.Context) (Event, error) {
	ev, err := s.inner.Recv(ctx)
	if err == nil {
		if ev.ContentBlockDelta != nil {
			s.deltas++
		}
		if ev.Metadata != nil && ev.Metadata.Usage != nil {
			s.usage = *ev.Metadata.Usage
		}
		return ev, nil
	}
	if errors.Is(err, io.EOF) {
		s.finish(nil)
		return Event{}, io.EOF
	}
	s.finish(err)
	return Event{}, s.invoker.wrap(s.modelID, err)
}

func (s *invocationStream) Close() error {
	s.finish(nil)
	return s.inner.Close()
}

func (s *invocationStream) finish(err error) {
	s.once.Do(func() {
		s.invoker.health.Record(err)
		s.invoker.observe(s.modelID, s.start, err, s.usage)
		s.span.SetAttributes(attribute.Int("model.stream.deltas", s.deltas))
		if err != nil {
			s.span.RecordError(err)
			s.span.SetStatus(codes.Error, "stream failed")
		}
		s.span.End()
	})
}
