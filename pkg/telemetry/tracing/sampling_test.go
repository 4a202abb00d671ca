package tracing

import (
	"context"
	"testing"

	"mercator-hq/chatrelay/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var testTraceID = trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}

func decide(t *testing.T, s sdktrace.Sampler, ctx context.Context, name string, kind trace.SpanKind) sdktrace.SamplingDecision {
	t.Helper()
	return s.ShouldSample(sdktrace.SamplingParameters{
		ParentContext: ctx,
		TraceID:       testTraceID,
		Name:          name,
		Kind:          kind,
	}).Decision
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.TracingConfig
		want    sdktrace.SamplingDecision
		wantErr bool
	}{
		{name: "always", cfg: config.TracingConfig{Sampler: SamplerAlways}, want: sdktrace.RecordAndSample},
		{name: "never", cfg: config.TracingConfig{Sampler: SamplerNever}, want: sdktrace.Drop},
		{name: "ratio one", cfg: config.TracingConfig{Sampler: SamplerRatio, SampleRatio: 1}, want: sdktrace.RecordAndSample},
		{name: "ratio zero", cfg: config.TracingConfig{Sampler: SamplerRatio, SampleRatio: 0}, want: sdktrace.Drop},
		{name: "ratio above one", cfg: config.TracingConfig{Sampler: SamplerRatio, SampleRatio: 1.5}, wantErr: true},
		{name: "negative ratio", cfg: config.TracingConfig{Sampler: SamplerRatio, SampleRatio: -0.1}, wantErr: true},
		{name: "unknown", cfg: config.TracingConfig{Sampler: "sometimes"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := newSampler(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if got := decide(t, s, context.Background(), "POST /chat/stream", trace.SpanKindServer); got != tt.want {
				t.Errorf("decision = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSampler_SkipPaths(t *testing.T) {
	s, err := newSampler(&config.TracingConfig{
		Sampler:   SamplerAlways,
		SkipPaths: []string{"/health", "/metrics"},
	})
	if err != nil {
		t.Fatalf("newSampler() error = %v", err)
	}

	tests := []struct {
		name string
		span string
		kind trace.SpanKind
		want sdktrace.SamplingDecision
	}{
		{name: "probe", span: "GET /health", kind: trace.SpanKindServer, want: sdktrace.Drop},
		{name: "scrape", span: "GET /metrics", kind: trace.SpanKindServer, want: sdktrace.Drop},
		{name: "chat", span: "POST /chat", kind: trace.SpanKindServer, want: sdktrace.RecordAndSample},
		{name: "internal span with path-like name", span: "GET /health", kind: trace.SpanKindInternal, want: sdktrace.RecordAndSample},
		{name: "model span", span: "model.converse_stream", kind: trace.SpanKindClient, want: sdktrace.RecordAndSample},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decide(t, s, context.Background(), tt.span, tt.kind); got != tt.want {
				t.Errorf("decision = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewSampler_FollowsParent(t *testing.T) {
	s, err := newSampler(&config.TracingConfig{Sampler: SamplerNever})
	if err != nil {
		t.Fatalf("newSampler() error = %v", err)
	}

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    testTraceID,
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)

	if got := decide(t, s, ctx, "POST /chat", trace.SpanKindServer); got != sdktrace.RecordAndSample {
		t.Errorf("decision = %v, want sampled parent to be followed", got)
	}
}
