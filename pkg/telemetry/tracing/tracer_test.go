package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/chatrelay/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  *config.TracingConfig
		wantErr bool
	}{
		{name: "nil config", config: nil, wantErr: true},
		{name: "disabled", config: &config.TracingConfig{Enabled: false}},
		{
			name: "otlp",
			config: &config.TracingConfig{
				Enabled:     true,
				Sampler:     SamplerAlways,
				Exporter:    "otlp",
				Endpoint:    "localhost:4317",
				ServiceName: "chatrelay",
				OTLP:        config.OTLPConfig{Insecure: true, Timeout: time.Second},
			},
		},
		{
			name:    "invalid sampler",
			config:  &config.TracingConfig{Enabled: true, Sampler: "sometimes"},
			wantErr: true,
		},
		{
			name:    "unsupported exporter",
			config:  &config.TracingConfig{Enabled: true, Sampler: SamplerAlways, Exporter: "zipkin"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracer, err := New(tt.config, "test")
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tracer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = tracer.Shutdown(ctx)
		})
	}
}

func TestDisabledTracer(t *testing.T) {
	tracer, err := New(&config.TracingConfig{}, "test")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected disabled tracer")
	}

	ctx, span := tracer.Start(context.Background(), "noop")
	defer span.End()
	if TraceID(ctx) != "" {
		t.Error("noop spans should not carry a trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func recordingTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return &Tracer{tracer: provider.Tracer("test"), provider: provider, enabled: true}, recorder
}

func TestHTTPMiddleware(t *testing.T) {
	tracer, recorder := recordingTracer(t)

	var seen string
	h := tracer.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", nil))

	if seen == "" {
		t.Fatal("handler context should carry the server span")
	}
	if rec.Header().Get("X-Trace-ID") != seen {
		t.Errorf("X-Trace-ID = %q, want %q", rec.Header().Get("X-Trace-ID"), seen)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Name() != "POST /chat" || spans[0].SpanKind() != trace.SpanKindServer {
		t.Errorf("unexpected span %q kind %v", spans[0].Name(), spans[0].SpanKind())
	}
}

func TestSetRelayAttributes(t *testing.T) {
	tracer, recorder := recordingTracer(t)

	_, span := tracer.Start(context.Background(), "relay")
	SetRelayAttributes(span, "stream", "complete", 3, 12)
	SetError(span, errors.New("boom"))
	SetError(span, nil)
	span.End()

	got := map[string]any{}
	for _, kv := range recorder.Ended()[0].Attributes() {
		got[string(kv.Key)] = kv.Value.AsInterface()
	}
	if got[AttrTransport] != "stream" || got[AttrChunks] != int64(3) || got["error"] != true {
		t.Errorf("unexpected attributes: %v", got)
	}
}
