package tracing

import (
	"fmt"
	"strings"

	"mercator-hq/chatrelay/pkg/config"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Sampler names accepted in telemetry.tracing.sampler.
const (
	SamplerAlways = "always"
	SamplerNever  = "never"
	SamplerRatio  = "ratio"
)

// newSampler builds the sampler for cfg. Root spans of requests to one of
// cfg.SkipPaths are dropped; every other root uses the configured strategy.
// Child spans follow their parent, so a trace continued from a client keeps
// the client's decision.
func newSampler(cfg *config.TracingConfig) (sdktrace.Sampler, error) {
	var base sdktrace.Sampler
	switch cfg.Sampler {
	case SamplerAlways:
		base = sdktrace.AlwaysSample()
	case SamplerNever:
		base = sdktrace.NeverSample()
	case SamplerRatio:
		if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
			return nil, fmt.Errorf("sample ratio must be between 0 and 1, got %g", cfg.SampleRatio)
		}
		base = sdktrace.TraceIDRatioBased(cfg.SampleRatio)
	default:
		return nil, fmt.Errorf("unknown sampler %q (valid: always, never, ratio)", cfg.Sampler)
	}

	if len(cfg.SkipPaths) > 0 {
		skip := make(map[string]struct{}, len(cfg.SkipPaths))
		for _, p := range cfg.SkipPaths {
			skip[p] = struct{}{}
		}
		base = pathSampler{base: base, skip: skip}
	}
	return sdktrace.ParentBased(base), nil
}

// pathSampler drops server spans named "METHOD /path" for skipped paths.
type pathSampler struct {
	base sdktrace.Sampler
	skip map[string]struct{}
}

func (s pathSampler) ShouldSample(p sdktrace.SamplingParameters) sdktrace.SamplingResult {
	if p.Kind == trace.SpanKindServer {
		if _, path, ok := strings.Cut(p.Name, " "); ok {
			if _, skipped := s.skip[path]; skipped {
				return sdktrace.SamplingResult{
					Decision:   sdktrace.Drop,
					Tracestate: trace.SpanContextFromContext(p.ParentContext).TraceState(),
				}
			}
		}
	}
	return s.base.ShouldSample(p)
}

func (s pathSampler) Description() string {
	return fmt.Sprintf("SkipPaths{%s}", s.base.Description())
}
