package handlers

import (
	"context"
	"net/http"

	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/proxy/middleware"
	"mercator-hq/chatrelay/pkg/relay"
)

// ModelInvoker is the model invocation adapter the bindings call.
type ModelInvoker interface {
	Converse(ctx context.Context, messages []providers.Message) (*providers.ConverseResponse, error)
	ConverseStream(ctx context.Context, messages []providers.Message) (providers.EventStream, error)
}

// ReadinessReporter exposes the provider state the readiness probe reports.
type ReadinessReporter interface {
	ProviderName() string
	Settings() providers.Settings
	Health() *providers.HealthTracker
}

// Options holds what the chat bindings share.
type Options struct {
	// EmitMetadata reports whether metadata events are forwarded
	EmitMetadata func() bool

	// Observer receives relay outcomes; optional
	Observer relay.Observer

	// CORS provides the static CORS headers; DefaultCORSConfig when nil
	CORS *middleware.CORSConfig
}

func (o Options) cors() *middleware.CORSConfig {
	if o.CORS == nil {
		return middleware.DefaultCORSConfig()
	}
	return o.CORS
}

func (o Options) normalizer(transport string) *relay.Normalizer {
	return relay.NewNormalizer(relay.Options{
		Transport:    transport,
		EmitMetadata: o.EmitMetadata,
		Observer:     o.Observer,
	})
}

// setCORSHeaders copies the static CORS headers onto the response unless
// the CORS middleware already set them.
func setCORSHeaders(w http.ResponseWriter, cors *middleware.CORSConfig) {
	for k, v := range cors.Headers() {
		if w.Header().Get(k) == "" {
			w.Header().Set(k, v)
		}
	}
}

// answerPreflight handles OPTIONS without touching the model.
func answerPreflight(w http.ResponseWriter, r *http.Request, cors *middleware.CORSConfig) bool {
	if r.Method != http.MethodOptions {
		return false
	}
	setCORSHeaders(w, cors)
	w.WriteHeader(http.StatusOK)
	return true
}
