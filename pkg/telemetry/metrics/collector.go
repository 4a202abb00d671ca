package metrics

import (
	"context"
	"time"

	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/relay"
	"mercator-hq/chatrelay/pkg/wsgateway"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the relay's Prometheus metrics. It satisfies
// relay.Observer and providers.InvocationObserver, and provides hooks for
// push delivery and gateway routes.
//
// A collector built from a disabled config records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	relayMetrics   *RelayMetrics
	modelMetrics   *ModelMetrics
	gatewayMetrics *GatewayMetrics
}

// NewCollector creates a new metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "chatrelay"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Streams run from a few hundred milliseconds to minutes.
		cfg.RequestDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}
	}

	return &Collector{
		config:         cfg,
		registry:       registry,
		relayMetrics:   NewRelayMetrics(cfg, registry),
		modelMetrics:   NewModelMetrics(cfg, registry),
		gatewayMetrics: NewGatewayMetrics(cfg, registry),
	}
}

// ChunkRelayed implements relay.Observer.
func (c *Collector) ChunkRelayed(transport string, size int) {
	if !c.config.Enabled {
		return
	}
	c.relayMetrics.RecordChunk(transport, size)
}

// RelayFinished implements relay.Observer.
func (c *Collector) RelayFinished(transport string, outcome relay.Outcome, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.relayMetrics.RecordRelay(transport, string(outcome), duration)
}

// InvocationFinished implements providers.InvocationObserver.
func (c *Collector) InvocationFinished(provider, modelID, status string, duration time.Duration, usage providers.Usage) {
	if !c.config.Enabled {
		return
	}
	c.modelMetrics.RecordInvocation(provider, modelID, status, duration, usage.InputTokens, usage.OutputTokens)
}

// UpdateModelHealth sets the provider health gauge.
func (c *Collector) UpdateModelHealth(provider string, healthy bool) {
	if !c.config.Enabled {
		return
	}
	c.modelMetrics.UpdateHealth(provider, healthy)
}

// PushRetried matches wsgateway.DeliveryOptions.OnRetry.
func (c *Collector) PushRetried(_ string, _ int, _ error, _ time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.gatewayMetrics.RecordRetry()
}

// PushFinished matches wsgateway.DeliveryOptions.OnFinish.
func (c *Collector) PushFinished(_ string, _ int, err error) {
	if !c.config.Enabled {
		return
	}
	switch {
	case err == nil:
		c.gatewayMetrics.RecordPush("ok")
	case wsgateway.IsGone(err):
		c.gatewayMetrics.RecordPush("gone")
	default:
		c.gatewayMetrics.RecordPush("failed")
	}
}

// TrackConnections exposes the size of the connection registry.
func (c *Collector) TrackConnections(registry *wsgateway.Registry) {
	if !c.config.Enabled {
		return
	}
	c.gatewayMetrics.RegisterConnections(registry.Len)
}

// InstrumentRoutes wraps a route handler to count dispatched routes.
func (c *Collector) InstrumentRoutes(next wsgateway.RouteHandler) wsgateway.RouteHandler {
	if !c.config.Enabled {
		return next
	}
	return wsgateway.RouteHandlerFunc(func(ctx context.Context, ev wsgateway.RouteEvent) wsgateway.RouteResponse {
		resp := next.HandleRoute(ctx, ev)
		route := ev.RouteKey
		if route != wsgateway.RouteConnect && route != wsgateway.RouteDisconnect {
			route = wsgateway.RouteDefault
		}
		c.gatewayMetrics.RecordRoute(route, resp.StatusCode)
		return resp
	})
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
