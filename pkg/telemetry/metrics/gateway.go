package metrics

import (
	"mercator-hq/chatrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// GatewayMetrics tracks the WebSocket gateway and push delivery.
//
// Metrics:
//   - chatrelay_ws_connections: open connections
//   - chatrelay_ws_routes_total: dispatched routes by route key and status
//   - chatrelay_ws_push_retries_total: push attempts that were retried
//   - chatrelay_ws_push_total: push deliveries by result
type GatewayMetrics struct {
	routes  *prometheus.CounterVec
	retries prometheus.Counter
	pushes  *prometheus.CounterVec

	registry *prometheus.Registry
	cfg      *config.MetricsConfig
}

// NewGatewayMetrics creates and registers gateway metrics with the provided registry.
func NewGatewayMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *GatewayMetrics {
	gm := &GatewayMetrics{
		routes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ws_routes_total",
				Help:      "Total number of WebSocket route invocations",
			},
			[]string{"route", "status"},
		),

		retries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ws_push_retries_total",
				Help:      "Total number of retried push attempts",
			},
		),

		pushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "ws_push_total",
				Help:      "Total number of push deliveries by result",
			},
			[]string{"result"},
		),

		registry: registry,
		cfg:      cfg,
	}

	registry.MustRegister(gm.routes, gm.retries, gm.pushes)
	return gm
}

// RegisterConnections exposes the open connection count, read from count
// on every scrape.
func (gm *GatewayMetrics) RegisterConnections(count func() int) {
	gm.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: gm.cfg.Namespace,
			Subsystem: gm.cfg.Subsystem,
			Name:      "ws_connections",
			Help:      "Number of open WebSocket connections",
		},
		func() float64 { return float64(count()) },
	))
}

// RecordRoute records one dispatched route.
func (gm *GatewayMetrics) RecordRoute(route string, status int) {
	gm.routes.WithLabelValues(route, statusClass(status)).Inc()
}

// RecordRetry records one retried push attempt.
func (gm *GatewayMetrics) RecordRetry() {
	gm.retries.Inc()
}

// RecordPush records a finished push delivery ("ok", "gone", "failed").
func (gm *GatewayMetrics) RecordPush(result string) {
	gm.pushes.WithLabelValues(result).Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
