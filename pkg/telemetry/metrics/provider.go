package metrics

import (
	"time"

	"mercator-hq/chatrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ModelMetrics tracks calls to the model backend.
//
// Metrics:
//   - chatrelay_model_invocations_total: invocations by provider, model, status
//   - chatrelay_model_latency_seconds: invocation latency
//   - chatrelay_model_tokens_total: reported token usage by direction
//   - chatrelay_model_health: provider health (1=healthy, 0=unhealthy)
type ModelMetrics struct {
	invocations *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	tokens      *prometheus.CounterVec
	health      *prometheus.GaugeVec
}

// NewModelMetrics creates and registers model metrics with the provided registry.
func NewModelMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ModelMetrics {
	mm := &ModelMetrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "model_invocations_total",
				Help:      "Total number of model invocations",
			},
			[]string{"provider", "model", "status"},
		),

		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "model_latency_seconds",
				Help:      "Model invocation latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "model"},
		),

		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "model_tokens_total",
				Help:      "Total number of tokens reported by the model",
			},
			[]string{"provider", "model", "type"},
		),

		health: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "model_health",
				Help:      "Model provider health status (1=healthy, 0=unhealthy)",
			},
			[]string{"provider"},
		),
	}

	registry.MustRegister(mm.invocations, mm.latency, mm.tokens, mm.health)
	return mm
}

// RecordInvocation records a finished invocation.
func (mm *ModelMetrics) RecordInvocation(provider, model, status string, duration time.Duration, inputTokens, outputTokens int) {
	mm.invocations.WithLabelValues(provider, model, status).Inc()
	mm.latency.WithLabelValues(provider, model).Observe(duration.Seconds())

	if inputTokens > 0 {
		mm.tokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		mm.tokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
}

// UpdateHealth sets the provider health gauge.
func (mm *ModelMetrics) UpdateHealth(provider string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	mm.health.WithLabelValues(provider).Set(value)
}
