package metrics

import (
	"time"

	"mercator-hq/chatrelay/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics tracks relays from model stream to client, per transport.
//
// Metrics:
//   - chatrelay_relay_total: finished relays by transport and outcome
//   - chatrelay_relay_duration_seconds: relay duration
//   - chatrelay_relay_chunks_total: chunks forwarded
//   - chatrelay_relay_chunk_bytes: chunk text size
type RelayMetrics struct {
	relays     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	chunks     *prometheus.CounterVec
	chunkBytes *prometheus.HistogramVec
}

// NewRelayMetrics creates and registers relay metrics with the provided registry.
func NewRelayMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RelayMetrics {
	rm := &RelayMetrics{
		relays: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "relay_total",
				Help:      "Total number of finished relays by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "relay_duration_seconds",
				Help:      "Duration of relays in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"transport"},
		),

		chunks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "relay_chunks_total",
				Help:      "Total number of text chunks forwarded to clients",
			},
			[]string{"transport"},
		),

		chunkBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "relay_chunk_bytes",
				Help:      "Size of forwarded text chunks in bytes",
				Buckets:   prometheus.ExponentialBuckets(4, 4, 7), // 4B to 16KB
			},
			[]string{"transport"},
		),
	}

	registry.MustRegister(rm.relays, rm.duration, rm.chunks, rm.chunkBytes)
	return rm
}

// RecordChunk records one forwarded chunk.
func (rm *RelayMetrics) RecordChunk(transport string, size int) {
	rm.chunks.WithLabelValues(transport).Inc()
	rm.chunkBytes.WithLabelValues(transport).Observe(float64(size))
}

// RecordRelay records a finished relay.
func (rm *RelayMetrics) RecordRelay(transport, outcome string, duration time.Duration) {
	rm.relays.WithLabelValues(transport, outcome).Inc()
	rm.duration.WithLabelValues(transport).Observe(duration.Seconds())
}
