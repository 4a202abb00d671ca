// Package metrics provides Prometheus metrics for the relay.
//
// # Metrics Categories
//
//   - Relay metrics: finished relays by transport and outcome, durations,
//     chunk counts and sizes
//   - Model metrics: invocations, latency, token usage, provider health
//   - Gateway metrics: open connections, route invocations, push retries
//     and delivery results
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	invoker.SetObserver(collector)
//	handlers.Options{Observer: collector}
//	wsgateway.DeliveryOptions{OnRetry: collector.PushRetried, OnFinish: collector.PushFinished}
//
//	mux.Handle("/metrics", collector.Handler())
package metrics
