package providers

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultUnhealthyThreshold is the number of consecutive failed invocations
// after which a provider is reported unhealthy.
const DefaultUnhealthyThreshold = 3

// ProviderHealth tracks the health status of a provider, derived from the
// outcome of real invocations.
type ProviderHealth struct {
	// IsHealthy indicates whether the provider is currently healthy
	IsHealthy bool

	// LastCheck is the time of the last recorded invocation
	LastCheck time.Time

	// LastError is the most recent error encountered (nil if healthy)
	LastError error

	// ConsecutiveFailures counts sequential failed invocations
	ConsecutiveFailures int

	// LastSuccessfulRequest is the timestamp of the last successful invocation
	LastSuccessfulRequest time.Time

	// TotalRequests is the total number of invocations recorded
	TotalRequests int64

	// FailedRequests is the total number of failed invocations
	FailedRequests int64
}

// HealthTracker records invocation outcomes for one provider.
type HealthTracker struct {
	name      string
	threshold int

	mu     sync.RWMutex
	health ProviderHealth
}

// NewHealthTracker creates a tracker that starts healthy.
func NewHealthTracker(name string, threshold int) *HealthTracker {
	if threshold <= 0 {
		threshold = DefaultUnhealthyThreshold
	}
	return &HealthTracker{
		name:      name,
		threshold: threshold,
		health:    ProviderHealth{IsHealthy: true},
	}
}

// Record updates health from one invocation outcome.
func (h *HealthTracker) Record(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.health.LastCheck = now
	h.health.TotalRequests++

	if err == nil {
		if !h.health.IsHealthy {
			slog.Info("provider marked healthy",
				"provider", h.name,
				"previous_failures", h.health.ConsecutiveFailures,
			)
		}
		h.health.IsHealthy = true
		h.health.LastError = nil
		h.health.ConsecutiveFailures = 0
		h.health.LastSuccessfulRequest = now
		return
	}

	h.health.FailedRequests++
	h.health.ConsecutiveFailures++
	h.health.LastError = err
	if h.health.IsHealthy && h.health.ConsecutiveFailures >= h.threshold {
		h.health.IsHealthy = false
		slog.Warn("provider marked unhealthy",
			"provider", h.name,
			"consecutive_failures", h.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// IsHealthy returns the current health status.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health.IsHealthy
}

// Health returns a snapshot of the tracked health.
func (h *HealthTracker) Health() ProviderHealth {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.health
}
