package handlers

import (
	"net/http"
	"time"

	"mercator-hq/chatrelay/pkg/proxy"
	"mercator-hq/chatrelay/pkg/proxy/types"
)

// HealthHandler handles health check requests for liveness probes.
type HealthHandler struct{}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	_ = proxy.WriteJSONResponse(w, http.StatusOK, types.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	})
}

// ReadyHandler reports ready while the model provider is healthy.
type ReadyHandler struct {
	reporter    ReadinessReporter
	connections func() int
}

// NewReadyHandler creates a readiness handler. connections may be nil.
func NewReadyHandler(reporter ReadinessReporter, connections func() int) *ReadyHandler {
	return &ReadyHandler{reporter: reporter, connections: connections}
}

// ServeHTTP implements http.Handler for readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := h.reporter.Health().Health()
	resp := types.ReadyResponse{
		Status:              "ready",
		Provider:            h.reporter.ProviderName(),
		ModelID:             h.reporter.Settings().ModelID,
		Healthy:             health.IsHealthy,
		ConsecutiveFailures: health.ConsecutiveFailures,
		Timestamp:           time.Now().Unix(),
	}
	if health.LastError != nil {
		resp.LastError = health.LastError.Error()
	}
	if h.connections != nil {
		resp.Connections = h.connections()
	}

	status := http.StatusOK
	if !health.IsHealthy {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	_ = proxy.WriteJSONResponse(w, status, resp)
}
