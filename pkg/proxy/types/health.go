package types

// HealthResponse is the body of the liveness endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// ReadyResponse is the body of the readiness endpoint.
type ReadyResponse struct {
	Status              string `json:"status"`
	Provider            string `json:"provider"`
	ModelID             string `json:"model_id"`
	Healthy             bool   `json:"healthy"`
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
	Connections         int    `json:"connections"`
	Timestamp           int64  `json:"timestamp"`
}
