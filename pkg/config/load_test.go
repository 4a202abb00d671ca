package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "0.0.0.0:9090"
  request_timeout: "45s"

model:
  provider: "anthropic"
  model_id: "claude-3-5-haiku-latest"
  api_key: "sk-ant-test-key-123"
  temperature: 0.2

websocket:
  pusher: "http"
  domain_name: "relay.example.com"

client:
  endpoint: "websocket"
  history:
    backend: "memory"

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:9090" {
		t.Errorf("expected listen address %q, got %q", "0.0.0.0:9090", cfg.Server.ListenAddress)
	}
	if cfg.Server.RequestTimeout != 45*time.Second {
		t.Errorf("expected request timeout 45s, got %v", cfg.Server.RequestTimeout)
	}
	if cfg.Model.Provider != "anthropic" || cfg.Model.ModelID != "claude-3-5-haiku-latest" {
		t.Errorf("unexpected model config: %+v", cfg.Model)
	}
	if cfg.Model.Temperature == nil || *cfg.Model.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Model.Temperature)
	}
	if cfg.Model.TopP == nil || *cfg.Model.TopP != DefaultModelTopP {
		t.Errorf("expected default top_p, got %v", cfg.Model.TopP)
	}
	if cfg.WebSocket.Pusher != "http" {
		t.Errorf("expected http pusher, got %q", cfg.WebSocket.Pusher)
	}
	if cfg.Client.Endpoint != "websocket" || cfg.Client.History.Backend != "memory" {
		t.Errorf("unexpected client config: %+v", cfg.Client)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level debug, got %q", cfg.Telemetry.Logging.Level)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist in chain, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
model:
  provider: "ollama"
  max_tokens: -1
`)

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(verr.Errors), verr)
	}
}

func TestLoadConfig_ExplicitFalseSurvivesDefaults(t *testing.T) {
	path := writeConfig(t, `
websocket:
  enabled: false
telemetry:
  logging:
    redact_secrets: false
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.WebSocket.WebSocketEnabled() {
		t.Error("expected websocket disabled")
	}
	if cfg.Telemetry.Logging.RedactionEnabled() {
		t.Error("expected redaction disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics disabled")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  listen_address: "127.0.0.1:8080"
model:
  provider: "scripted"
`)

	t.Setenv("CHATRELAY_SERVER_LISTEN_ADDRESS", "0.0.0.0:7000")
	t.Setenv("CHATRELAY_MODEL_SCRIPTED_FRAGMENTS", "Hel|lo|!")
	t.Setenv("CHATRELAY_MODEL_EMIT_METADATA", "true")
	t.Setenv("CHATRELAY_WEBSOCKET_ENABLED", "false")
	t.Setenv("CHATRELAY_CLIENT_HISTORY_BACKEND", "memory")
	t.Setenv("CHATRELAY_TELEMETRY_LOGGING_LEVEL", "warn")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.ListenAddress != "0.0.0.0:7000" {
		t.Errorf("expected env listen address, got %q", cfg.Server.ListenAddress)
	}
	if got := strings.Join(cfg.Model.Scripted.Fragments, ","); got != "Hel,lo,!" {
		t.Errorf("expected fragments from env, got %q", got)
	}
	if !cfg.Model.EmitMetadata {
		t.Error("expected emit_metadata from env")
	}
	if cfg.WebSocket.WebSocketEnabled() {
		t.Error("expected websocket disabled from env")
	}
	if cfg.Client.History.Backend != "memory" {
		t.Errorf("expected memory history, got %q", cfg.Client.History.Backend)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected warn level, got %q", cfg.Telemetry.Logging.Level)
	}
	// Untouched fields keep their defaults.
	if cfg.WebSocket.PushMaxAttempts != DefaultPushMaxAttempts {
		t.Errorf("expected default push attempts, got %d", cfg.WebSocket.PushMaxAttempts)
	}
}

func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("CHATRELAY_MODEL_PROVIDER", "scripted")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("failed to load defaults: %v", err)
	}
	if cfg.Model.Provider != "scripted" {
		t.Errorf("expected scripted provider, got %q", cfg.Model.Provider)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("expected default listen address, got %q", cfg.Server.ListenAddress)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("expected metrics enabled by default")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidValue(t *testing.T) {
	t.Setenv("CHATRELAY_SERVER_REQUEST_TIMEOUT", "soon")

	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Fatal("expected error for unparsable duration")
	}
}
