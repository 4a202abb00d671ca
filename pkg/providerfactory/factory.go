package providerfactory

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/providers"
	"mercator-hq/chatrelay/pkg/providers/anthropic"
	"mercator-hq/chatrelay/pkg/providers/openai"
	"mercator-hq/chatrelay/pkg/providers/scripted"
)

// NewProvider creates the provider selected by cfg.Provider.
//
// Supported providers:
//   - "bedrock": Anthropic models on Amazon Bedrock (default AWS credential chain)
//   - "anthropic": Anthropic Messages API
//   - "openai": OpenAI and OpenAI-compatible servers (Ollama, vLLM, LM Studio)
//   - "scripted": in-process replay for local development
func NewProvider(ctx context.Context, cfg *config.ModelConfig) (providers.Provider, error) {
	slog.Debug("creating provider",
		"provider", cfg.Provider,
		"region", cfg.Region,
		"base_url", cfg.BaseURL,
	)

	var (
		provider providers.Provider
		err      error
	)

	switch cfg.Provider {
	case anthropic.BackendBedrock, anthropic.BackendAnthropic:
		provider, err = anthropic.NewProvider(ctx, anthropic.Config{
			Backend: cfg.Provider,
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Region:  cfg.Region,
			Timeout: cfg.Timeout,
		})

	case "openai":
		provider, err = openai.NewProvider(openai.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.Timeout,
		})

	case "scripted":
		provider = scripted.New(scripted.Config{
			Fragments: cfg.Scripted.Fragments,
			Echo:      cfg.Scripted.Echo,
			Delay:     cfg.Scripted.Delay,
		})

	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Provider,
			Field:    "provider",
			Message:  fmt.Sprintf("unsupported provider: %q (supported: bedrock, anthropic, openai, scripted)", cfg.Provider),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create provider %q: %w", cfg.Provider, err)
	}

	slog.Info("provider created", "provider", provider.Name(), "model_id", cfg.ModelID)
	return provider, nil
}

// SettingsFromConfig converts the model configuration into invocation
// settings. Unset sampling parameters fall back to the defaults.
func SettingsFromConfig(cfg *config.ModelConfig) providers.Settings {
	s := providers.DefaultSettings()
	s.Region = cfg.Region
	if cfg.ModelID != "" {
		s.ModelID = cfg.ModelID
	}
	s.System = cfg.System
	if cfg.MaxTokens > 0 {
		s.Inference.MaxTokens = cfg.MaxTokens
	}
	if cfg.Temperature != nil {
		s.Inference.Temperature = *cfg.Temperature
	}
	if cfg.TopP != nil {
		s.Inference.TopP = *cfg.TopP
	}
	return s
}

// connectionKey captures the fields that require a new provider when they
// change. Everything else is applied to the running invoker.
type connectionKey struct {
	provider string
	region   string
	apiKey   string
	baseURL  string
	timeout  string
	scripted string
}

func keyOf(cfg *config.ModelConfig) connectionKey {
	return connectionKey{
		provider: cfg.Provider,
		region:   cfg.Region,
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		timeout:  cfg.Timeout.String(),
		scripted: fmt.Sprintf("%q|%t|%s", cfg.Scripted.Fragments, cfg.Scripted.Echo, cfg.Scripted.Delay),
	}
}
