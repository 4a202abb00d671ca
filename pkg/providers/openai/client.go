package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"mercator-hq/chatrelay/pkg/providers"
)

// Config configures the adapter.
type Config struct {
	// APIKey is the bearer key; optional for local OpenAI-compatible servers
	APIKey string

	// BaseURL overrides the API endpoint (Ollama, vLLM, LM Studio, ...)
	BaseURL string

	// Timeout bounds a single request; zero leaves it to the caller's context
	Timeout time.Duration

	// HTTPClient overrides the HTTP client
	HTTPClient *http.Client
}

// Provider is the OpenAI-compatible adapter built on openai-go.
type Provider struct {
	client sdk.Client
}

// NewProvider creates a new adapter.
func NewProvider(cfg Config) (*Provider, error) {
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	} else if cfg.BaseURL == "" {
		return nil, &providers.ConfigError{
			Provider: "openai",
			Field:    "api_key",
			Message:  "API key is required unless base_url points at a compatible server",
		}
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	slog.Info("OpenAI provider initialized", "base_url", cfg.BaseURL)

	return &Provider{client: sdk.NewClient(opts...)}, nil
}

// Name returns "openai".
func (p *Provider) Name() string {
	return "openai"
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}

// Converse sends a unary chat completion.
func (p *Provider) Converse(ctx context.Context, req *providers.ConverseRequest) (*providers.ConverseResponse, error) {
	start := time.Now()

	completion, err := p.client.Chat.Completions.New(ctx, buildParams(req))
	if err != nil {
		return nil, p.convertError(err)
	}
	return transformResponse(completion, start), nil
}

// ConverseStream opens a streaming chat completion.
func (p *Provider) ConverseStream(ctx context.Context, req *providers.ConverseRequest) (providers.EventStream, error) {
	params := buildParams(req)
	params.StreamOptions = sdk.ChatCompletionStreamOptionsParam{IncludeUsage: sdk.Bool(true)}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, p.convertError(err)
	}
	return newStreamReader(p, stream), nil
}

func (p *Provider) convertError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &providers.AuthError{Provider: p.Name(), Message: apiErr.Error()}
		}
	}
	return err
}
