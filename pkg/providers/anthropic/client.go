package anthropic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"mercator-hq/chatrelay/pkg/providers"
)

// Backend constants
const (
	BackendAnthropic = "anthropic"
	BackendBedrock   = "bedrock"
)

// Config configures the adapter.
type Config struct {
	// Backend selects the Anthropic API ("anthropic") or Amazon Bedrock ("bedrock")
	Backend string

	// APIKey is the Anthropic API key (anthropic backend only)
	APIKey string

	// BaseURL overrides the API endpoint
	BaseURL string

	// Region is the AWS region (bedrock backend only)
	Region string

	// Timeout bounds a single request; zero leaves it to the caller's context
	Timeout time.Duration

	// HTTPClient overrides the HTTP client
	HTTPClient *http.Client
}

// Provider is the Anthropic/Bedrock adapter built on the official SDK.
type Provider struct {
	name   string
	client sdk.Client
}

// NewProvider creates a new adapter. For the bedrock backend the AWS
// configuration is loaded from the default credential chain.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.Backend == "" {
		cfg.Backend = BackendAnthropic
	}

	// The invocation adapter never retries.
	opts := []option.RequestOption{option.WithMaxRetries(0)}

	switch cfg.Backend {
	case BackendAnthropic:
		if cfg.APIKey == "" {
			return nil, &providers.ConfigError{
				Provider: cfg.Backend,
				Field:    "api_key",
				Message:  "API key is required for Anthropic",
			}
		}
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case BackendBedrock:
		if cfg.Region == "" {
			return nil, &providers.ConfigError{
				Provider: cfg.Backend,
				Field:    "region",
				Message:  "region is required for Bedrock",
			}
		}
		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region)))
	default:
		return nil, &providers.ConfigError{
			Provider: cfg.Backend,
			Field:    "backend",
			Message:  fmt.Sprintf("unsupported backend %q (supported: anthropic, bedrock)", cfg.Backend),
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

	slog.Info("Anthropic provider initialized",
		"backend", cfg.Backend,
		"region", cfg.Region,
		"base_url", cfg.BaseURL,
	)

	return &Provider{
		name:   cfg.Backend,
		client: sdk.NewClient(opts...),
	}, nil
}

// Name returns the backend name.
func (p *Provider) Name() string {
	return p.name
}

// Close is a no-op; the SDK client holds no resources of its own.
func (p *Provider) Close() error {
	return nil
}

// Converse sends a unary Messages request.
func (p *Provider) Converse(ctx context.Context, req *providers.ConverseRequest) (*providers.ConverseResponse, error) {
	start := time.Now()

	msg, err := p.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return nil, p.convertError(err)
	}

	return transformResponse(msg, start), nil
}

// ConverseStream opens a streaming Messages request.
func (p *Provider) ConverseStream(ctx context.Context, req *providers.ConverseRequest) (providers.EventStream, error) {
	stream := p.client.Messages.NewStreaming(ctx, buildParams(req))
	if err := stream.Err(); err != nil {
		_ = stream.Close()
		return nil, p.convertError(err)
	}
	return newStreamReader(p, stream), nil
}

// convertError maps SDK errors onto the provider error types.
func (p *Provider) convertError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &providers.AuthError{Provider: p.name, Message: apiErr.Error()}
		}
	}
	return err
}
