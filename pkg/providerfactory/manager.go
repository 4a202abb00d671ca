package providerfactory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"mercator-hq/chatrelay/pkg/config"
	"mercator-hq/chatrelay/pkg/providers"
)

// Manager owns the provider and invoker built from the model
// configuration and swaps them on reload. It implements the invocation and
// readiness interfaces of the chat handlers by delegating to the current
// invoker, so handlers keep one reference across reloads.
//
// Manager is safe for concurrent use.
type Manager struct {
	observer providers.InvocationObserver

	mu       sync.RWMutex
	provider providers.Provider
	invoker  *providers.Invoker
	key      connectionKey
}

// NewManager builds the provider and invoker for cfg. observer may be nil.
func NewManager(ctx context.Context, cfg *config.ModelConfig, observer providers.InvocationObserver) (*Manager, error) {
	m := &Manager{observer: observer}
	if err := m.rebuild(ctx, cfg); err != nil {
		return nil, err
	}
	return m, nil
}

// NewManagerWithProvider wraps an existing provider, typically a scripted
// one in tests.
func NewManagerWithProvider(provider providers.Provider, settings providers.Settings) *Manager {
	return &Manager{
		provider: provider,
		invoker:  providers.NewInvoker(provider, settings),
	}
}

func (m *Manager) rebuild(ctx context.Context, cfg *config.ModelConfig) error {
	provider, err := NewProvider(ctx, cfg)
	if err != nil {
		return err
	}
	invoker := providers.NewInvoker(provider, SettingsFromConfig(cfg))

	m.mu.Lock()
	if m.observer != nil {
		invoker.SetObserver(m.observer)
	}
	old := m.provider
	m.provider = provider
	m.invoker = invoker
	m.key = keyOf(cfg)
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			slog.Error("error closing provider", "provider", old.Name(), "error", err)
		}
	}
	return nil
}

// Apply applies a reloaded model configuration. Sampling parameters, the
// model id and the system prompt are updated in place; a change of
// provider, credentials or endpoint builds a new provider. In-flight
// invocations finish on the provider they started with.
func (m *Manager) Apply(ctx context.Context, cfg *config.ModelConfig) error {
	m.mu.RLock()
	same := m.key == keyOf(cfg)
	invoker := m.invoker
	m.mu.RUnlock()

	if same {
		invoker.UpdateSettings(SettingsFromConfig(cfg))
		return nil
	}

	slog.Info("model provider configuration changed, rebuilding provider", "provider", cfg.Provider)
	if err := m.rebuild(ctx, cfg); err != nil {
		return fmt.Errorf("failed to apply model configuration: %w", err)
	}
	return nil
}

// SetObserver registers the invocation observer on the current invoker
// and on every invoker built by later reloads. Call before serving.
func (m *Manager) SetObserver(o providers.InvocationObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = o
	m.invoker.SetObserver(o)
}

// Invoker returns the current invoker.
func (m *Manager) Invoker() *providers.Invoker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invoker
}

// Converse performs a unary invocation on the current invoker.
func (m *Manager) Converse(ctx context.Context, messages []providers.Message) (*providers.ConverseResponse, error) {
	return m.Invoker().Converse(ctx, messages)
}

// ConverseStream opens a streaming invocation on the current invoker.
func (m *Manager) ConverseStream(ctx context.Context, messages []providers.Message) (providers.EventStream, error) {
	return m.Invoker().ConverseStream(ctx, messages)
}

// ProviderName returns the name of the current provider.
func (m *Manager) ProviderName() string {
	return m.Invoker().ProviderName()
}

// Settings returns the current invocation settings.
func (m *Manager) Settings() providers.Settings {
	return m.Invoker().Settings()
}

// Health returns the health tracker of the current invoker.
func (m *Manager) Health() *providers.HealthTracker {
	return m.Invoker().Health()
}

// Close closes the current provider.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.provider == nil {
		return nil
	}
	err := m.provider.Close()
	m.provider = nil
	if err != nil {
		return fmt.Errorf("failed to close provider: %w", err)
	}
	slog.Info("provider manager closed")
	return nil
}
