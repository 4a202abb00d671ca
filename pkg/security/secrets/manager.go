package secrets

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/chatrelay/pkg/config"
)

// secretRefRegex matches ${secret:name} references.
var secretRefRegex = regexp.MustCompile(`\$\{secret:([^}]+)\}`)

// Manager resolves secrets through its providers in order, caching what
// it finds.
type Manager struct {
	providers []SecretProvider
	cache     *Cache
}

// NewManager creates a manager over providers.
func NewManager(providers []SecretProvider, cache *Cache) *Manager {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Manager{providers: providers, cache: cache}
}

// FromConfig builds the manager described by cfg: the environment first,
// then the secrets directory when one is set.
func FromConfig(cfg *config.SecretsConfig) (*Manager, error) {
	providers := []SecretProvider{NewEnvProvider(cfg.EnvPrefix)}
	if cfg.Dir != "" {
		fp, err := NewFileProvider(cfg.Dir)
		if err != nil {
			return nil, err
		}
		providers = append(providers, fp)
	}
	return NewManager(providers, NewCache(cfg.CacheTTL)), nil
}

// GetSecret returns the value of name from the first provider that
// supports it and succeeds.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	if value, ok := m.cache.Get(name); ok {
		return value, nil
	}

	var lastErr error
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}
		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			slog.DebugContext(ctx, "secret provider failed",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
			continue
		}
		m.cache.Set(name, value)
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}
	return "", fmt.Errorf("secret not found: %q", name)
}

// ResolveReferences replaces every ${secret:name} in input. References
// that cannot be resolved are kept and reported together.
func (m *Manager) ResolveReferences(ctx context.Context, input string) (string, error) {
	var failed []string

	output := secretRefRegex.ReplaceAllStringFunc(input, func(match string) string {
		name := secretRefRegex.FindStringSubmatch(match)[1]
		value, err := m.GetSecret(ctx, name)
		if err != nil {
			failed = append(failed, err.Error())
			return match
		}
		return value
	})

	if len(failed) > 0 {
		return output, fmt.Errorf("failed to resolve secret references: %s", strings.Join(failed, "; "))
	}
	return output, nil
}

// ResolveFields resolves the references in each field in place. Fields
// are left untouched when any reference fails.
func (m *Manager) ResolveFields(ctx context.Context, fields []*string) error {
	resolved := make([]string, len(fields))
	for i, f := range fields {
		if !strings.Contains(*f, "${secret:") {
			resolved[i] = *f
			continue
		}
		v, err := m.ResolveReferences(ctx, *f)
		if err != nil {
			return err
		}
		resolved[i] = v
	}
	for i, f := range fields {
		*f = resolved[i]
	}
	return nil
}

// Refresh refreshes every refreshable provider and clears the cache.
func (m *Manager) Refresh(ctx context.Context) error {
	var failed []string
	for _, provider := range m.providers {
		r, ok := provider.(RefreshableProvider)
		if !ok {
			continue
		}
		if err := r.Refresh(ctx); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", provider.Provider(), err))
		}
	}
	m.cache.Clear()

	if len(failed) > 0 {
		return fmt.Errorf("failed to refresh some providers: %s", strings.Join(failed, "; "))
	}
	return nil
}

// redactSecretName keeps the first and last two characters of name.
func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
