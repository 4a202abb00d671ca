package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider loads secrets from environment variables. The secret
// "openai-api-key" is read from <Prefix>OPENAI_API_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment variable secret provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret reads the variable of name. An empty variable is not found.
func (p *EnvProvider) GetSecret(ctx context.Context, name string) (string, error) {
	envVar := p.EnvVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("secret %q not found in environment (%s)", name, envVar)
	}
	return value, nil
}

// Provider returns the provider name.
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports reports whether the variable of name is set.
func (p *EnvProvider) Supports(name string) bool {
	_, ok := os.LookupEnv(p.EnvVar(name))
	return ok
}

// EnvVar returns the environment variable that holds name.
func (p *EnvProvider) EnvVar(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_", "/", "_")
	return p.Prefix + strings.ToUpper(r.Replace(name))
}
