package secrets

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/chatrelay/pkg/config"
)

// countingProvider serves fixed values and counts lookups.
type countingProvider struct {
	values map[string]string
	calls  int
}

func (p *countingProvider) GetSecret(_ context.Context, name string) (string, error) {
	p.calls++
	v, ok := p.values[name]
	if !ok {
		return "", errors.New("missing")
	}
	return v, nil
}

func (p *countingProvider) Provider() string { return "counting" }

func (p *countingProvider) Supports(name string) bool {
	_, ok := p.values[name]
	return ok
}

func TestManager_GetSecret_ProviderPriority(t *testing.T) {
	t.Setenv("CHATRELAY_SECRET_TEST_KEY", "env-value")

	tmpDir := t.TempDir()
	writeSecret(t, tmpDir, "test-key", "file-value", 0o600)
	writeSecret(t, tmpDir, "file-only", "from-file", 0o400)

	m, err := FromConfig(&config.SecretsConfig{EnvPrefix: "CHATRELAY_SECRET_", Dir: tmpDir})
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	ctx := context.Background()

	if v, err := m.GetSecret(ctx, "test-key"); err != nil || v != "env-value" {
		t.Errorf("GetSecret(test-key) = %q, %v; want env-value", v, err)
	}
	if v, err := m.GetSecret(ctx, "file-only"); err != nil || v != "from-file" {
		t.Errorf("GetSecret(file-only) = %q, %v; want from-file", v, err)
	}
	if _, err := m.GetSecret(ctx, "nowhere"); err == nil {
		t.Error("expected error for an unknown secret")
	}
}

func TestManager_GetSecret_Caches(t *testing.T) {
	p := &countingProvider{values: map[string]string{"k": "v"}}
	m := NewManager([]SecretProvider{p}, NewCache(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if v, err := m.GetSecret(ctx, "k"); err != nil || v != "v" {
			t.Fatalf("GetSecret() = %q, %v", v, err)
		}
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1", p.calls)
	}

	if err := m.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	_, _ = m.GetSecret(ctx, "k")
	if p.calls != 2 {
		t.Errorf("provider called %d times after Refresh, want 2", p.calls)
	}
}

func TestManager_ResolveReferences(t *testing.T) {
	p := &countingProvider{values: map[string]string{"user": "alice", "pass": "s3cret"}}
	m := NewManager([]SecretProvider{p}, nil)
	ctx := context.Background()

	got, err := m.ResolveReferences(ctx, "${secret:user}:${secret:pass}@host")
	if err != nil {
		t.Fatalf("ResolveReferences() error = %v", err)
	}
	if got != "alice:s3cret@host" {
		t.Errorf("ResolveReferences() = %q", got)
	}

	got, err = m.ResolveReferences(ctx, "${secret:user}/${secret:missing}")
	if err == nil {
		t.Fatal("expected error for an unresolved reference")
	}
	if got != "alice/${secret:missing}" {
		t.Errorf("unresolved reference should be kept, got %q", got)
	}
	if !strings.Contains(err.Error(), "missing") {
		t.Errorf("error should name the secret: %v", err)
	}
}

func TestManager_ResolveFields(t *testing.T) {
	t.Setenv("CHATRELAY_SECRET_OPENAI_API_KEY", "sk-test")
	t.Setenv("CHATRELAY_SECRET_RELAY_TOKEN", "tok")

	cfg := config.NewDefault()
	cfg.Model.APIKey = "${secret:openai-api-key}"
	cfg.Client.Credentials.IDToken = "${secret:relay-token}"
	cfg.Security.Authentication.Tokens = []config.TokenConfig{{Token: "${secret:relay-token}"}, {Token: "plain"}}

	m, err := FromConfig(&cfg.Security.Secrets)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	if err := m.ResolveFields(context.Background(), cfg.SecretFields()); err != nil {
		t.Fatalf("ResolveFields() error = %v", err)
	}

	if cfg.Model.APIKey != "sk-test" {
		t.Errorf("Model.APIKey = %q", cfg.Model.APIKey)
	}
	if cfg.Client.Credentials.IDToken != "tok" {
		t.Errorf("IDToken = %q", cfg.Client.Credentials.IDToken)
	}
	if cfg.Security.Authentication.Tokens[0].Token != "tok" || cfg.Security.Authentication.Tokens[1].Token != "plain" {
		t.Errorf("Tokens = %+v", cfg.Security.Authentication.Tokens)
	}
}

func TestManager_ResolveFields_AllOrNothing(t *testing.T) {
	p := &countingProvider{values: map[string]string{"a": "1"}}
	m := NewManager([]SecretProvider{p}, nil)

	first, second := "${secret:a}", "${secret:b}"
	if err := m.ResolveFields(context.Background(), []*string{&first, &second}); err == nil {
		t.Fatal("expected error")
	}
	if first != "${secret:a}" || second != "${secret:b}" {
		t.Errorf("fields changed on failure: %q, %q", first, second)
	}
}

func TestRedactSecretName(t *testing.T) {
	if got := redactSecretName("openai-api-key"); got != "op...ey" {
		t.Errorf("redactSecretName() = %q", got)
	}
	if got := redactSecretName("key"); got != "***" {
		t.Errorf("redactSecretName() = %q", got)
	}
}
